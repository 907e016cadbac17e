package bankaccounts

// BankAccountForm is the create/update payload. bank and company are primary keys;
// their existence, including non-positive ids, is checked against storage.
type BankAccountForm struct {
	Bank          *int64 `json:"bank" validate:"required"`
	Company       *int64 `json:"company" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,max=10"`
	Agency        string `json:"agency" validate:"required,max=8"`
}

// BankAccountResponse is the wire representation of a BankAccount.
type BankAccountResponse struct {
	ID            int64  `json:"id"`
	Bank          int64  `json:"bank"`
	Company       int64  `json:"company"`
	AccountNumber string `json:"account_number"`
	Agency        string `json:"agency"`
}

func FormFromBankAccount(a BankAccount) BankAccountForm {
	bank, company := a.BankID, a.CompanyID
	return BankAccountForm{Bank: &bank, Company: &company, AccountNumber: a.AccountNumber, Agency: a.Agency}
}

func toResponse(a BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            a.ID,
		Bank:          a.BankID,
		Company:       a.CompanyID,
		AccountNumber: a.AccountNumber,
		Agency:        a.Agency,
	}
}

func toResponses(list []BankAccount) []BankAccountResponse {
	out := make([]BankAccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	return out
}
