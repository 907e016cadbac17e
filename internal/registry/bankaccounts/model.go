package bankaccounts

// BankAccount links a company to a bank.
type BankAccount struct {
	ID            int64
	BankID        int64
	CompanyID     int64
	AccountNumber string
	Agency        string
}
