package bankaccounts

import (
	"context"

	"github.com/corpbank/corpbank/internal/registry/shared"
)

func (s *Service) clean(ctx context.Context, form BankAccountForm) (BankAccount, error) {
	cleaned := BankAccountForm{
		Bank:          form.Bank,
		Company:       form.Company,
		AccountNumber: shared.CleanText(form.AccountNumber),
		Agency:        shared.CleanText(form.Agency),
	}
	if err := s.validator.Struct(cleaned).OrNil(); err != nil {
		return BankAccount{}, err
	}

	account := BankAccount{
		BankID:        *cleaned.Bank,
		CompanyID:     *cleaned.Company,
		AccountNumber: cleaned.AccountNumber,
		Agency:        cleaned.Agency,
	}
	if err := s.checkReferences(ctx, account); err != nil {
		return BankAccount{}, err
	}
	return account, nil
}

// checkReferences reports every missing parent at once.
func (s *Service) checkReferences(ctx context.Context, account BankAccount) error {
	verr := &shared.ValidationError{}
	bankOK, err := referenceExists(ctx, account.BankID, s.repo.BankExists)
	if err != nil {
		return err
	}
	if !bankOK {
		verr.Merge(shared.MissingReference("bank", account.BankID))
	}
	companyOK, err := referenceExists(ctx, account.CompanyID, s.repo.CompanyExists)
	if err != nil {
		return err
	}
	if !companyOK {
		verr.Merge(shared.MissingReference("company", account.CompanyID))
	}
	return verr.OrNil()
}

// referenceExists skips storage for ids no serial column can hold.
func referenceExists(ctx context.Context, id int64, exists func(context.Context, int64) (bool, error)) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return exists(ctx, id)
}
