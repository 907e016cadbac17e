package banks

import (
	"github.com/corpbank/corpbank/internal/registry/shared"
)

func (s *Service) clean(form BankForm) (Bank, error) {
	bank := Bank{
		Code: shared.CleanText(form.Code),
		Name: shared.CleanText(form.Name),
	}
	cleaned := BankForm{Code: bank.Code, Name: bank.Name}
	if err := s.validator.Struct(cleaned).OrNil(); err != nil {
		return Bank{}, err
	}
	return bank, nil
}
