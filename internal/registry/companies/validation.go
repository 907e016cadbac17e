package companies

import (
	"github.com/corpbank/corpbank/internal/registry/shared"
)

// clean normalises text, validates every field and converts the payload into a Company.
// created_at is never taken from input.
func (s *Service) clean(form CompanyForm) (Company, error) {
	cleaned := CompanyForm{
		Name:                  shared.CleanText(form.Name),
		Phone:                 shared.CleanText(form.Phone),
		Address:               shared.CleanText(form.Address),
		AddressAdditionalInfo: shared.CleanOptional(form.AddressAdditionalInfo),
		City:                  shared.CleanText(form.City),
		State:                 shared.CleanText(form.State),
		Country:               shared.CleanText(form.Country),
	}

	verr := &shared.ValidationError{}
	verr.Merge(s.validator.Struct(cleaned))

	earnings, msg := shared.ParseDecimal(form.EarningsDeclared, shared.EarningsBounds)
	if msg != "" {
		verr.Add("earnings_declared", msg)
	}
	if err := verr.OrNil(); err != nil {
		return Company{}, err
	}

	phone, err := shared.NormalizePhone(cleaned.Phone, s.validator.Region())
	if err != nil {
		return Company{}, shared.NewValidationError("phone", shared.MsgInvalidPhone)
	}

	return Company{
		Name:                  cleaned.Name,
		Phone:                 phone,
		Address:               cleaned.Address,
		AddressAdditionalInfo: cleaned.AddressAdditionalInfo,
		City:                  cleaned.City,
		State:                 cleaned.State,
		Country:               cleaned.Country,
		EarningsDeclared:      earnings,
	}, nil
}
