package companies

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/corpbank/corpbank/internal/registry/shared"
)

// CompanyForm is the create/update payload. earnings_declared is kept raw so
// both JSON numbers and strings reach the decimal parser without a float in between.
type CompanyForm struct {
	Name                  string          `json:"name" validate:"required,max=255"`
	Phone                 string          `json:"phone" validate:"required,phone"`
	Address               string          `json:"address" validate:"required,max=255"`
	AddressAdditionalInfo *string         `json:"address_additional_info" validate:"omitempty,max=255"`
	City                  string          `json:"city" validate:"max=85"`
	State                 string          `json:"state" validate:"max=100"`
	Country               string          `json:"country" validate:"max=60"`
	EarningsDeclared      json.RawMessage `json:"earnings_declared" validate:"-"`
}

// CompanyResponse is the wire representation of a Company.
type CompanyResponse struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone"`
	Address               string    `json:"address"`
	AddressAdditionalInfo *string   `json:"address_additional_info"`
	City                  string    `json:"city"`
	State                 string    `json:"state"`
	Country               string    `json:"country"`
	EarningsDeclared      string    `json:"earnings_declared"`
	CreatedAt             time.Time `json:"created_at"`
}

// FormFromCompany seeds a form with stored values for partial updates.
func FormFromCompany(c Company) CompanyForm {
	return CompanyForm{
		Name:                  c.Name,
		Phone:                 c.Phone,
		Address:               c.Address,
		AddressAdditionalInfo: c.AddressAdditionalInfo,
		City:                  c.City,
		State:                 c.State,
		Country:               c.Country,
		EarningsDeclared:      json.RawMessage(strconv.Quote(shared.FormatDecimal(c.EarningsDeclared, shared.EarningsBounds))),
	}
}

func toResponse(c Company) CompanyResponse {
	return CompanyResponse{
		ID:                    c.ID,
		Name:                  c.Name,
		Phone:                 c.Phone,
		Address:               c.Address,
		AddressAdditionalInfo: c.AddressAdditionalInfo,
		City:                  c.City,
		State:                 c.State,
		Country:               c.Country,
		EarningsDeclared:      shared.FormatDecimal(c.EarningsDeclared, shared.EarningsBounds),
		CreatedAt:             c.CreatedAt,
	}
}

func toResponses(list []Company) []CompanyResponse {
	out := make([]CompanyResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	return out
}
