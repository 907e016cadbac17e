package companies

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company represents a company entity. Phone is stored in E.164 form.
type Company struct {
	ID                    int64
	Name                  string
	Phone                 string
	Address               string
	AddressAdditionalInfo *string
	City                  string
	State                 string
	Country               string
	EarningsDeclared      decimal.Decimal
	CreatedAt             time.Time
}
