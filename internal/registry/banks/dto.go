package banks

// BankForm is the create/update payload.
type BankForm struct {
	Code string `json:"code" validate:"required,max=3"`
	Name string `json:"name" validate:"required,max=255"`
}

// BankResponse is the wire representation of a Bank.
type BankResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// FormFromBank seeds a form with stored values so a partial update only overrides sent fields.
func FormFromBank(b Bank) BankForm {
	return BankForm{Code: b.Code, Name: b.Name}
}

func toResponse(b Bank) BankResponse {
	return BankResponse{ID: b.ID, Code: b.Code, Name: b.Name}
}

func toResponses(list []Bank) []BankResponse {
	out := make([]BankResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toResponse(b))
	}
	return out
}
