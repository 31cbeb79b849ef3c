package handler

// RequiredResponse is returned by GET /vat/required.
type RequiredResponse struct {
	Required bool `json:"required"`
}
