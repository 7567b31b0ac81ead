package dto

// Identity is what a verified credential proves about the caller.
type Identity struct {
	Subject string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type LoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (r LoginRequest) Validate() error {
	return GetValidator().Struct(r)
}

type LoginResponse struct {
	User UserProfileResponse `json:"user"`
}
