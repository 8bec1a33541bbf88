package model

// User is derived from the login response; its lifetime is tied to the credential.
type User struct {
	Email       string `json:"email"` // the JWT "username" is the email
	DisplayName string `json:"displayName,omitempty"`
}

type RegistrationRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail,omitempty"`
	Password        string `json:"password,omitempty"`
}

// JwtAuthenticationResponse is returned by /auth/login. Username is the email.
type JwtAuthenticationResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	Username    string `json:"username"`
}

type EmailVerificationRequest struct {
	Code string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// SuccessAuthResponseMessage is the generic JSON success message of the auth endpoints.
type SuccessAuthResponseMessage struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}
