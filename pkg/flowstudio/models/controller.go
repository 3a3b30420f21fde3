package models

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Username      string `json:"username"`
	SessionExpiry string `json:"sessionExpiry"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	ApiKey   string `json:"apiKey,omitempty"`
}

type CreateTagRequest struct {
	Name string `json:"name"`
}

type CreateCredentialRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
