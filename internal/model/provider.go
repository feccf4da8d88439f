package model

// Provider is a caregiver account. Providers own certifications and
// reminder rules; reminder emails go to the provider's address.
type Provider struct {
	Base
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	Password     string `db:"-" json:"password,omitempty"`
	PasswordHash string `db:"password_hash" json:"-"`
}

type RegisterProviderRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
