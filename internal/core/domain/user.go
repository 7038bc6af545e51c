package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned by storage when an email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// User is an account able to hold a wallet and a cart.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile holds the personal details shown on the profile screen.
// DNIEncrypted is what gets stored; DNI is only populated after decryption.
type UserProfile struct {
	UserID       uuid.UUID `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Address      string    `json:"address"`
	DNI          string    `json:"dni,omitempty"`
	DNIEncrypted string    `json:"-"`
	Info         string    `json:"info"`
	ImageURL     string    `json:"image_url,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (p *UserProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
