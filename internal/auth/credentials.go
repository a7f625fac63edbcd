package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Verifier checks operator credentials against the configured account.
// The fund has a single committee login, so credentials come from config
// rather than a user table. A bcrypt hash is preferred; a plain password
// is accepted for local development.
type Verifier struct {
	username     string
	passwordHash string
	password     string
}

func NewVerifier(username, passwordHash, password string) *Verifier {
	return &Verifier{
		username:     username,
		passwordHash: passwordHash,
		password:     password,
	}
}

// Verify returns nil when the credentials match the configured account.
func (v *Verifier) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1

	var passOK bool
	if v.passwordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(v.passwordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	}

	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}
