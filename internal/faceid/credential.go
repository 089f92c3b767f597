package faceid

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialPolicy encodes credentials for storage and checks them on verification.
type CredentialPolicy interface {
	Encode(credential string) (string, error)
	Matches(stored, presented string) bool
	Name() string
}

// PlainCredentials stores credentials as given and compares them exactly.
type PlainCredentials struct{}

func (PlainCredentials) Encode(credential string) (string, error) {
	return credential, nil
}

func (PlainCredentials) Matches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func (PlainCredentials) Name() string { return "plain" }

// BcryptCredentials stores bcrypt hashes.
type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) Encode(credential string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: credential longer than 72 bytes", ErrValidation)
		}
		return "", fmt.Errorf("hashing credential: %w", err)
	}
	return string(hash), nil
}

func (BcryptCredentials) Matches(stored, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}

func (BcryptCredentials) Name() string { return "bcrypt" }

// NewCredentialPolicy returns the policy called name ("plain" or "bcrypt").
func NewCredentialPolicy(name string, bcryptCost int) (CredentialPolicy, error) {
	switch name {
	case "plain":
		return PlainCredentials{}, nil
	case "bcrypt", "":
		if bcryptCost != 0 && (bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BcryptCredentials{Cost: bcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown credential policy %q", name)
	}
}
