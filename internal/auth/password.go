package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-service/internal/config"
)

// PasswordPolicy decides how passwords are stored and compared.
type PasswordPolicy interface {
	Hash(plain string) (string, error)
	Matches(stored, plain string) bool
}

// PlaintextPolicy stores passwords verbatim. It is the default because the
// persisted snapshot format carries plaintext; it offers no credential security.
type PlaintextPolicy struct{}

func (PlaintextPolicy) Hash(plain string) (string, error) { return plain, nil }

func (PlaintextPolicy) Matches(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

// BcryptPolicy stores bcrypt hashes.
type BcryptPolicy struct {
	Cost int
}

func (p BcryptPolicy) Hash(plain string) (string, error) {
	return HashPassword(plain, p.Cost)
}

func (p BcryptPolicy) Matches(stored, plain string) bool {
	return ComparePassword(stored, plain) == nil
}

// NewPasswordPolicy maps AUTH_PASSWORD_POLICY onto an implementation.
func NewPasswordPolicy(cfg config.AuthConfig) (PasswordPolicy, error) {
	switch cfg.PasswordPolicy {
	case "", config.PasswordPolicyPlaintext:
		return PlaintextPolicy{}, nil
	case config.PasswordPolicyBcrypt:
		cost := cfg.BcryptCost
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		return BcryptPolicy{Cost: cost}, nil
	default:
		return nil, fmt.Errorf("unknown password policy %q", cfg.PasswordPolicy)
	}
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
