package auth

import (
	"context"
	"crypto/subtle"
	"os"
	"strings"

	dErrors "identra/pkg/domain-errors"
)

// StaticVerifier is an in-memory credential check seeded from configuration.
// It exists for development and tests; production deployments inject a real
// verifier backed by the user service.
type StaticVerifier struct {
	users map[string]seededUser
}

type seededUser struct {
	user     User
	password string
}

// VerifierFromEnv builds a static verifier from IDENTRA_USERS, formatted as
// semicolon-separated "id:email:role:password" records. An empty or malformed
// variable yields a verifier that denies everyone.
func VerifierFromEnv() *StaticVerifier {
	v := &StaticVerifier{users: make(map[string]seededUser)}

	raw := os.Getenv("IDENTRA_USERS")
	if raw == "" {
		return v
	}

	for _, record := range strings.Split(raw, ";") {
		parts := strings.SplitN(record, ":", 4)
		if len(parts) != 4 {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(parts[1]))
		v.users[email] = seededUser{
			user: User{
				ID:    strings.TrimSpace(parts[0]),
				Email: email,
				Role:  strings.TrimSpace(parts[2]),
			},
			password: parts[3],
		}
	}
	return v
}

// VerifyCredentials checks the password for the given email.
func (v *StaticVerifier) VerifyCredentials(_ context.Context, email, password string) (*User, error) {
	seeded, ok := v.users[strings.ToLower(email)]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if subtle.ConstantTimeCompare([]byte(seeded.password), []byte(password)) != 1 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	user := seeded.user
	return &user, nil
}
