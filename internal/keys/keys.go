// Package keys loads the RSA key pair used for session token encryption.
// Key material is read once at startup and is immutable for the process
// lifetime; replacing keys requires a restart.
package keys

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Material holds the parsed key pair. Safe for unsynchronized concurrent
// reads after construction.
type Material struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// Load reads and parses both PEM files. Any failure is returned as-is so the
// caller can treat it as fatal: a service with no usable keys cannot safely
// authenticate anyone, and retrying will not change what is on disk.
func Load(privateKeyPath, publicKeyPath string) (*Material, error) {
	if privateKeyPath == "" || publicKeyPath == "" {
		return nil, errors.New("private and public key paths must be configured")
	}

	privateBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key file %q: %w", privateKeyPath, err)
	}
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privateBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key from PEM: %w", err)
	}

	publicBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key file %q: %w", publicKeyPath, err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(publicBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key from PEM: %w", err)
	}

	return &Material{private: private, public: public}, nil
}

// Private returns the decryption key.
func (m *Material) Private() *rsa.PrivateKey { return m.private }

// Public returns the encryption key.
func (m *Material) Public() *rsa.PublicKey { return m.public }
