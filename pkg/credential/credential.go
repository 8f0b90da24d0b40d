package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rento-fleet/fleet-tracker/pkg/file"
)

// ManagerInterface defines access to the session's stream credential.
type ManagerInterface interface {
	Load() error
	Token() string
	IsValid() bool
}

// Manager loads the stream credential from a token file. A missing or
// empty file is not an error; it simply yields an unauthenticated
// session, which the stream service surfaces as a status.
type Manager struct {
	TokenFilePath string
	token         string
	fileOps       file.FileOperations
}

// NewManager initializes a new credential Manager.
func NewManager(tokenFilePath string, fileOps file.FileOperations) *Manager {
	return &Manager{
		TokenFilePath: tokenFilePath,
		fileOps:       fileOps,
	}
}

// Load reads the credential token from the file. A nonexistent file
// leaves the token empty.
func (m *Manager) Load() error {
	if m.TokenFilePath == "" {
		m.token = ""
		return nil
	}

	exists, err := m.fileOps.IsFileExists(m.TokenFilePath)
	if err != nil {
		return err
	}
	if !exists {
		m.token = ""
		return nil
	}

	token, err := m.fileOps.ReadTrimmed(m.TokenFilePath)
	if err != nil {
		return err
	}
	m.token = token
	return nil
}

// Token returns the raw credential token, possibly empty.
func (m *Manager) Token() string {
	return m.token
}

// IsValid reports whether the credential can authenticate a stream
// session. JWT tokens are checked for expiry without signature
// verification (the broker verifies the signature); opaque tokens are
// taken at face value.
func (m *Manager) IsValid() bool {
	if m.token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(m.token, claims); err != nil {
		// Not a JWT; treat as an opaque credential.
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}
