// Package session holds the visitor's cached credential: a bearer token
// plus the user record returned at sign-in.
//
// The credential lives in client-held storage (browser cookies for the web
// frontend, a file or the OS keyring for the CLI). Two key pairs exist for
// historical reasons: the primary pair access_token/user and the legacy
// admin pair admin_token/admin_user. Reads accept either pair; writes only
// ever touch the primary pair.
//
// Nothing in this package is a security boundary. Storage is controlled by
// the client, so the API must still enforce identity and role on every call.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
	KeyAdminToken  = "admin_token"
	KeyAdminUser   = "admin_user"
)

// AllKeys lists every storage key that can hold part of a session
var AllKeys = []string{KeyAccessToken, KeyUser, KeyAdminToken, KeyAdminUser}

var (
	ErrNoSession     = errors.New("no session")
	ErrMalformedUser = errors.New("malformed user record")
)

// Role is the user's account type as reported by the API
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleExporter  Role = "exporter"
	RoleImporter  Role = "importer"
	RoleInspector Role = "inspector"
)

// Roles offered on the registration form. Admin accounts are never self-registered.
var RegistrableRoles = []Role{RoleExporter, RoleImporter, RoleInspector}

// Normalize folds the plural spellings the API stores ("exporters") to the
// singular form. Matching is exact: "Admin", "ADMIN" and "admins" are not
// the admin role.
func (r Role) Normalize() Role {
	switch r {
	case "exporters":
		return RoleExporter
	case "importers":
		return RoleImporter
	case "inspectors":
		return RoleInspector
	}
	return r
}

// Plural returns the spelling the API expects on registration
func (r Role) Plural() string {
	n := r.Normalize()
	if n == RoleAdmin || n == "" {
		return string(n)
	}
	return string(n) + "s"
}

// Is reports whether two roles are equal after normalization
func (r Role) Is(other Role) bool {
	return r.Normalize() == other.Normalize()
}

// ParseRole validates a role typed by a person. Unlike Is it ignores case
// and surrounding spaces.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s))).Normalize()
	switch r {
	case RoleAdmin, RoleExporter, RoleImporter, RoleInspector:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is the identity cached next to the token
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// IsAdmin reports whether the cached role is admin
func (u User) IsAdmin() bool {
	return u.Role.Is(RoleAdmin)
}

// Session is a bearer token and the user it was issued to
type Session struct {
	Token string
	User  User
}

// lookup returns the first populated value among keys
func lookup(st Storage, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := st.Get(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// GetSession reads the session, preferring the primary key pair.
// It returns ErrNoSession when either half is missing and an error wrapping
// ErrMalformedUser when the user record is not a JSON object.
func GetSession(st Storage) (*Session, error) {
	token, ok := lookup(st, KeyAccessToken, KeyAdminToken)
	if !ok {
		return nil, ErrNoSession
	}
	raw, ok := lookup(st, KeyUser, KeyAdminUser)
	if !ok {
		return nil, ErrNoSession
	}

	var user *User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedUser)
	}

	return &Session{Token: token, User: *user}, nil
}

// SetSession stores s under the primary keys and drops any legacy keys
func SetSession(st Storage, s *Session) error {
	if s == nil || s.Token == "" {
		return fmt.Errorf("set session: empty token")
	}

	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := st.Set(KeyAccessToken, s.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := st.Set(KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}

	return errors.Join(st.Remove(KeyAdminToken), st.Remove(KeyAdminUser))
}

// ClearSession removes all four keys. Every key is attempted even if an
// earlier removal fails.
func ClearSession(st Storage) error {
	var errs []error
	for _, k := range AllKeys {
		if err := st.Remove(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Normalize copies legacy values into empty primary keys. Running it twice
// changes nothing the second time, and the legacy keys are never written.
func Normalize(st Storage) (bool, error) {
	changed := false
	pairs := [][2]string{
		{KeyAccessToken, KeyAdminToken},
		{KeyUser, KeyAdminUser},
	}

	for _, p := range pairs {
		primary, legacy := p[0], p[1]
		if v, ok := st.Get(primary); ok && v != "" {
			continue
		}
		v, ok := st.Get(legacy)
		if !ok || v == "" {
			continue
		}
		if err := st.Set(primary, v); err != nil {
			return changed, fmt.Errorf("copy %s to %s: %w", legacy, primary, err)
		}
		changed = true
	}

	return changed, nil
}
