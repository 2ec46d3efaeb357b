package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

const (
	StorageFile    = "file"
	StorageKeyring = "keyring"

	defaultAPIURL = "http://localhost:8000"
)

// ErrNotSignedIn is returned by commands that need a session when the guard
// would have redirected to sign-in
var ErrNotSignedIn = errors.New("not signed in. Please run 'gradefresh login' first")

// Globals holds the persistent flags shared by every command
type Globals struct {
	StorageKind string
	APIURL      string
	Timeout     time.Duration

	// Store replaces the storage selected by StorageKind. Used by tests.
	Store session.Storage
}

// DefaultGlobals reads defaults from the environment
func DefaultGlobals() *Globals {
	apiURL := os.Getenv("GRADEFRESH_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Globals{
		StorageKind: StorageFile,
		APIURL:      apiURL,
		Timeout:     60 * time.Second,
	}
}

// Validate checks the persistent flags before any command runs
func (g *Globals) Validate() error {
	switch g.StorageKind {
	case StorageFile, StorageKeyring:
	default:
		return fmt.Errorf("unknown storage %q (use %s or %s)", g.StorageKind, StorageFile, StorageKeyring)
	}
	if g.APIURL == "" {
		return fmt.Errorf("API URL is empty (use --api-url flag or GRADEFRESH_API_URL env var)")
	}
	return nil
}

// Storage opens the session storage chosen with --storage
func (g *Globals) Storage() (session.Storage, error) {
	if g.Store != nil {
		return g.Store, nil
	}

	switch g.StorageKind {
	case StorageKeyring:
		return session.NewKeyringStorage(), nil
	case StorageFile, "":
		path, err := session.DefaultFilePath()
		if err != nil {
			return nil, err
		}
		return session.NewFileStorage(path), nil
	}
	return nil, fmt.Errorf("unknown storage %q", g.StorageKind)
}

// Client returns an API client for --api-url
func (g *Globals) Client() *apiclient.Client {
	return apiclient.New(g.APIURL, g.Timeout)
}

// requireSession runs the same guard as the protected web pages. The CLI
// cannot redirect, so a failed check becomes ErrNotSignedIn. A failed legacy
// key migration is reported on errOut and does not stop the command.
func requireSession(st session.Storage, errOut io.Writer) (*session.Session, error) {
	d := (&session.Guard{}).Check(st)
	if !d.Authorized() {
		return nil, ErrNotSignedIn
	}
	if d.NormalizeErr != nil {
		fmt.Fprintf(errOut, "Warning: failed to migrate legacy session keys: %v\n", d.NormalizeErr)
	}
	return d.Session, nil
}

// apiFailure signs the user out when the API rejects the stored token
func apiFailure(st session.Storage, action string, err error) error {
	if !apiclient.IsAuthFailure(err) {
		return fmt.Errorf("%s failed: %w", action, err)
	}
	if cerr := session.ClearSession(st); cerr != nil {
		return fmt.Errorf("%s failed: %w (clearing session: %v)", action, err, cerr)
	}
	return fmt.Errorf("%s failed: session rejected by the API, you have been signed out. Please run 'gradefresh login' again: %w", action, err)
}
