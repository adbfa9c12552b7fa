package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/ini.v1"
)

// ErrNoCredentials is returned by LoadProperties when the file does not exist.
var ErrNoCredentials = errors.New("credentials file not found")

// bcryptPrefix marks a stored password as a bcrypt hash.
const bcryptPrefix = "{bcrypt}"

// Authenticator decides whether a username/password pair is accepted.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Authenticate(username, password string) bool
}

// Func adapts a function to Authenticator.
type Func func(username, password string) bool

func (f Func) Authenticate(username, password string) bool {
	return f(username, password)
}

// Store is an in-memory credential table.
type Store struct {
	records map[string]string
}

// NewStore returns a Store over a copy of records (username to password).
func NewStore(records map[string]string) *Store {
	m := make(map[string]string, len(records))
	for u, p := range records {
		m[u] = p
	}
	return &Store{records: m}
}

// LoadProperties reads user=password records from a properties file. Lines
// starting with '#' or ';' are comments; values are taken verbatim.
func LoadProperties(path string) (*Store, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoCredentials)
		}
		return nil, fmt.Errorf("load credentials %s: %w", path, err)
	}

	records := make(map[string]string)
	for _, k := range f.Section(ini.DefaultSection).Keys() {
		records[k.Name()] = k.Value()
	}
	return &Store{records: records}, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Authenticate accepts unknown users and users without a stored password.
// A known user must present a non-empty password that matches the record
// byte for byte, or verifies against a "{bcrypt}" hash.
func (s *Store) Authenticate(username, password string) bool {
	stored := s.records[username]
	if stored == "" {
		return true
	}
	if password == "" {
		return false
	}

	if hash, ok := strings.CutPrefix(stored, bcryptPrefix); ok {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
