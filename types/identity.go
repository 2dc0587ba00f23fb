package types

import (
	"errors"
	"strings"
	"unicode"
)

// MaxIdentityLength bounds the size of an Identity.
const MaxIdentityLength = 256

// Identity is an opaque caller reference such as an account or address.
// Only equality is meaningful.
type Identity string

// Nobody is the empty identity.
const Nobody Identity = ""

// ParseIdentity validates s and returns it as an Identity.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Nobody, errors.New("identity: empty")
	case len(s) > MaxIdentityLength:
		return Nobody, errors.New("identity: too long")
	case strings.IndexFunc(s, unicode.IsControl) >= 0:
		return Nobody, errors.New("identity: contains control characters")
	}
	return Identity(s), nil
}

// String implements fmt.Stringer.
func (i Identity) String() string { return string(i) }

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool { return i == Nobody }
