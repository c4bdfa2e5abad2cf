package domain

import "strings"

// Identity names a principal (student or organization). The HTTP layer trusts it
// as already authenticated.
type Identity string

func (i Identity) String() string {
	return string(i)
}

// ParseIdentity normalises a raw identity handle. Handles are email-shaped, so
// they compare case-insensitively.
func ParseIdentity(raw string) (Identity, error) {
	id := Identity(strings.ToLower(strings.TrimSpace(raw)))
	if id == "" {
		return "", ErrMissingIdentity
	}
	return id, nil
}

// OrderedPair returns a and b in canonical order (low, high) so an unordered
// pair always maps to the same key.
func OrderedPair(a, b Identity) (Identity, Identity) {
	if a > b {
		return b, a
	}
	return a, b
}
