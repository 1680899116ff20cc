package model

// Identity is the acting user of a session.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
}

// IdentityProvider yields the acting user. It is read-only to this module.
type IdentityProvider interface {
	Identity() (Identity, error)
}

// StaticIdentity is an IdentityProvider that always returns the same user.
// The zero value is a logged-out session.
type StaticIdentity Identity

func (s StaticIdentity) Identity() (Identity, error) {
	if s.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity(s), nil
}
