package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidUserID = errors.New("invalid user id")

// UserID identifies a peer as "name@host". The host part is the peer's
// IPv4 address on the local segment; all peers listen on DefaultPort.
type UserID string

// NewUserID formats a user id from its parts.
func NewUserID(name, host string) UserID {
	return UserID(name + "@" + host)
}

// ParseUserID validates an id and splits it into name and host.
func ParseUserID(s string) (name, host string, err error) {
	name, host, ok := strings.Cut(s, "@")
	if !ok || name == "" || host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return name, host, nil
}

// Name returns the display part of the id ("alice" of "alice@10.0.0.2").
func (u UserID) Name() string {
	name, _, err := ParseUserID(string(u))
	if err != nil {
		return string(u)
	}
	return name
}

// Host returns the address part of the id.
func (u UserID) Host() string {
	_, host, err := ParseUserID(string(u))
	if err != nil {
		return ""
	}
	return host
}

func (u UserID) String() string { return string(u) }
