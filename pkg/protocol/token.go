package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/crypto"
)

var (
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenOwnerMismatch = errors.New("token owner mismatch")
	ErrTokenScopeMismatch = errors.New("token scope mismatch")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Token is a scoped, time-limited capability claim. It carries no
// signature: validity is a matter of convention between peers, not proof
// of identity.
type Token struct {
	Subject UserID // who the token authorizes
	Expiry  int64  // epoch seconds
	Scope   string // action class: "follow", "post", "chat", "game"
}

// String serializes the token as "subject|expiry|scope".
func (t Token) String() string {
	return fmt.Sprintf("%s|%d|%s", t.Subject, t.Expiry, t.Scope)
}

// ParseToken parses the "subject|expiry|scope" form.
func ParseToken(raw string) (Token, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return Token{}, ErrTokenMalformed
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, ErrTokenMalformed
	}
	return Token{Subject: UserID(parts[0]), Expiry: expiry, Scope: parts[2]}, nil
}

// TokenAuthority issues and validates tokens and holds the process-wide
// revocation set. Revocation is append-only; revoked entries are never
// swept since tokens self-expire.
type TokenAuthority struct {
	mu      sync.RWMutex
	revoked map[string]struct{} // keyed by BLAKE2b hash of the raw token
}

// NewTokenAuthority creates an empty authority.
func NewTokenAuthority() *TokenAuthority {
	return &TokenAuthority{revoked: make(map[string]struct{})}
}

// Issue creates a fresh token for subject, expiring ttl from now.
func (a *TokenAuthority) Issue(subject UserID, ttl time.Duration, scope string) Token {
	return Token{
		Subject: subject,
		Expiry:  time.Now().Add(ttl).Unix(),
		Scope:   scope,
	}
}

// Revoke adds a raw token to the revocation set.
func (a *TokenAuthority) Revoke(raw string) {
	key := crypto.HashString([]byte(raw))
	a.mu.Lock()
	a.revoked[key] = struct{}{}
	a.mu.Unlock()
}

// IsRevoked reports whether a raw token has been revoked.
func (a *TokenAuthority) IsRevoked(raw string) bool {
	key := crypto.HashString([]byte(raw))
	a.mu.RLock()
	_, ok := a.revoked[key]
	a.mu.RUnlock()
	return ok
}

// Validate checks a raw token against the expected scope and the claimed
// sender. Exactly one failure reason is reported: malformed, owner
// mismatch, scope mismatch, expired, or revoked, checked in that order.
func (a *TokenAuthority) Validate(raw, expectedScope string, claimedSender UserID) error {
	tok, err := ParseToken(raw)
	if err != nil {
		return err
	}
	if tok.Subject != claimedSender {
		return ErrTokenOwnerMismatch
	}
	if tok.Scope != expectedScope {
		return ErrTokenScopeMismatch
	}
	if time.Now().Unix() > tok.Expiry {
		return ErrTokenExpired
	}
	if a.IsRevoked(raw) {
		return ErrTokenRevoked
	}
	return nil
}
