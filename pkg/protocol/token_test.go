package protocol

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewTokenAuthority()
	tok := auth.Issue("alice@10.0.0.2", time.Hour, ScopeChat)

	parsed, err := ParseToken(tok.String())
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}

	if parsed != tok {
		t.Errorf("round trip = %+v, want %+v", parsed, tok)
	}
}

func TestValidateReasons(t *testing.T) {
	auth := NewTokenAuthority()
	alice := UserID("alice@10.0.0.2")

	valid := auth.Issue(alice, time.Hour, ScopeChat).String()
	expired := Token{Subject: alice, Expiry: time.Now().Add(-time.Minute).Unix(), Scope: ScopeChat}.String()
	revoked := auth.Issue(alice, time.Hour, ScopeChat).String()
	auth.Revoke(revoked)

	tests := []struct {
		name    string
		raw     string
		scope   string
		sender  UserID
		wantErr error
	}{
		{"valid", valid, ScopeChat, alice, nil},
		{"malformed no separators", "gibberish", ScopeChat, alice, ErrTokenMalformed},
		{"malformed bad expiry", "alice@10.0.0.2|soon|chat", ScopeChat, alice, ErrTokenMalformed},
		{"owner mismatch", valid, ScopeChat, "mallory@10.0.0.9", ErrTokenOwnerMismatch},
		{"scope mismatch", valid, ScopeFollow, alice, ErrTokenScopeMismatch},
		{"scope is case sensitive", "alice@10.0.0.2|9999999999|Chat", ScopeChat, alice, ErrTokenScopeMismatch},
		{"expired", expired, ScopeChat, alice, ErrTokenExpired},
		{"revoked", revoked, ScopeChat, alice, ErrTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Validate(tt.raw, tt.scope, tt.sender)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRevocationIsSticky(t *testing.T) {
	auth := NewTokenAuthority()
	raw := auth.Issue("bob@10.0.0.3", time.Hour, ScopePost).String()

	if auth.IsRevoked(raw) {
		t.Error("IsRevoked() = true before Revoke()")
	}

	auth.Revoke(raw)
	auth.Revoke(raw) // idempotent

	if !auth.IsRevoked(raw) {
		t.Error("IsRevoked() = false after Revoke()")
	}
	if err := auth.Validate(raw, ScopePost, "bob@10.0.0.3"); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Validate() = %v, want ErrTokenRevoked", err)
	}
}

func TestIssueStampsExpiry(t *testing.T) {
	auth := NewTokenAuthority()
	before := time.Now().Add(5 * time.Minute).Unix()
	tok := auth.Issue("alice@10.0.0.2", 5*time.Minute, ScopeGame)
	after := time.Now().Add(5 * time.Minute).Unix()

	if tok.Expiry < before || tok.Expiry > after {
		t.Errorf("Issue() expiry = %d, want within [%d, %d]", tok.Expiry, before, after)
	}
	if tok.Scope != ScopeGame {
		t.Errorf("Issue() scope = %q, want %q", tok.Scope, ScopeGame)
	}
}
