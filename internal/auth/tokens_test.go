package auth

import (
	"testing"
	"time"
)

func testIssuer() *Issuer {
	return NewIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
}

func TestIssuePairAndParse_Success(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()

	pair, err := issuer.IssuePair("user-123", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("access and refresh tokens must differ")
	}

	access, err := issuer.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess error: %v", err)
	}
	if access.Subject != "user-123" || access.Email != "alice@example.com" || access.Role != "user" {
		t.Fatalf("claims mismatch: %+v", access)
	}

	refresh, err := issuer.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh error: %v", err)
	}
	if refresh.Subject != "user-123" {
		t.Fatalf("subject mismatch: got %q", refresh.Subject)
	}
}

func TestParse_CrossSecretRejection(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()
	pair, err := issuer.IssuePair("u1", "a@b.c", "user")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	// An access token must not verify as a refresh token and vice
	// versa; the two classes use independent secrets.
	if _, err := issuer.ParseRefresh(pair.AccessToken); err == nil {
		t.Fatalf("expected error parsing access token as refresh")
	}
	if _, err := issuer.ParseAccess(pair.RefreshToken); err == nil {
		t.Fatalf("expected error parsing refresh token as access")
	}
}

func TestParseAccess_WrongSecret(t *testing.T) {
	t.Parallel()

	pair, err := testIssuer().IssuePair("u2", "a@b.c", "user")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	other := NewIssuer(TokenConfig{
		AccessSecret:  []byte("different-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	if _, err := other.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("expected error for mis-signed token, got nil")
	}
}

func TestParseAccess_Expired(t *testing.T) {
	t.Parallel()

	issuer := &Issuer{cfg: TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     -time.Minute,
		RefreshTTL:    time.Hour,
	}}

	pair, err := issuer.IssuePair("u3", "a@b.c", "user")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if _, err := issuer.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
}

func TestParseAccess_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := testIssuer().ParseAccess("not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}

func TestNewIssuer_DefaultTTLs(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(TokenConfig{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("r"),
	})
	if issuer.cfg.AccessTTL != DefaultAccessTTL {
		t.Fatalf("access TTL: got %v want %v", issuer.cfg.AccessTTL, DefaultAccessTTL)
	}
	if issuer.cfg.RefreshTTL != DefaultRefreshTTL {
		t.Fatalf("refresh TTL: got %v want %v", issuer.cfg.RefreshTTL, DefaultRefreshTTL)
	}
}
