package store

import (
	"testing"
	"time"
)

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute, nil)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("verify session: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("expected subject user-1, got %q", uid)
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	signer, err := NewJWTSessionStore("secret-a", time.Minute, nil)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-b", time.Minute, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := signer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verifier.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected signature mismatch to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute, nil)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken("not.a.token"); err == nil || ok {
		t.Fatalf("expected malformed token to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsExpired(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute, nil)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	// Negative TTL beyond the leeway so the token is already expired.
	s.ttl = -2 * jwtLeeway
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected expired token to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRevokesOnDelete(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s, err := NewJWTSessionStore("test-secret", time.Minute, revoker)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected revoked token to fail, ok=%v err=%v", ok, err)
	}
	// A second session for the same user is unaffected.
	other, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(other); err != nil || !ok {
		t.Fatalf("fresh session should verify, ok=%v err=%v", ok, err)
	}
}
