package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testHasher(t testing.TB) *TokenHasher {
	t.Helper()
	h, err := NewTokenHasher("test-secret")
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestNewTokenHasher(t *testing.T) {
	if _, err := NewTokenHasher(""); err == nil {
		t.Error("expected error for empty secret")
	}

	a := testHasher(t)
	b, _ := NewTokenHasher("other-secret")
	if a.Hash("frk_x") == b.Hash("frk_x") {
		t.Error("different secrets should yield different hashes")
	}
	if a.Hash("frk_x") != a.Hash("frk_x") {
		t.Error("hash should be deterministic")
	}
}

func TestCreateAPIToken(t *testing.T) {
	db := testDB(t)
	h := testHasher(t)

	tok, plaintext, err := CreateAPIToken(db, h, "u1", "push-up tracker", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(plaintext, APITokenPrefix) {
		t.Errorf("plaintext %q missing prefix", plaintext)
	}
	if len(plaintext) != len(APITokenPrefix)+64 {
		t.Errorf("plaintext length = %d", len(plaintext))
	}
	if tok.TokenHash == plaintext || strings.Contains(tok.TokenHash, plaintext) {
		t.Error("plaintext must not be stored")
	}
	if tok.ExpiresAt.Valid {
		t.Error("expires_at should be null for no-expiry token")
	}

	_, plaintext2, _ := CreateAPIToken(db, h, "u1", "second", 30)
	if plaintext == plaintext2 {
		t.Error("tokens should be unique")
	}
}

func TestAuthenticateAPIToken(t *testing.T) {
	db := testDB(t)
	h := testHasher(t)

	tok, plaintext, _ := CreateAPIToken(db, h, "u1", "script", 0)

	t.Run("valid", func(t *testing.T) {
		got, err := AuthenticateAPIToken(db, h, plaintext)
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if got.UserID != "u1" || got.ID != tok.ID {
			t.Errorf("got %+v", got)
		}
		if !got.LastUsedAt.Valid {
			t.Error("last_used_at should be set after use")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := AuthenticateAPIToken(db, h, APITokenPrefix+"deadbeef"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("wrong prefix", func(t *testing.T) {
		if _, err := AuthenticateAPIToken(db, h, "eyJhbGciOi"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		_, p, _ := CreateAPIToken(db, h, "u1", "revoke me", 0)
		list, _ := ListAPITokens(db, "u1")
		var id string
		for _, tk := range list {
			if tk.Name == "revoke me" {
				id = tk.ID
			}
		}
		if err := RevokeAPIToken(db, "u1", id); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if _, err := AuthenticateAPIToken(db, h, p); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		orig := now
		now = func() time.Time { return time.Now().UTC().AddDate(0, 0, -10) }
		_, p, err := CreateAPIToken(db, h, "u1", "old", 1)
		now = orig
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := AuthenticateAPIToken(db, h, p); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteAPIToken_OwnerScoped(t *testing.T) {
	db := testDB(t)
	h := testHasher(t)
	tok, _, _ := CreateAPIToken(db, h, "u1", "mine", 0)

	if err := DeleteAPIToken(db, "u2", tok.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user delete err = %v, want ErrNotFound", err)
	}
	if err := RevokeAPIToken(db, "u2", tok.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user revoke err = %v, want ErrNotFound", err)
	}
	if err := DeleteAPIToken(db, "u1", tok.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestPruneExpiredAPITokens(t *testing.T) {
	db := testDB(t)
	h := testHasher(t)

	orig := now
	now = func() time.Time { return time.Now().UTC().AddDate(0, 0, -10) }
	CreateAPIToken(db, h, "u1", "expired", 1)
	now = orig

	CreateAPIToken(db, h, "u1", "fresh", 30)
	CreateAPIToken(db, h, "u1", "forever", 0)

	n, err := PruneExpiredAPITokens(db, time.Now())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	list, _ := ListAPITokens(db, "u1")
	if len(list) != 2 {
		t.Errorf("remaining = %d, want 2", len(list))
	}
}
