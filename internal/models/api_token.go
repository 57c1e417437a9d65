package models

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/hkdf"
)

// APITokenPrefix marks plaintext API tokens so they can be told apart from
// JWT bearer credentials.
const APITokenPrefix = "frk_"

// APIToken is a long-lived bearer credential for scripts and integrations.
// Only an HMAC of the plaintext is stored.
type APIToken struct {
	ID         string       `db:"id" json:"id"`
	UserID     string       `db:"user_id" json:"-"`
	Name       string       `db:"name" json:"name"`
	TokenHash  string       `db:"token_hash" json:"-"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	LastUsedAt sql.NullTime `db:"last_used_at" json:"-"`
	ExpiresAt  sql.NullTime `db:"expires_at" json:"-"`
	Active     bool         `db:"is_active" json:"is_active"`
}

// IsExpired returns true if the token has an expiry date that has passed.
func (t *APIToken) IsExpired() bool {
	return t.ExpiresAt.Valid && t.ExpiresAt.Time.Before(now())
}

// TokenHasher derives the HMAC key once and hashes plaintext tokens with it.
type TokenHasher struct {
	key []byte
}

// NewTokenHasher derives a 32-byte HMAC key from secret using HKDF (RFC 5869).
func NewTokenHasher(secret string) (*TokenHasher, error) {
	if secret == "" {
		return nil, errors.New("models: token secret is empty")
	}
	h := hkdf.New(sha256.New, []byte(secret), []byte("fitrecs-api-tokens-v1"), []byte("hmac-sha256"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("models: derive token key: %w", err)
	}
	return &TokenHasher{key: key}, nil
}

// Hash returns the hex HMAC-SHA256 of a plaintext token.
func (h *TokenHasher) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateToken creates a cryptographically secure random hex string.
func generateToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("models: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

const apiTokenColumns = `id, user_id, name, token_hash, created_at, last_used_at, expires_at, is_active`

// CreateAPIToken generates a token for userID. expiresInDays <= 0 means no
// expiry. The plaintext is returned once and never stored.
func CreateAPIToken(db *sqlx.DB, h *TokenHasher, userID, name string, expiresInDays int) (*APIToken, string, error) {
	raw, err := generateToken(32) // 256-bit token
	if err != nil {
		return nil, "", err
	}
	plaintext := APITokenPrefix + raw

	t := &APIToken{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		TokenHash: h.Hash(plaintext),
		CreatedAt: now(),
		Active:    true,
	}
	if expiresInDays > 0 {
		t.ExpiresAt = sql.NullTime{Time: t.CreatedAt.AddDate(0, 0, expiresInDays), Valid: true}
	}

	_, err = db.NamedExec(
		`INSERT INTO api_tokens (`+apiTokenColumns+`)
		 VALUES (:id, :user_id, :name, :token_hash, :created_at, :last_used_at, :expires_at, :is_active)`, t)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", fmt.Errorf("models: create api token: hash collision: %w", err)
		}
		return nil, "", fmt.Errorf("models: create api token for user %s: %w", userID, err)
	}
	return t, plaintext, nil
}

// AuthenticateAPIToken resolves a plaintext token to its row and records
// the use. Returns ErrNotFound if the token is unknown, revoked or expired.
func AuthenticateAPIToken(db *sqlx.DB, h *TokenHasher, plaintext string) (*APIToken, error) {
	if !strings.HasPrefix(plaintext, APITokenPrefix) {
		return nil, ErrNotFound
	}

	t := &APIToken{}
	err := db.Get(t, db.Rebind(
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE token_hash = ?`), h.Hash(plaintext))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: authenticate api token: %w", err)
	}
	if !t.Active || t.IsExpired() {
		return nil, ErrNotFound
	}

	ts := now()
	if _, err := db.Exec(db.Rebind(`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`), ts, t.ID); err != nil {
		return nil, fmt.Errorf("models: touch api token %s: %w", t.ID, err)
	}
	t.LastUsedAt = sql.NullTime{Time: ts, Valid: true}
	return t, nil
}

// ListAPITokens returns a user's tokens, newest first.
func ListAPITokens(db *sqlx.DB, userID string) ([]*APIToken, error) {
	var tokens []*APIToken
	err := db.Select(&tokens, db.Rebind(
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("models: list api tokens for user %s: %w", userID, err)
	}
	return tokens, nil
}

// RevokeAPIToken deactivates a token owned by userID. The row is kept.
func RevokeAPIToken(db *sqlx.DB, userID, id string) error {
	result, err := db.Exec(db.Rebind(
		`UPDATE api_tokens SET is_active = ? WHERE id = ? AND user_id = ?`), false, id, userID)
	if err != nil {
		return fmt.Errorf("models: revoke api token %s: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIToken removes a token owned by userID.
func DeleteAPIToken(db *sqlx.DB, userID, id string) error {
	result, err := db.Exec(db.Rebind(`DELETE FROM api_tokens WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("models: delete api token %s: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneExpiredAPITokens deletes tokens whose expiry is before cutoff and
// returns how many were removed.
func PruneExpiredAPITokens(db *sqlx.DB, cutoff time.Time) (int64, error) {
	result, err := db.Exec(db.Rebind(
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("models: prune expired api tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
