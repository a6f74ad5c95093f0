package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/repository"
)

// APIKeyRepository maps bearer tokens to identities. Only SHA-256 hashes
// of tokens are stored.
type APIKeyRepository struct {
	db *DB
}

func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the stored form of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *APIKeyRepository) Add(ctx context.Context, token string, identity common.Address, description string) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO api_keys (token_hash, identity, description, created_at) VALUES (?, ?, ?, ?)
	`, HashToken(token), identity.Hex(), description, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveIdentity returns the identity bound to token and stamps last use.
func (r *APIKeyRepository) ResolveIdentity(ctx context.Context, token string) (common.Address, error) {
	hash := HashToken(token)
	q := r.db.conn(ctx)

	var identity string
	err := q.QueryRowContext(ctx, `SELECT identity FROM api_keys WHERE token_hash = ?`, hash).Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, repository.ErrNotFound
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve api key: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE token_hash = ?`, time.Now().UTC(), hash); err != nil {
		return common.Address{}, fmt.Errorf("failed to stamp api key: %w", err)
	}
	return common.HexToAddress(identity), nil
}

// Revoke deletes every key bound to identity and returns how many were removed.
func (r *APIKeyRepository) Revoke(ctx context.Context, identity common.Address) (int64, error) {
	result, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM api_keys WHERE identity = ?`, identity.Hex())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke api keys: %w", err)
	}
	return result.RowsAffected()
}
