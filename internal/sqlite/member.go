package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/domain/member"
)

// MemberRepository implements member.Repository for SQLite
type MemberRepository struct {
	db *DB
}

func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) SetTrusted(ctx context.Context, m *member.Member) (bool, error) {
	q := r.db.conn(ctx)

	var current int
	err := q.QueryRowContext(ctx, `SELECT trusted FROM members WHERE address = ?`, m.Address.Hex()).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !m.Trusted {
			return false, nil
		}
	case err != nil:
		return false, fmt.Errorf("failed to load member: %w", err)
	default:
		if (current == 1) == m.Trusted {
			return false, nil
		}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO members (address, trusted, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET trusted = excluded.trusted, updated_at = excluded.updated_at
	`, m.Address.Hex(), boolInt(m.Trusted), m.UpdatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to save member: %w", err)
	}
	return true, nil
}

func (r *MemberRepository) IsTrusted(ctx context.Context, addr common.Address) (bool, error) {
	var trusted int
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT trusted FROM members WHERE address = ?`, addr.Hex()).Scan(&trusted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check member: %w", err)
	}
	return trusted == 1, nil
}

func (r *MemberRepository) List(ctx context.Context) ([]member.Member, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT address, trusted, updated_at FROM members WHERE trusted = 1 ORDER BY address
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []member.Member{}
	for rows.Next() {
		var (
			m       member.Member
			address string
			trusted int
		)
		if err := rows.Scan(&address, &trusted, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Address = common.HexToAddress(address)
		m.Trusted = trusted == 1
		m.UpdatedAt = m.UpdatedAt.UTC()
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}
