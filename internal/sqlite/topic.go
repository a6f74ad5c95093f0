package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/repository"
)

// TopicRepository implements topic.Repository for SQLite
type TopicRepository struct {
	db *DB
}

func NewTopicRepository(db *DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const topicColumns = `id, proposer, subject, objective, description, suggested_value,
	status, denial_remark, voting_id, created_at, closed_at`

func (r *TopicRepository) Create(ctx context.Context, t *topic.Topic) error {
	q := r.db.conn(ctx)
	id, err := nextID(ctx, q, "topic")
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO topics (`+topicColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(id),
		t.Proposer.Hex(),
		int(t.Subject),
		t.Objective,
		t.Description,
		t.SuggestedValue,
		string(t.Status),
		t.DenialRemark,
		nullID(t.VotingID),
		t.CreatedAt.UTC(),
		nullTime(t.ClosedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create topic: %w", err)
	}
	t.ID = id
	return nil
}

func (r *TopicRepository) Get(ctx context.Context, id uint64) (*topic.Topic, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, int64(id))
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return t, nil
}

func (r *TopicRepository) Update(ctx context.Context, t *topic.Topic) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE topics SET status = ?, denial_remark = ?, voting_id = ?, closed_at = ?
		WHERE id = ?
	`, string(t.Status), t.DenialRemark, nullID(t.VotingID), nullTime(t.ClosedAt), int64(t.ID))
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TopicRepository) List(ctx context.Context, opts topic.ListOptions) ([]topic.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics`
	args := []any{}
	conditions := []string{}

	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.Proposer != nil {
		conditions = append(conditions, "proposer = ?")
		args = append(args, opts.Proposer.Hex())
	}
	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}
	query += " ORDER BY id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	topics := []topic.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}
	return topics, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*topic.Topic, error) {
	var (
		t        topic.Topic
		proposer string
		subject  int
		status   string
		votingID sql.NullInt64
		closedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID,
		&proposer,
		&subject,
		&t.Objective,
		&t.Description,
		&t.SuggestedValue,
		&status,
		&t.DenialRemark,
		&votingID,
		&t.CreatedAt,
		&closedAt,
	); err != nil {
		return nil, err
	}
	t.Proposer = common.HexToAddress(proposer)
	t.Subject = topic.Subject(subject)
	t.Status = topic.Status(status)
	if votingID.Valid {
		t.VotingID = uint64(votingID.Int64)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.ClosedAt = timePtr(closedAt)
	return &t, nil
}

func nullID(id uint64) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}
