package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/repository"
)

// SessionRepository implements voting.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.topic_id, s.proposer, s.deadline, s.created_at, s.closed, s.closed_at,
	s.final_result, s.tally_positive, s.tally_negative, s.tally_neutral, s.tally_abstention,
	(SELECT COUNT(*) FROM votes v WHERE v.voting_id = s.id)`

func (r *SessionRepository) Create(ctx context.Context, s *voting.Session) error {
	q := r.db.conn(ctx)
	id, err := nextID(ctx, q, "voting")
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO voting_sessions (id, topic_id, proposer, deadline, created_at, closed, final_result)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, int64(id), int64(s.TopicID), s.Proposer.Hex(), s.Deadline.UTC(), s.CreatedAt.UTC(), s.FinalResult.String())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: topic %d already has a session", repository.ErrConflict, s.TopicID)
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uint64) (*voting.Session, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM voting_sessions s WHERE s.id = ?`, int64(id))
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Close(ctx context.Context, s *voting.Session) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE voting_sessions SET
			closed = 1, closed_at = ?, final_result = ?,
			tally_positive = ?, tally_negative = ?, tally_neutral = ?, tally_abstention = ?
		WHERE id = ? AND closed = 0
	`,
		nullTime(s.ClosedAt),
		s.FinalResult.String(),
		s.Tally.Positive,
		s.Tally.Negative,
		s.Tally.Neutral,
		s.Tally.Abstention,
		int64(s.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
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

func (r *SessionRepository) List(ctx context.Context, opts voting.ListSessionsOptions) ([]voting.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM voting_sessions s`
	args := []any{}
	if opts.Closed != nil {
		query += " WHERE s.closed = ?"
		args = append(args, boolInt(*opts.Closed))
	}
	query += " ORDER BY s.id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []voting.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) LastID(ctx context.Context) (uint64, error) {
	return currentID(ctx, r.db.conn(ctx), "voting")
}

func (r *SessionRepository) AppendVote(ctx context.Context, v *voting.Vote) error {
	q := r.db.conn(ctx)
	var index int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE voting_id = ?`, int64(v.VotingID)).Scan(&index); err != nil {
		return fmt.Errorf("failed to count votes: %w", err)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO votes (voting_id, vote_index, voter, decision, description, opinative_value, cast_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		int64(v.VotingID),
		index,
		v.Voter.Hex(),
		v.Decision.String(),
		v.Description,
		v.OpinativeValueSuggestion,
		v.CastAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to append vote: %w", err)
	}
	v.Index = index
	return nil
}

const voteColumns = `voting_id, vote_index, voter, decision, description, opinative_value, cast_at`

func (r *SessionRepository) GetVote(ctx context.Context, votingID uint64, index int) (*voting.Vote, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+voteColumns+` FROM votes WHERE voting_id = ? AND vote_index = ?`, int64(votingID), index)
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return v, nil
}

func (r *SessionRepository) HasVoted(ctx context.Context, votingID uint64, voter common.Address) (bool, error) {
	var n int
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE voting_id = ? AND voter = ?`, int64(votingID), voter.Hex()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n > 0, nil
}

func (r *SessionRepository) ListVotes(ctx context.Context, votingID uint64) ([]voting.Vote, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT `+voteColumns+` FROM votes WHERE voting_id = ? ORDER BY vote_index`, int64(votingID))
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := []voting.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote rows: %w", err)
	}
	return votes, nil
}

func scanSession(row rowScanner) (*voting.Session, error) {
	var (
		s        voting.Session
		proposer string
		closed   int
		closedAt sql.NullTime
		result   string
	)
	if err := row.Scan(
		&s.ID,
		&s.TopicID,
		&proposer,
		&s.Deadline,
		&s.CreatedAt,
		&closed,
		&closedAt,
		&result,
		&s.Tally.Positive,
		&s.Tally.Negative,
		&s.Tally.Neutral,
		&s.Tally.Abstention,
		&s.VoteCount,
	); err != nil {
		return nil, err
	}
	decision, err := voting.ParseDecision(result)
	if err != nil {
		return nil, err
	}
	s.Proposer = common.HexToAddress(proposer)
	s.Deadline = s.Deadline.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.Closed = closed == 1
	s.ClosedAt = timePtr(closedAt)
	s.FinalResult = decision
	return &s, nil
}

func scanVote(row rowScanner) (*voting.Vote, error) {
	var (
		v        voting.Vote
		voter    string
		decision string
	)
	if err := row.Scan(
		&v.VotingID,
		&v.Index,
		&voter,
		&decision,
		&v.Description,
		&v.OpinativeValueSuggestion,
		&v.CastAt,
	); err != nil {
		return nil, err
	}
	d, err := voting.ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	v.Voter = common.HexToAddress(voter)
	v.Decision = d
	v.CastAt = v.CastAt.UTC()
	return &v, nil
}
