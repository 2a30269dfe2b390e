// Package postgres keeps a history of runs and their per-event outcomes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/djlord-it/easy-announce/internal/domain"
)

// ErrDuplicateRun is returned when a run with the same ID was already stored.
var ErrDuplicateRun = errors.New("postgres: run already recorded")

// Store implements orchestrator.History using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, querySchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordRun stores a run and its outcomes in one transaction.
// Returns ErrDuplicateRun if the run ID already exists.
func (s *Store) RecordRun(ctx context.Context, run domain.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sum := run.Summary
	_, err = tx.ExecContext(ctx, queryInsertRun,
		run.ID,
		run.GroupURL,
		run.StartedAt,
		run.FinishedAt,
		string(run.Result),
		run.FatalReason,
		run.Notified,
		sum.Processed,
		sum.Announced,
		sum.AlreadyAnnounced,
		sum.Skipped,
		sum.Failed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateRun
		}
		return err
	}

	for i, o := range run.Outcomes {
		var eventAt sql.NullTime
		if o.Date.ParseSucceeded {
			eventAt = sql.NullTime{Time: o.Date.Instant, Valid: true}
		}
		_, err := tx.ExecContext(ctx, queryInsertOutcome,
			run.ID,
			i,
			o.Event.URL,
			o.Event.RawDateText,
			eventAt,
			string(o.Kind),
			o.Reason,
			o.BannerVariant,
			o.ControlVariant,
		)
		if err != nil {
			return fmt.Errorf("insert outcome %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs for a group, newest first, with
// their outcomes.
func (s *Store) ListRuns(ctx context.Context, groupURL string, limit int) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListRuns, groupURL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var res string
		err := rows.Scan(
			&r.ID,
			&r.GroupURL,
			&r.StartedAt,
			&r.FinishedAt,
			&res,
			&r.FatalReason,
			&r.Notified,
			&r.Summary.Processed,
			&r.Summary.Announced,
			&r.Summary.AlreadyAnnounced,
			&r.Summary.Skipped,
			&r.Summary.Failed,
		)
		if err != nil {
			return nil, err
		}
		r.Result = domain.RunResult(res)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		outcomes, err := s.listOutcomes(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Outcomes = outcomes
		for _, o := range outcomes {
			if o.Kind == domain.OutcomeFailed {
				result[i].Summary.FailureDetails = append(result[i].Summary.FailureDetails, domain.FailureDetail{
					Date:   o.Event.RawDateText,
					URL:    o.Event.URL,
					Reason: o.Reason,
				})
			}
		}
	}
	return result, nil
}

func (s *Store) listOutcomes(ctx context.Context, runID uuid.UUID) ([]domain.AnnouncementOutcome, error) {
	rows, err := s.db.QueryContext(ctx, queryListOutcomes, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AnnouncementOutcome
	for rows.Next() {
		var (
			o       domain.AnnouncementOutcome
			eventAt sql.NullTime
			kind    string
		)
		err := rows.Scan(
			&o.Event.URL,
			&o.Event.RawDateText,
			&eventAt,
			&kind,
			&o.Reason,
			&o.BannerVariant,
			&o.ControlVariant,
		)
		if err != nil {
			return nil, err
		}
		o.Kind = domain.OutcomeKind(kind)
		o.Date = domain.ResolvedDate{SourceText: o.Event.RawDateText}
		if eventAt.Valid {
			o.Date.Instant = eventAt.Time
			o.Date.ParseSucceeded = true
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
