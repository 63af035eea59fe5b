// Package report persists terminal review states and renders them for
// the terminal.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/revline/internal/extractor"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/stage"
	"github.com/tildaslashalef/revline/internal/ulid"
)

// Repository defines operations for storing and retrieving reviews
type Repository interface {
	// SaveReview persists a terminal review state with its stage results
	SaveReview(ctx context.Context, state *pipeline.ReviewState) error

	// GetReview retrieves a review by ID
	GetReview(ctx context.Context, id string) (*pipeline.ReviewState, error)

	// ListReviews retrieves recent reviews, newest first
	ListReviews(ctx context.Context, limit, offset int) ([]*pipeline.ReviewState, error)
}

// SQLRepository implements Repository using a SQL database
type SQLRepository struct {
	db     *sql.DB
	logger *loggy.Logger
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) *SQLRepository {
	return &SQLRepository{
		db:     db,
		logger: logger,
	}
}

// SaveReview persists a terminal review state with its stage results
func (r *SQLRepository) SaveReview(ctx context.Context, state *pipeline.ReviewState) error {
	if state.ID == "" {
		state.ID = ulid.ReviewID()
	}

	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = now
	}

	logJSON, err := json.Marshal(state.CheckpointLog)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint log: %w", err)
	}

	var contextValue interface{}
	if state.TargetBranchContext != nil {
		contextValue = *state.TargetBranchContext
	}

	// One review plus its stage results is a single logical record; the
	// inserts either all land or none do.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save review transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := r.insertReview(ctx, tx, state, contextValue, logJSON); err != nil {
		r.rollback(tx)
		return err
	}

	for _, name := range stage.Names() {
		result := state.StageResults[name]
		if result == nil {
			continue
		}
		if err := r.saveStageResult(ctx, tx, state.ID, name, result); err != nil {
			r.rollback(tx)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save review transaction: %w", err)
	}

	return nil
}

func (r *SQLRepository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		r.logger.Error("Failed to rollback save review transaction", "error", err)
	}
}

func (r *SQLRepository) insertReview(ctx context.Context, tx *sql.Tx, state *pipeline.ReviewState, contextValue interface{}, logJSON []byte) error {
	q := squirrel.Insert("reviews").
		Columns("id", "change_url", "repo_url", "title", "author", "source_branch", "target_branch",
			"status_message", "target_branch_context", "total_units", "checkpoint_log", "created_at", "updated_at").
		Values(state.ID, state.ChangeURL, state.RepoURL, state.Title, state.Author, state.SourceBranch, state.TargetBranch,
			state.StatusMessage, contextValue, state.TotalUnits, logJSON, state.CreatedAt, state.UpdatedAt)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building save review query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing save review query: %w", err)
	}

	return nil
}

func (r *SQLRepository) saveStageResult(ctx context.Context, tx *sql.Tx, reviewID string, name stage.Name, result *pipeline.StageResult) error {
	var findingsJSON []byte
	if len(result.Findings) > 0 {
		var err error
		findingsJSON, err = json.Marshal(result.Findings)
		if err != nil {
			return fmt.Errorf("marshaling findings for stage %s: %w", name, err)
		}
	}

	q := squirrel.Insert("stage_results").
		Columns("id", "review_id", "stage", "status", "summary", "error_message",
			"findings", "input_units", "output_units", "total_units", "created_at").
		Values(ulid.Generate(), reviewID, string(name), string(result.Status), result.Summary, result.ErrorMessage,
			findingsJSON, result.Usage.InputUnits, result.Usage.OutputUnits, result.Usage.TotalUnits, time.Now())

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building save stage result query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing save stage result query: %w", err)
	}

	return nil
}

// GetReview retrieves a review by ID
func (r *SQLRepository) GetReview(ctx context.Context, id string) (*pipeline.ReviewState, error) {
	q := squirrel.Select("id", "change_url", "repo_url", "title", "author", "source_branch", "target_branch",
		"status_message", "target_branch_context", "total_units", "checkpoint_log", "created_at", "updated_at").
		From("reviews").
		Where(squirrel.Eq{"id": id})

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get review query: %w", err)
	}

	state, err := r.scanReview(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("review not found: %s", id)
		}
		return nil, err
	}

	if err := r.loadStageResults(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

// ListReviews retrieves recent reviews, newest first. Stage results are
// not loaded; use GetReview for the full record.
func (r *SQLRepository) ListReviews(ctx context.Context, limit, offset int) ([]*pipeline.ReviewState, error) {
	if limit <= 0 {
		limit = 20
	}

	q := squirrel.Select("id", "change_url", "repo_url", "title", "author", "source_branch", "target_branch",
		"status_message", "target_branch_context", "total_units", "checkpoint_log", "created_at", "updated_at").
		From("reviews").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list reviews query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list reviews query: %w", err)
	}
	defer rows.Close()

	var states []*pipeline.ReviewState
	for rows.Next() {
		state, err := r.scanReview(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

// rowScanner abstracts sql.Row and sql.Rows for scanReview
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SQLRepository) scanReview(row rowScanner) (*pipeline.ReviewState, error) {
	state := &pipeline.ReviewState{
		StageResults:  make(map[stage.Name]*pipeline.StageResult),
		ResourceUsage: make(map[stage.Name]pipeline.Usage),
	}

	var branchContext sql.NullString
	var logJSON []byte

	err := row.Scan(&state.ID, &state.ChangeURL, &state.RepoURL, &state.Title, &state.Author,
		&state.SourceBranch, &state.TargetBranch, &state.StatusMessage, &branchContext,
		&state.TotalUnits, &logJSON, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if branchContext.Valid {
		value := branchContext.String
		state.TargetBranchContext = &value
	}
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &state.CheckpointLog); err != nil {
			return nil, fmt.Errorf("unmarshaling checkpoint log: %w", err)
		}
	}

	return state, nil
}

func (r *SQLRepository) loadStageResults(ctx context.Context, state *pipeline.ReviewState) error {
	q := squirrel.Select("stage", "status", "summary", "error_message", "findings",
		"input_units", "output_units", "total_units").
		From("stage_results").
		Where(squirrel.Eq{"review_id": state.ID})

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building load stage results query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing load stage results query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, status string
		var findingsJSON []byte
		result := &pipeline.StageResult{}

		err := rows.Scan(&name, &status, &result.Summary, &result.ErrorMessage, &findingsJSON,
			&result.Usage.InputUnits, &result.Usage.OutputUnits, &result.Usage.TotalUnits)
		if err != nil {
			return fmt.Errorf("scanning stage result: %w", err)
		}

		result.Status = pipeline.StageStatus(status)
		if len(findingsJSON) > 0 {
			var findings []extractor.Issue
			if err := json.Unmarshal(findingsJSON, &findings); err != nil {
				return fmt.Errorf("unmarshaling findings for stage %s: %w", name, err)
			}
			result.Findings = findings
		}

		stageName := stage.Name(name)
		state.StageResults[stageName] = result
		if result.Status == pipeline.StatusSuccess {
			state.ResourceUsage[stageName] = result.Usage
		}
	}

	return rows.Err()
}
