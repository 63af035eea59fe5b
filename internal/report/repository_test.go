package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/extractor"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/stage"
)

func sampleState() *pipeline.ReviewState {
	branchContext := "Target branch main (1 context files)\n- main.go"
	state := &pipeline.ReviewState{
		ID:                  "rev-01TEST",
		ChangeURL:           "https://github.com/acme/widgets/pull/7",
		RepoURL:             "https://github.com/acme/widgets",
		Title:               "Add login endpoint",
		Author:              "dev",
		SourceBranch:        "feature/login",
		TargetBranch:        "main",
		StatusMessage:       "Review completed successfully",
		TargetBranchContext: &branchContext,
		StageResults:        map[stage.Name]*pipeline.StageResult{},
		ResourceUsage:       map[stage.Name]pipeline.Usage{},
		CheckpointLog:       []string{"Fetched change: Add login endpoint"},
		TotalUnits:          150,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}

	for _, name := range stage.Names() {
		state.StageResults[name] = &pipeline.StageResult{Status: pipeline.StatusSuccess}
	}
	state.StageResults[stage.Security].Findings = []extractor.Issue{
		{Type: "security", Severity: "high", Title: "Token in query string"},
	}
	state.StageResults[stage.Style].Status = pipeline.StatusSkipped
	state.StageResults[stage.Style].Summary = "Skipped: Stage disabled by user"

	return state
}

func TestSaveReview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, loggy.NewNoopLogger())
	state := sampleState()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(1, 1))
	for range stage.Names() {
		mock.ExpectExec("INSERT INTO stage_results").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.SaveReview(context.Background(), state))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReviewRollsBackOnStageInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, loggy.NewNoopLogger())
	state := sampleState()

	// The review row and the first stage row land, the second stage row
	// errors; nothing may stay committed.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO stage_results").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO stage_results").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = repo.SaveReview(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, loggy.NewNoopLogger())

	logJSON, err := json.Marshal([]string{"Fetched change: Add login endpoint"})
	require.NoError(t, err)
	findingsJSON, err := json.Marshal([]extractor.Issue{
		{Type: "security", Severity: "high", Title: "Token in query string"},
	})
	require.NoError(t, err)

	now := time.Now()
	reviewRows := sqlmock.NewRows([]string{
		"id", "change_url", "repo_url", "title", "author", "source_branch", "target_branch",
		"status_message", "target_branch_context", "total_units", "checkpoint_log", "created_at", "updated_at",
	}).AddRow("rev-01TEST", "https://github.com/acme/widgets/pull/7", "https://github.com/acme/widgets",
		"Add login endpoint", "dev", "feature/login", "main",
		"Review completed successfully", nil, 150, logJSON, now, now)

	stageRows := sqlmock.NewRows([]string{
		"stage", "status", "summary", "error_message", "findings",
		"input_units", "output_units", "total_units",
	}).AddRow("security", "success", "One issue found.", "", findingsJSON, 100, 50, 150).
		AddRow("style", "skipped", "Skipped: Stage disabled by user", "", nil, 0, 0, 0)

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE").
		WillReturnRows(reviewRows)
	mock.ExpectQuery("SELECT .+ FROM stage_results WHERE").
		WillReturnRows(stageRows)

	state, err := repo.GetReview(context.Background(), "rev-01TEST")
	require.NoError(t, err)

	assert.Equal(t, "Add login endpoint", state.Title)
	assert.Nil(t, state.TargetBranchContext)
	assert.Equal(t, []string{"Fetched change: Add login endpoint"}, state.CheckpointLog)

	security := state.StageResults[stage.Security]
	require.NotNil(t, security)
	assert.Equal(t, pipeline.StatusSuccess, security.Status)
	require.Len(t, security.Findings, 1)
	assert.Equal(t, "Token in query string", security.Findings[0].Title)

	// Only success stages carry usage
	_, hasSecurity := state.ResourceUsage[stage.Security]
	_, hasStyle := state.ResourceUsage[stage.Style]
	assert.True(t, hasSecurity)
	assert.False(t, hasStyle)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReviews(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, loggy.NewNoopLogger())

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "change_url", "repo_url", "title", "author", "source_branch", "target_branch",
		"status_message", "target_branch_context", "total_units", "checkpoint_log", "created_at", "updated_at",
	}).
		AddRow("rev-02", "u2", "r2", "Second", "dev", "", "", "Review completed successfully", nil, 10, nil, now, now).
		AddRow("rev-01", "u1", "r1", "First", "dev", "", "", "Review completed successfully", "ctx", 20, nil, now, now)

	mock.ExpectQuery("SELECT .+ FROM reviews ORDER BY created_at DESC").
		WillReturnRows(rows)

	states, err := repo.ListReviews(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "rev-02", states[0].ID)
	require.NotNil(t, states[1].TargetBranchContext)
	assert.Equal(t, "ctx", *states[1].TargetBranchContext)

	assert.NoError(t, mock.ExpectationsWereMet())
}
