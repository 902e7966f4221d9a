package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/store"
	"github.com/kiranshivaraju/shortforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(createdAt time.Time) *models.Job {
	return &models.Job{
		ID:        uuid.New(),
		Topic:     "planting a tree",
		Duration:  30,
		Mode:      models.ModeFinal,
		Status:    models.JobStatusPending,
		Progress:  "queued",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func advanceTo(t *testing.T, s store.JobStore, id uuid.UUID, statuses ...string) {
	t.Helper()
	for _, st := range statuses {
		require.NoError(t, s.UpdateJob(context.Background(), id, store.WithStatus(st)))
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())

	require.NoError(t, s.CreateJob(context.Background(), job))

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Error)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())

	require.NoError(t, s.CreateJob(context.Background(), job))
	assert.ErrorIs(t, s.CreateJob(context.Background(), job), store.ErrDuplicateKey)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := store.NewMemoryStore(10)

	_, err := s.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))
	require.NoError(t, s.AppendLog(context.Background(), job.ID, models.LogLevelInfo, "first"))

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	got.Status = models.JobStatusCompleted
	got.Logs[0].Message = "mutated"

	again, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, again.Status)
	assert.Equal(t, "first", again.Logs[0].Message)
}

func TestMemoryStore_UpdateFollowsStageOrder(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))

	advanceTo(t, s, job.ID,
		models.JobStatusScripting, models.JobStatusVoicing, models.JobStatusImaging,
		models.JobStatusAssembling, models.JobStatusMuxing)

	err := s.UpdateJob(context.Background(), job.ID,
		store.WithStatus(models.JobStatusCompleted),
		store.WithProgress("done"),
		store.WithResult(models.Result{Script: "text", Warnings: []string{"voice skipped"}}))
	require.NoError(t, err)

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "done", got.Progress)
	require.NotNil(t, got.Result)
	assert.Equal(t, "text", got.Result.Script)
	assert.Nil(t, got.Error)
}

func TestMemoryStore_UpdateRejectsSkippedStage(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))

	err := s.UpdateJob(context.Background(), job.ID, store.WithStatus(models.JobStatusImaging))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestMemoryStore_ErrorReachableFromAnyNonTerminal(t *testing.T) {
	for _, path := range [][]string{
		{},
		{models.JobStatusScripting},
		{models.JobStatusScripting, models.JobStatusVoicing, models.JobStatusImaging},
		{models.JobStatusScripting, models.JobStatusVoicing, models.JobStatusImaging,
			models.JobStatusAssembling, models.JobStatusMuxing},
	} {
		t.Run(fmt.Sprintf("after_%d_stages", len(path)), func(t *testing.T) {
			s := store.NewMemoryStore(10)
			job := newJob(time.Now().UTC())
			require.NoError(t, s.CreateJob(context.Background(), job))
			advanceTo(t, s, job.ID, path...)

			err := s.UpdateJob(context.Background(), job.ID,
				store.WithStatus(models.JobStatusError), store.WithError("boom"))
			require.NoError(t, err)

			got, err := s.GetJob(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusError, got.Status)
			require.NotNil(t, got.Error)
			assert.Equal(t, "boom", *got.Error)
			assert.Nil(t, got.Result)
		})
	}
}

func TestMemoryStore_TerminalIsImmutable(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))
	require.NoError(t, s.UpdateJob(context.Background(), job.ID,
		store.WithStatus(models.JobStatusError), store.WithError("boom")))

	err := s.UpdateJob(context.Background(), job.ID, store.WithStatus(models.JobStatusScripting))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	err = s.UpdateJob(context.Background(), job.ID, store.WithProgress("late"))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	// Logs may still grow after a terminal state.
	require.NoError(t, s.AppendLog(context.Background(), job.ID, models.LogLevelInfo, "cleanup done"))
	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Logs, 1)
}

func TestMemoryStore_ResultAndErrorGuards(t *testing.T) {
	s := store.NewMemoryStore(10)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))

	err := s.UpdateJob(context.Background(), job.ID, store.WithResult(models.Result{}))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	err = s.UpdateJob(context.Background(), job.ID, store.WithError("boom"))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	err = s.UpdateJob(context.Background(), job.ID, store.WithStatus(models.JobStatusError))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestMemoryStore_UpdateMissingJobIsNoop(t *testing.T) {
	s := store.NewMemoryStore(10)

	err := s.UpdateJob(context.Background(), uuid.New(), store.WithStatus(models.JobStatusScripting))
	assert.NoError(t, err)
	assert.NoError(t, s.AppendLog(context.Background(), uuid.New(), models.LogLevelInfo, "x"))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_AppendLogEvictsOldestFirst(t *testing.T) {
	s := store.NewMemoryStore(3)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.AppendLog(context.Background(), job.ID, models.LogLevelInfo, fmt.Sprintf("entry %d", i)))
	}

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, got.Logs, 3)
	assert.Equal(t, "entry 3", got.Logs[0].Message)
	assert.Equal(t, "entry 4", got.Logs[1].Message)
	assert.Equal(t, "entry 5", got.Logs[2].Message)
}

func TestMemoryStore_ConcurrentAppendNeverExceedsCap(t *testing.T) {
	s := store.NewMemoryStore(20)
	job := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), job))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendLog(context.Background(), job.ID, models.LogLevelInfo, fmt.Sprintf("entry %d", i))
			_, _ = s.GetJob(context.Background(), job.ID)
		}(i)
	}
	wg.Wait()

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Logs, 20)
}

func TestMemoryStore_SweepZeroRemovesEverything(t *testing.T) {
	s := store.NewMemoryStore(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateJob(context.Background(), newJob(time.Now().UTC().Add(-time.Second))))
	}

	removed, err := s.Sweep(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_SweepLargeAgeRemovesNone(t *testing.T) {
	s := store.NewMemoryStore(10)
	require.NoError(t, s.CreateJob(context.Background(), newJob(time.Now().UTC().Add(-time.Hour))))

	removed, err := s.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_SweepRemovesOnlyOldJobs(t *testing.T) {
	s := store.NewMemoryStore(10)
	old := newJob(time.Now().UTC().Add(-25 * time.Hour))
	fresh := newJob(time.Now().UTC())
	require.NoError(t, s.CreateJob(context.Background(), old))
	require.NoError(t, s.CreateJob(context.Background(), fresh))

	removed, err := s.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, old.ID, removed[0].ID)

	_, err = s.GetJob(context.Background(), old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetJob(context.Background(), fresh.ID)
	assert.NoError(t, err)
}
