package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/cupswatch/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapAt(ts time.Time, jobs ...model.Job) *model.Snapshot {
	return &model.Snapshot{Jobs: jobs, CapturedAt: ts}
}

func TestRecordSnapshot_InsertsJobs(t *testing.T) {
	s := openStore(t)
	now := time.Now().Truncate(time.Second)

	submitted := now.Add(-10 * time.Minute)
	require.NoError(t, s.RecordSnapshot(snapAt(now,
		model.Job{ID: "HP-1", Owner: "alice", StatusText: "1024", SubmittedAt: submitted},
		model.Job{ID: "HP-2", Owner: "bob", FileDescription: "notes.txt"},
	)))

	entries, err := s.Active()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "HP-1", entries[0].ID)
	assert.Equal(t, "alice", entries[0].Owner)
	require.NotNil(t, entries[0].SubmittedAt)
	assert.Equal(t, submitted.Unix(), entries[0].SubmittedAt.Unix())
	assert.Nil(t, entries[0].GoneAt)

	// No recovered timestamp stays NULL, not a zero epoch.
	assert.Nil(t, entries[1].SubmittedAt)
}

func TestRecordSnapshot_MarksDisappearedJobsGone(t *testing.T) {
	s := openStore(t)
	t0 := time.Now().Truncate(time.Second)

	require.NoError(t, s.RecordSnapshot(snapAt(t0,
		model.Job{ID: "HP-1", Owner: "alice"},
		model.Job{ID: "HP-2", Owner: "bob"},
	)))

	t1 := t0.Add(5 * time.Second)
	require.NoError(t, s.RecordSnapshot(snapAt(t1,
		model.Job{ID: "HP-2", Owner: "bob"},
	)))

	active, err := s.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "HP-2", active[0].ID)

	recent, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, e := range recent {
		if e.ID == "HP-1" {
			require.NotNil(t, e.GoneAt)
			assert.Equal(t, t1.Unix(), e.GoneAt.Unix())
		}
	}
}

func TestRecordSnapshot_EmptySnapshotDrainsQueue(t *testing.T) {
	s := openStore(t)
	t0 := time.Now().Truncate(time.Second)

	require.NoError(t, s.RecordSnapshot(snapAt(t0, model.Job{ID: "HP-1"})))
	require.NoError(t, s.RecordSnapshot(snapAt(t0.Add(time.Second))))

	active, err := s.Active()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRecordSnapshot_ReappearingJobClearsGone(t *testing.T) {
	// A held job can drop out of one listing dialect and come back;
	// reappearance revives the row.
	s := openStore(t)
	t0 := time.Now().Truncate(time.Second)

	require.NoError(t, s.RecordSnapshot(snapAt(t0, model.Job{ID: "HP-1"})))
	require.NoError(t, s.RecordSnapshot(snapAt(t0.Add(time.Second))))
	require.NoError(t, s.RecordSnapshot(snapAt(t0.Add(2*time.Second), model.Job{ID: "HP-1"})))

	active, err := s.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Nil(t, active[0].GoneAt)
}

func TestRecent_OrderAndLimit(t *testing.T) {
	s := openStore(t)
	t0 := time.Now().Truncate(time.Second)

	require.NoError(t, s.RecordSnapshot(snapAt(t0, model.Job{ID: "HP-1"})))
	require.NoError(t, s.RecordSnapshot(snapAt(t0.Add(time.Second),
		model.Job{ID: "HP-1"}, model.Job{ID: "HP-2"})))

	entries, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = s.Recent(0) // default limit
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
