package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, service, version string, createdAt time.Time) Record {
	return Record{
		ID:          id,
		Environment: "staging",
		Service:     service,
		ImageRef:    "registry.example.com/" + service + ":" + version,
		Version:     version,
		CreatedAt:   createdAt,
	}
}

func TestLatestSuccessful(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRecord(record("run-1", "api", "v1", base)))
	require.NoError(t, s.SaveRecord(record("run-2", "api", "v2", base.Add(time.Hour))))

	latest, err := s.LatestSuccessful("staging", "api")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.Version)
	assert.Equal(t, "registry.example.com/api:v2", latest.ImageRef)
}

func TestLatestSuccessful_NoRecord(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestSuccessful("staging", "api")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestLatestBefore_SkipsFailingVersion(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRecord(record("run-1", "api", "v1", base)))
	require.NoError(t, s.SaveRecord(record("run-2", "api", "v2", base.Add(time.Hour))))

	// The rollback target must never be the currently failing version.
	previous, err := s.LatestBefore("staging", "api", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v1", previous.Version)
}

func TestLatestBefore_OnlyFailingVersionExists(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRecord(record("run-1", "api", "v1", base)))

	_, err := s.LatestBefore("staging", "api", "v1")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSaveRecord_RolledBackFrom(t *testing.T) {
	s := openTestStore(t)
	from := "v2"
	rec := record("run-3", "api", "v1", time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC))
	rec.RolledBackFrom = &from

	require.NoError(t, s.SaveRecord(rec))

	latest, err := s.LatestSuccessful("staging", "api")
	require.NoError(t, err)
	require.NotNil(t, latest.RolledBackFrom)
	assert.Equal(t, "v2", *latest.RolledBackFrom)
}

func TestHistory(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, version := range []string{"v1", "v2", "v3"} {
		id := "run-" + version
		require.NoError(t, s.SaveRecord(record(id, "api", version, base.Add(time.Duration(i)*time.Hour))))
		require.NoError(t, s.SaveRecord(record(id, "model", version, base.Add(time.Duration(i)*time.Hour))))
	}

	history, err := s.History("staging", 10)
	require.NoError(t, err)
	require.Len(t, history, 6)
	// Newest first.
	assert.Equal(t, "v3", history[0].Version)

	limited, err := s.History("staging", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, version := range []string{"v1", "v2", "v3", "v4"} {
		require.NoError(t, s.SaveRecord(record("run-"+version, "api", version, base.Add(time.Duration(i)*time.Hour))))
	}

	require.NoError(t, s.Prune("staging", 2))

	history, err := s.History("staging", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v4", history[0].Version)
	assert.Equal(t, "v3", history[1].Version)

	// The oldest records are gone, so rollback past them reports ErrNoRecord.
	_, err = s.LatestBefore("staging", "api", "v4")
	require.NoError(t, err)
	_, err = s.LatestBefore("staging", "api", "v3")
	require.NoError(t, err)
}
