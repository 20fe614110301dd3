package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootserve/models"
)

func readStatsFile(t *testing.T, dir string) models.Stats {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, StatsFile))
	require.NoError(t, err)
	var s models.Stats
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestStatsPersist(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := NewStats(dir)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, readStatsFile(t, dir))

	for range 10 {
		s.Record(100)
	}
	s.Close()

	want := models.Stats{TotalDownloads: 10, TotalBytes: 1000}
	assert.Equal(t, want, s.Snapshot())
	assert.Equal(t, want, readStatsFile(t, dir))

	reloaded, err := NewStats(dir)
	require.NoError(t, err)
	assert.Equal(t, want, reloaded.Snapshot())
}

func TestStatsCorruptFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StatsFile), []byte("{nope"), 0o644))

	s, err := NewStats(dir)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, s.Snapshot())
}

func TestStatsMemoryOnly(t *testing.T) {
	t.Parallel()

	s, err := NewStats("")
	require.NoError(t, err)
	s.Record(7)
	s.Close()
	assert.Equal(t, models.Stats{TotalDownloads: 1, TotalBytes: 7}, s.Snapshot())

	var nilStats *Stats
	assert.NotPanics(t, func() { nilStats.Record(1) })
}

func TestStatsDirective(t *testing.T) {
	t.Parallel()

	s, err := NewStats("")
	require.NoError(t, err)
	s.Record(42)
	d := NewStatsDirective("/-/stats", s)

	resp, body := serve(t, d, "/-/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total_downloads":1,"total_bytes":42}`, string(body))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/other", nil)
	require.NoError(t, err)
	assert.Equal(t, NotApplicable, d.Serve(context.Background(), req, nil))
}
