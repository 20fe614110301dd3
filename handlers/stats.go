package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"rootserve/models"
	"rootserve/response"
)

// StatsFile is the name of the counters file inside the stats directory.
const StatsFile = "rootserve.json"

// Stats counts completed downloads. When created with a directory the
// counters are loaded from and persisted to StatsFile inside it.
type Stats struct {
	mu   sync.Mutex
	data models.Stats
	seq  uint64
	path string

	writeMu sync.Mutex
	written uint64
	wg      sync.WaitGroup
}

// NewStats loads existing counters from dir. An empty dir keeps the counters
// in memory only. If the file does not exist it is created immediately with
// zero counters so permission problems surface at startup rather than on the
// first download.
func NewStats(dir string) (*Stats, error) {
	s := &Stats{}
	if dir == "" {
		return s, nil
	}
	s.path = filepath.Join(dir, StatsFile)

	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open stats: %w", err)
		}
		if err := writeStatsFile(s.path, s.data); err != nil {
			return nil, fmt.Errorf("create stats: %w", err)
		}
		return s, nil
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.data); err != nil {
		logrus.WithError(err).Warnf("stats: could not parse %s, starting from zero", s.path)
		s.data = models.Stats{}
	}
	return s, nil
}

// Record adds one download of n bytes. Persisting happens in the background
// so the response is never delayed by disk I/O. A nil Stats ignores the call.
func (s *Stats) Record(n int64) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.data.TotalDownloads++
	s.data.TotalBytes += n
	s.seq++
	snap, seq := s.data, s.seq
	s.mu.Unlock()

	if s.path == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persist(seq, snap)
	}()
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() models.Stats {
	if s == nil {
		return models.Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Close waits for pending writes to finish.
func (s *Stats) Close() {
	s.wg.Wait()
}

// persist writes snap unless a newer snapshot has already reached disk.
func (s *Stats) persist(seq uint64, snap models.Stats) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if seq <= s.written {
		return
	}
	if err := writeStatsFile(s.path, snap); err != nil {
		logrus.WithError(err).Warn("stats: persist failed")
		return
	}
	s.written = seq
}

// writeStatsFile replaces filePath atomically via a temp file and rename.
func writeStatsFile(filePath string, data models.Stats) error {
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".rootserve-stats-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := json.NewEncoder(tmp).Encode(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not rename %s to %s: %w", tmpName, filePath, err)
	}
	return nil
}

// StatsDirective answers requests for path with the download counters.
type StatsDirective struct {
	path  string
	stats *Stats
}

func NewStatsDirective(path string, stats *Stats) *StatsDirective {
	return &StatsDirective{path: path, stats: stats}
}

func (d *StatsDirective) Serve(ctx context.Context, req *http.Request, sink response.Sink) Outcome {
	if d.path == "" || req.URL.Path != d.path {
		return NotApplicable
	}

	resp, err := response.JSON(http.StatusOK, d.stats.Snapshot())
	if err != nil {
		logrus.WithContext(ctx).WithError(err).Error("stats: encode failed")
		resp = response.Error(http.StatusInternalServerError)
	}
	if err := sink.Emit(resp, req); err != nil {
		logrus.WithContext(ctx).WithError(err).Debug("stats: response not delivered")
	}
	return Handled
}
