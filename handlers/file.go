package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rootserve/response"
)

// DefaultIndex is served in place of a directory.
const DefaultIndex = "index.html"

// FileDirective serves files from beneath a single root directory.
type FileDirective struct {
	root  *string
	index string
	fs    FileSystem
	stats *Stats
}

// FileOption configures a FileDirective.
type FileOption func(*FileDirective)

// WithIndex sets the file name appended to directory paths.
func WithIndex(name string) FileOption {
	return func(d *FileDirective) { d.index = name }
}

// WithFileSystem replaces the operating system filesystem.
func WithFileSystem(fsys FileSystem) FileOption {
	return func(d *FileDirective) { d.fs = fsys }
}

// WithStats records every completed download in s.
func WithStats(s *Stats) FileOption {
	return func(d *FileDirective) { d.stats = s }
}

// NewFileDirective returns a directive serving files under root. A nil root
// disables file serving: every request is answered with 500.
func NewFileDirective(root *string, opts ...FileOption) *FileDirective {
	d := &FileDirective{
		root:  root,
		index: DefaultIndex,
		fs:    OSFileSystem{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serve resolves the request path under the root and streams the file it
// names. It always emits exactly one response and always returns Handled.
func (d *FileDirective) Serve(ctx context.Context, req *http.Request, sink response.Sink) Outcome {
	log := logrus.WithContext(ctx).WithField("path", req.URL.Path)

	if d.root == nil {
		d.fail(log, req, sink, newError(KindConfigMissing, nil, "no root directory configured"))
		return Handled
	}

	fsPath, ok := SanitizePath(*d.root, strings.TrimLeft(req.URL.Path, "/"))
	if !ok {
		d.fail(log, req, sink, newError(KindPathEscape, nil, "path escapes root"))
		return Handled
	}

	if info, err := d.fs.Stat(fsPath); err == nil && info.IsDir() {
		fsPath = filepath.Join(fsPath, d.index)
	}

	f, err := d.fs.Open(fsPath)
	if err != nil {
		d.fail(log, req, sink, newError(KindNotFound, err, "open %s", fsPath))
		return Handled
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		d.fail(log, req, sink, newError(KindInternalIO, err, "stat %s", fsPath))
		return Handled
	}
	if info.IsDir() {
		d.fail(log, req, sink, newError(KindNotFound, nil, "%s is a directory", fsPath))
		return Handled
	}

	start := time.Now()
	n, err := sink.EmitStream(fileResponse(f, info.Size()), req)
	if err != nil {
		log.WithError(err).Debugf("stream aborted after %s", formatSize(n))
		return Handled
	}

	d.stats.Record(n)
	log.WithFields(logrus.Fields{
		"size":     formatSize(n),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("file served")
	return Handled
}

func (d *FileDirective) fail(log *logrus.Entry, req *http.Request, sink response.Sink, e *Error) {
	status := e.Status()
	log = log.WithFields(logrus.Fields{"status": status, "kind": e.Kind})
	if status >= http.StatusInternalServerError {
		log.WithError(e).Error("file request failed")
	} else {
		log.WithError(e).Debug("file request rejected")
	}

	if err := sink.Emit(response.Error(status), req); err != nil {
		log.WithError(err).Debug("error response not delivered")
	}
}

// fileResponse builds the success descriptor for an open file of the given
// length. The file stays owned by the caller, which closes it after emission.
func fileResponse(f response.File, length int64) *response.Response {
	h := make(http.Header)
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	return &response.Response{
		Status: http.StatusOK,
		Header: h,
		Body:   f,
	}
}

// formatSize formats a byte count as a human-readable string.
func formatSize(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
