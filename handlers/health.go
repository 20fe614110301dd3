package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"rootserve/models"
	"rootserve/response"
)

// HealthDirective reports whether the server can serve files.
type HealthDirective struct {
	path    string
	root    *string
	monitor *RootMonitor
}

// NewHealthDirective answers requests for path. monitor may be nil, in which
// case the root is assumed present.
func NewHealthDirective(path string, root *string, monitor *RootMonitor) *HealthDirective {
	return &HealthDirective{path: path, root: root, monitor: monitor}
}

func (d *HealthDirective) Serve(ctx context.Context, req *http.Request, sink response.Sink) Outcome {
	if d.path == "" || req.URL.Path != d.path {
		return NotApplicable
	}

	status := http.StatusOK
	body := models.Health{Status: models.HealthOK}
	switch {
	case d.root == nil:
		body.Status = models.HealthDisabled
	case !d.monitor.Present():
		status = http.StatusServiceUnavailable
		body.Status = models.HealthDegraded
		body.Root = *d.root
	default:
		body.Root = *d.root
	}

	resp, err := response.JSON(status, body)
	if err != nil {
		logrus.WithContext(ctx).WithError(err).Error("health: encode failed")
		resp = response.Error(http.StatusInternalServerError)
	}
	if err := sink.Emit(resp, req); err != nil {
		logrus.WithContext(ctx).WithError(err).Debug("health: response not delivered")
	}
	return Handled
}
