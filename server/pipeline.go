package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"rootserve/handlers"
	"rootserve/response"
)

// Pipeline runs directives in order until one reports Handled. A request no
// directive takes is answered with 404.
type Pipeline []handlers.Directive

func (p Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sink := response.NewWriter(w)
	for _, d := range p {
		if d.Serve(r.Context(), r, sink) == handlers.Handled {
			return
		}
	}

	if err := sink.Emit(response.Error(http.StatusNotFound), r); err != nil {
		logrus.WithContext(r.Context()).WithError(err).Debug("fallback response not delivered")
	}
}

// newPipeline assembles the status endpoints ahead of the file directive,
// which takes every request that reaches it.
func newPipeline(d *deps) Pipeline {
	root := d.cfg.Root
	return Pipeline{
		handlers.NewHealthDirective(d.cfg.HealthPath, root, d.monitor),
		handlers.NewStatsDirective(d.cfg.StatsPath, d.stats),
		handlers.NewFileDirective(root,
			handlers.WithIndex(d.cfg.Index),
			handlers.WithStats(d.stats),
		),
	}
}
