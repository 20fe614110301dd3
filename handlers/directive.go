// Package handlers contains the request directives served by rootserve and
// the supporting pieces they share: path sanitisation, bandwidth limiting,
// download statistics and root monitoring.
package handlers

import (
	"context"
	"io/fs"
	"net/http"
	"os"

	"rootserve/response"
)

// Outcome tells the surrounding pipeline whether a directive took ownership
// of the request.
type Outcome int

const (
	// NotApplicable means the directive did not touch the request and the
	// next directive should be tried.
	NotApplicable Outcome = iota
	// Handled means exactly one response has been emitted and no further
	// processing of the request may happen.
	Handled
)

func (o Outcome) String() string {
	switch o {
	case Handled:
		return "handled"
	case NotApplicable:
		return "not-applicable"
	}
	return "unknown"
}

// Directive is one stage of the request pipeline.
type Directive interface {
	Serve(ctx context.Context, req *http.Request, sink response.Sink) Outcome
}

// DirectiveFunc adapts a function to Directive.
type DirectiveFunc func(ctx context.Context, req *http.Request, sink response.Sink) Outcome

func (f DirectiveFunc) Serve(ctx context.Context, req *http.Request, sink response.Sink) Outcome {
	return f(ctx, req, sink)
}

// FileSystem is the filesystem access the file directive performs.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (response.File, error)
}

// OSFileSystem is the FileSystem backed by the operating system.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) Open(name string) (response.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}
