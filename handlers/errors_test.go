package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want int
	}{
		{KindConfigMissing, http.StatusInternalServerError},
		{KindPathEscape, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInternalIO, http.StatusInternalServerError},
		{Kind("bogus"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newError(tt.kind, nil, "x").Status(), "kind %s", tt.kind)
	}
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	e := newError(KindNotFound, fs.ErrNotExist, "open %s", "/srv/www/a")
	assert.Equal(t, "open /srv/www/a: file does not exist", e.Error())
	assert.ErrorIs(t, e, fs.ErrNotExist)

	wrapped := fmt.Errorf("serve: %w", e)
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}
