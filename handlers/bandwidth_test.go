package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	body []byte
}

func (h *echoHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.Copy(w, bytes.NewReader(h.body))
}

func TestBandwidthUnlimited(t *testing.T) {
	t.Parallel()

	h := &echoHandler{}
	assert.Same(t, h, NewBandwidthManager(0).Wrap(h))
}

func TestBandwidthLimited(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("x"), 3*chunkSize+17)
	bm := NewBandwidthManager(1 << 30)
	rec := httptest.NewRecorder()
	bm.Wrap(&echoHandler{body: body}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, body, rec.Body.Bytes())
	assert.Zero(t, bm.Peers())
}

func TestBandwidthCancelled(t *testing.T) {
	t.Parallel()

	// A tiny cap forces WaitN to block, so a cancelled context must abort it.
	bm := NewBandwidthManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := bm.join("10.0.0.1")
	defer bm.leave("10.0.0.1")
	lw := &limitedResponseWriter{ResponseWriter: httptest.NewRecorder(), ctx: ctx, limiter: limiter}

	n, err := lw.Write(make([]byte, 10))
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestFormatBandwidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "80 bps", FormatBandwidth(10))
	assert.Equal(t, "8.00 Kbps", FormatBandwidth(1_000))
	assert.Equal(t, "10.00 Mbps", FormatBandwidth(1_250_000))
	assert.Equal(t, "1.00 Gbps", FormatBandwidth(125_000_000))
}
