package response_test

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootserve/response"
)

func readResponse(t *testing.T, raw *bytes.Buffer, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(raw), req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestError(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		resp := response.Error(status)
		assert.Equal(t, status, resp.Status)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, resp.Header.Get("Content-Length"), strconv.Itoa(len(body)))
		assert.Contains(t, string(body), http.StatusText(status))
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	resp, err := response.JSON(http.StatusOK, map[string]int{"n": 1})
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	_, err = response.JSON(http.StatusOK, make(chan int))
	assert.Error(t, err)
}

func TestKeepAlive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		proto string
		conn  string
		want  bool
	}{
		{name: "http11_default", proto: "HTTP/1.1", want: true},
		{name: "http11_close", proto: "HTTP/1.1", conn: "close", want: false},
		{name: "http11_close_list", proto: "HTTP/1.1", conn: "Upgrade, Close", want: false},
		{name: "http10_default", proto: "HTTP/1.0", want: false},
		{name: "http10_keep_alive", proto: "HTTP/1.0", conn: "Keep-Alive", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Proto = tt.proto
			req.ProtoMajor, req.ProtoMinor, _ = http.ParseHTTPVersion(tt.proto)
			if tt.conn != "" {
				req.Header.Set("Connection", tt.conn)
			}
			assert.Equal(t, tt.want, response.KeepAlive(req))
		})
	}

	assert.False(t, response.KeepAlive(nil))
}

func TestConnEmitStream(t *testing.T) {
	t.Parallel()

	var raw bytes.Buffer
	sink := response.NewConn(&raw)

	req := httptest.NewRequest(http.MethodGet, "/a.txt", nil)
	h := make(http.Header)
	h.Set("Content-Length", "5")
	n, err := sink.EmitStream(&response.Response{Status: http.StatusOK, Header: h, Body: strings.NewReader("hello")}, req)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	resp := readResponse(t, &raw, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5, resp.ContentLength)
	assert.False(t, resp.Close)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestConnHTTP10(t *testing.T) {
	t.Parallel()

	var raw bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Proto, req.ProtoMajor, req.ProtoMinor = "HTTP/1.0", 1, 0

	require.NoError(t, response.NewConn(&raw).Emit(response.Error(http.StatusNotFound), req))
	assert.True(t, strings.HasPrefix(raw.String(), "HTTP/1.0 404 Not Found\r\n"))
	assert.Contains(t, raw.String(), "Connection: close\r\n")
}

func TestConnHead(t *testing.T) {
	t.Parallel()

	var raw bytes.Buffer
	req := httptest.NewRequest(http.MethodHead, "/", nil)
	h := make(http.Header)
	h.Set("Content-Length", "5")
	n, err := response.NewConn(&raw).EmitStream(&response.Response{Status: http.StatusOK, Header: h, Body: strings.NewReader("hello")}, req)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, strings.HasSuffix(raw.String(), "\r\n\r\n"))
}

func TestWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h := make(http.Header)
	h.Set("Content-Length", "3")
	n, err := response.NewWriter(rec).EmitStream(&response.Response{Status: http.StatusOK, Header: h, Body: strings.NewReader("abc")}, req)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Content-Length"))
	assert.Equal(t, "abc", rec.Body.String())
}
