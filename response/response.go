// Package response describes HTTP responses produced by the directive
// pipeline and writes them to whatever transport the request arrived on.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
)

// Response is a status, headers and an optional body. The body is either a
// small rendered buffer (error and JSON responses) or an open file that is
// streamed to the client.
type Response struct {
	Status int
	Header http.Header
	Body   io.Reader
}

// File is an open file handed to the response layer for streaming.
type File interface {
	io.ReadCloser
	Stat() (fs.FileInfo, error)
}

// Sink is the output side of one request. A directive writes exactly one
// response to it, either with Emit (buffered bodies) or EmitStream (file
// bodies). req is the original request and may be nil; it is only used for
// protocol version and connection reuse decisions.
type Sink interface {
	Emit(resp *Response, req *http.Request) error
	EmitStream(resp *Response, req *http.Request) (int64, error)
}

// JSON renders v as an application/json response.
func JSON(status int, v any) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(raw)))
	return &Response{Status: status, Header: h, Body: bytes.NewReader(raw)}, nil
}

// KeepAlive reports whether the connection that carried req may be reused
// after the response. Without a request the connection is closed.
func KeepAlive(req *http.Request) bool {
	if req == nil {
		return false
	}
	conn := req.Header.Get("Connection")
	if req.ProtoMajor == 1 && req.ProtoMinor == 0 {
		return hasToken(conn, "keep-alive")
	}
	return !hasToken(conn, "close")
}

func hasToken(header, token string) bool {
	for _, v := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(v), token) {
			return true
		}
	}
	return false
}

func bodyAllowed(req *http.Request) bool {
	return req == nil || req.Method != http.MethodHead
}
