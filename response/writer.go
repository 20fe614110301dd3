package response

import (
	"io"
	"net/http"
)

// Writer adapts an http.ResponseWriter to Sink. net/http takes care of
// framing and connection reuse, so the request is only consulted for HEAD.
type Writer struct {
	w http.ResponseWriter
}

// NewWriter returns a Sink backed by w.
func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{w: w}
}

// Emit writes a buffered response.
func (rw *Writer) Emit(resp *Response, req *http.Request) error {
	_, err := rw.write(resp, req)
	return err
}

// EmitStream writes the header and copies the body into the ResponseWriter,
// which lets net/http use sendfile when the body is an *os.File.
func (rw *Writer) EmitStream(resp *Response, req *http.Request) (int64, error) {
	return rw.write(resp, req)
}

func (rw *Writer) write(resp *Response, req *http.Request) (int64, error) {
	h := rw.w.Header()
	for k, v := range resp.Header {
		h[k] = v
	}
	rw.w.WriteHeader(resp.Status)

	if resp.Body == nil || !bodyAllowed(req) {
		return 0, nil
	}
	return io.Copy(rw.w, resp.Body)
}
