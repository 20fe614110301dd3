package response

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// Conn writes responses as raw HTTP/1.x onto a byte stream such as a TCP
// connection or an in-memory buffer.
type Conn struct {
	w io.Writer
}

// NewConn returns a Sink that serialises responses onto w.
func NewConn(w io.Writer) *Conn {
	return &Conn{w: w}
}

// Emit writes a buffered response.
func (c *Conn) Emit(resp *Response, req *http.Request) error {
	_, err := c.write(resp, req)
	return err
}

// EmitStream writes the response head and then copies the body until EOF.
// It returns the number of body bytes written.
func (c *Conn) EmitStream(resp *Response, req *http.Request) (int64, error) {
	return c.write(resp, req)
}

func (c *Conn) write(resp *Response, req *http.Request) (int64, error) {
	bw := bufio.NewWriter(c.w)

	proto := "HTTP/1.1"
	if req != nil && req.ProtoMajor == 1 && req.ProtoMinor == 0 {
		proto = "HTTP/1.0"
	}
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", proto, resp.Status, http.StatusText(resp.Status)); err != nil {
		return 0, err
	}

	h := resp.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	switch {
	case !KeepAlive(req):
		h.Set("Connection", "close")
	case proto == "HTTP/1.0":
		h.Set("Connection", "keep-alive")
	}
	if err := h.Write(bw); err != nil {
		return 0, err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return 0, err
	}

	var n int64
	if resp.Body != nil && bodyAllowed(req) {
		var err error
		n, err = io.Copy(bw, resp.Body)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
