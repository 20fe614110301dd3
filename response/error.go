package response

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"strconv"
)

//go:embed error.html
var errorPage string

var errorTmpl = template.Must(template.New("error").Parse(errorPage))

type errorData struct {
	Status int
	Text   string
}

// Error renders the standard error page for status.
func Error(status int) *Response {
	text := http.StatusText(status)
	if text == "" {
		text = "Error"
	}

	var buf bytes.Buffer
	if err := errorTmpl.Execute(&buf, errorData{Status: status, Text: text}); err != nil {
		buf.Reset()
		buf.WriteString(strconv.Itoa(status) + " " + text + "\n")
	}

	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("X-Content-Type-Options", "nosniff")
	return &Response{Status: status, Header: h, Body: &buf}
}
