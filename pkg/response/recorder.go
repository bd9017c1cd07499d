// Package response adapts net/http responses to the cache's snapshot model.
//
// A Recorder sits between a handler and the client. In tee mode it forwards
// everything to the real ResponseWriter while keeping a copy; in detached mode
// it is filled by the cache and later replayed with Send. Either way it can
// serialize itself to HTTP/1.1 wire form through io.WriterTo.
package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const defaultProto = "HTTP/1.1"

// connectionHeaders describe the client connection, not the response, and are never serialized.
var connectionHeaders = map[string]bool{"Connection": true, "Keep-Alive": true}

// Recorder captures a response as it is written.
type Recorder struct {
	dst    http.ResponseWriter // nil when detached
	header http.Header
	sent   http.Header // header snapshot taken at WriteHeader

	proto   string
	code    int
	message string
	body    bytes.Buffer

	wroteHeader bool
	err         error
}

var (
	_ http.ResponseWriter = (*Recorder)(nil)
	_ http.Flusher        = (*Recorder)(nil)
	_ io.WriterTo         = (*Recorder)(nil)
)

// NewRecorder returns a recorder that tees into dst.
// With a nil dst the recorder is detached and only buffers.
//
// The recorder keeps its own header map, so headers already set on dst by
// outer middleware (a request id, say) are not part of the recorded response.
func NewRecorder(dst http.ResponseWriter) *Recorder {
	return &Recorder{
		dst:    dst,
		header: make(http.Header),
		proto:  defaultProto,
	}
}

// Header returns the header map the handler writes to.
func (r *Recorder) Header() http.Header {
	return r.header
}

// WriteHeader records the status, freezes the header snapshot and, in tee
// mode, copies the handler's headers onto the client response.
// Repeated calls are ignored, as with net/http.
func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.code = code
	r.message = http.StatusText(code)
	r.sent = r.header.Clone()
	if r.dst != nil {
		replaceHeaders(r.dst.Header(), r.sent)
		r.dst.WriteHeader(code)
	}
}

// Write buffers p and forwards it to the client in tee mode.
func (r *Recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		if r.header.Get("Content-Type") == "" && r.header.Get("Transfer-Encoding") == "" && len(p) > 0 {
			r.header.Set("Content-Type", http.DetectContentType(p))
		}
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	if r.dst == nil {
		return len(p), nil
	}
	n, err := r.dst.Write(p)
	if err != nil && r.err == nil {
		r.err = err
	}
	return n, err
}

// Flush forwards to the client when it supports flushing.
func (r *Recorder) Flush() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if f, ok := r.dst.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the client writer to http.ResponseController.
func (r *Recorder) Unwrap() http.ResponseWriter {
	return r.dst
}

// Finish completes a response the handler never wrote, as net/http would: 200 with no body.
func (r *Recorder) Finish() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
}

// StatusCode returns the recorded status, or 0 before WriteHeader.
func (r *Recorder) StatusCode() int {
	return r.code
}

// Err returns the first error seen while forwarding to the client.
func (r *Recorder) Err() error {
	return r.err
}

// SetStatusLine sets the status line of a detached response.
func (r *Recorder) SetStatusLine(proto string, code int, message string) {
	if proto == "" {
		proto = defaultProto
	}
	r.proto = proto
	r.code = code
	r.message = message
	r.wroteHeader = true
}

// AddHeader appends a header field to a detached response.
func (r *Recorder) AddHeader(name, value string) {
	r.header.Add(name, value)
}

// SetBody replaces the body of a detached response.
func (r *Recorder) SetBody(body []byte) {
	r.body.Reset()
	r.body.Write(body)
}

// Body returns the recorded body. The slice is only valid until the next write.
func (r *Recorder) Body() []byte {
	return r.body.Bytes()
}

// WriteTo serializes the response in HTTP/1.1 wire form:
// the status line, headers in sorted order minus connection headers,
// a Content-Length when none was set, an empty line and the body.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	code := r.code
	if code == 0 {
		code = http.StatusOK
	}
	message := r.message
	if message == "" {
		message = http.StatusText(code)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %03d %s\r\n", r.proto, code, message)

	h := r.sent
	if h == nil {
		h = r.header
	}
	if err := h.WriteSubset(&buf, connectionHeaders); err != nil {
		return 0, fmt.Errorf("write headers: %w", err)
	}
	if h.Get("Content-Length") == "" && h.Get("Transfer-Encoding") == "" {
		buf.WriteString("Content-Length: " + strconv.Itoa(r.body.Len()) + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(r.body.Bytes())

	return buf.WriteTo(w)
}

// Send replays a detached response onto w. Headers the response carries
// replace any values already set on w.
func (r *Recorder) Send(w http.ResponseWriter) error {
	replaceHeaders(w.Header(), r.header)

	code := r.code
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)

	if r.body.Len() == 0 {
		return nil
	}
	if _, err := w.Write(r.body.Bytes()); err != nil {
		return fmt.Errorf("write cached body: %w", err)
	}
	return nil
}

// replaceHeaders sets every field of src on dst, dropping values dst already had for it.
func replaceHeaders(dst, src http.Header) {
	for name, values := range src {
		dst[name] = append([]string(nil), values...)
	}
}
