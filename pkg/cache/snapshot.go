package cache

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// minWireLen is the shortest serialization worth parsing ("HTTP/1.1" is already 8).
const minWireLen = 7

var (
	crlf         = []byte("\r\n")
	headerEndSeq = []byte("\r\n\r\n")
)

// Snapshot is the structured view of a serialized response.
// It is the only place the cache looks inside a response; everything downstream
// works on these plain fields.
type Snapshot struct {
	Proto      string
	StatusCode int
	Message    string
	Headers    []Header
	Body       []byte

	// NoStore is set when a Cache-Control header contains "no-store"
	NoStore bool

	// OK is false when the serialization could not be parsed and the
	// fallback "HTTP/1.1 200 OK" snapshot was returned instead.
	OK bool
}

// StatusLine reassembles the status line without its CRLF.
func (s Snapshot) StatusLine() string {
	line := s.Proto + " " + strconv.Itoa(s.StatusCode)
	if s.Message != "" {
		line += " " + s.Message
	}
	return line
}

// TakeSnapshot serializes src to its wire form and parses the result.
// A serialization error yields the fallback snapshot.
func TakeSnapshot(src io.WriterTo) Snapshot {
	var buf bytes.Buffer
	if _, err := src.WriteTo(&buf); err != nil {
		return fallbackSnapshot()
	}
	return ParseSnapshot(buf.Bytes())
}

// ParseSnapshot parses an HTTP/1.x response in wire form.
// The header block ends at the first CRLFCRLF; everything after it is the body.
// Input that cannot be parsed yields the fallback snapshot, never a panic.
func ParseSnapshot(wire []byte) Snapshot {
	if len(wire) < minWireLen {
		return fallbackSnapshot()
	}
	end := bytes.Index(wire, headerEndSeq)
	if end < 0 {
		return fallbackSnapshot()
	}

	// the boundary's first CRLF terminates the last header line
	head := wire[:end+len(crlf)]
	lineEnd := bytes.Index(head, crlf)
	if lineEnd <= 0 {
		return fallbackSnapshot()
	}
	proto, code, msg, ok := splitStatusLine(string(head[:lineEnd]))
	if !ok {
		return fallbackSnapshot()
	}

	s := Snapshot{
		Proto:      proto,
		StatusCode: code,
		Message:    msg,
		OK:         true,
	}

	rest := head[lineEnd+len(crlf):]
	for len(rest) > 0 {
		i := bytes.Index(rest, crlf)
		if i < 0 {
			break
		}
		line := string(rest[:i])
		rest = rest[i+len(crlf):]

		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Cache-Control") && strings.Contains(strings.ToLower(value), "no-store") {
			s.NoStore = true
		}
		s.Headers = append(s.Headers, Header{Name: name, Value: value})
	}

	if body := wire[end+len(headerEndSeq):]; len(body) > 0 {
		s.Body = bytes.Clone(body)
	}
	return s
}

func fallbackSnapshot() Snapshot {
	return Snapshot{
		Proto:      "HTTP/1.1",
		StatusCode: http.StatusOK,
		Message:    "OK",
	}
}

// splitStatusLine splits "HTTP/1.1 200 OK" into its three tokens.
// Missing or unparsable tokens fall back to HTTP/1.1, 200 and the standard
// reason phrase; ok reports whether the line was well formed.
func splitStatusLine(line string) (proto string, code int, msg string, ok bool) {
	proto, code = "HTTP/1.1", http.StatusOK

	fields := strings.TrimSpace(line)
	p, rest, _ := strings.Cut(fields, " ")
	if p == "" {
		return proto, code, http.StatusText(code), false
	}
	proto = p

	rest = strings.TrimLeft(rest, " ")
	codeStr, msg, _ := strings.Cut(rest, " ")
	n, err := strconv.Atoi(codeStr)
	if err != nil || n < 100 || n > 999 {
		return proto, code, http.StatusText(code), false
	}
	code = n
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(code)
	}
	return proto, code, msg, true
}
