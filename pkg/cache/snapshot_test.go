package cache

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/wk755/httpserver/pkg/response"
)

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name        string
		wire        string
		wantOK      bool
		wantStatus  int
		wantMessage string
		wantHeaders []Header
		wantBody    string
		wantNoStore bool
	}{
		{
			name:        "simple response",
			wire:        "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello",
			wantOK:      true,
			wantStatus:  200,
			wantMessage: "OK",
			wantHeaders: []Header{{Name: "Content-Type", Value: "text/plain"}},
			wantBody:    "hello",
		},
		{
			name:        "duplicate headers kept in order",
			wire:        "HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\n\r\n",
			wantOK:      true,
			wantStatus:  200,
			wantMessage: "OK",
			wantHeaders: []Header{{Name: "Set-Cookie", Value: "a=1"}, {Name: "Set-Cookie", Value: "b=2"}},
		},
		{
			name:        "value split at first colon and trimmed",
			wire:        "HTTP/1.1 301 Moved Permanently\r\nLocation :  http://x/y  \r\n\r\n",
			wantOK:      true,
			wantStatus:  301,
			wantMessage: "Moved Permanently",
			wantHeaders: []Header{{Name: "Location", Value: "http://x/y"}},
		},
		{
			name:        "lines without colon and empty names skipped",
			wire:        "HTTP/1.1 404 Not Found\r\ngarbage\r\n: novalue\r\nX-A: 1\r\n\r\nnope",
			wantOK:      true,
			wantStatus:  404,
			wantMessage: "Not Found",
			wantHeaders: []Header{{Name: "X-A", Value: "1"}},
			wantBody:    "nope",
		},
		{
			name:        "no-store detected case-insensitively",
			wire:        "HTTP/1.1 200 OK\r\ncache-control: private, No-Store\r\n\r\n",
			wantOK:      true,
			wantStatus:  200,
			wantMessage: "OK",
			wantHeaders: []Header{{Name: "cache-control", Value: "private, No-Store"}},
			wantNoStore: true,
		},
		{
			name:        "missing reason phrase",
			wire:        "HTTP/1.1 404\r\n\r\n",
			wantOK:      true,
			wantStatus:  404,
			wantMessage: "Not Found",
		},
		{
			name:        "body containing CRLFCRLF",
			wire:        "HTTP/1.1 200 OK\r\n\r\na\r\n\r\nb",
			wantOK:      true,
			wantStatus:  200,
			wantMessage: "OK",
			wantBody:    "a\r\n\r\nb",
		},
		{
			name:        "too short",
			wire:        "HTTP/1",
			wantStatus:  200,
			wantMessage: "OK",
		},
		{
			name:        "no header terminator",
			wire:        "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n",
			wantStatus:  200,
			wantMessage: "OK",
		},
		{
			name:        "empty status line",
			wire:        "\r\n\r\nbody-only",
			wantStatus:  200,
			wantMessage: "OK",
		},
		{
			name:        "non-numeric status",
			wire:        "HTTP/1.1 abc OK\r\n\r\n",
			wantStatus:  200,
			wantMessage: "OK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSnapshot([]byte(tt.wire))

			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", got.OK, tt.wantOK)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
			if !reflect.DeepEqual(got.Headers, tt.wantHeaders) {
				t.Errorf("Headers = %+v, want %+v", got.Headers, tt.wantHeaders)
			}
			if string(got.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
			if got.NoStore != tt.wantNoStore {
				t.Errorf("NoStore = %v, want %v", got.NoStore, tt.wantNoStore)
			}
		})
	}
}

func TestParseSnapshot_FallbackStatusLine(t *testing.T) {
	s := ParseSnapshot(nil)
	if s.StatusLine() != "HTTP/1.1 200 OK" {
		t.Errorf("StatusLine() = %q, want %q", s.StatusLine(), "HTTP/1.1 200 OK")
	}
	if len(s.Headers) != 0 || len(s.Body) != 0 {
		t.Error("fallback snapshot should have no headers and no body")
	}
}

type failingWriterTo struct{}

func (failingWriterTo) WriteTo(io.Writer) (int64, error) {
	return 0, errors.New("boom")
}

func TestTakeSnapshot_SerializeError(t *testing.T) {
	s := TakeSnapshot(failingWriterTo{})
	if s.OK {
		t.Error("snapshot of a failing response should not be OK")
	}
	if s.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", s.StatusCode)
	}
}

// An entry applied to a builder and snapshotted again keeps its status,
// headers and body, followed by the hit markers.
func TestRoundTrip(t *testing.T) {
	src := response.NewRecorder(nil)
	src.Header().Set("Content-Type", "application/json")
	src.Header().Add("X-Multi", "1")
	src.Header().Add("X-Multi", "2")
	src.WriteHeader(http.StatusNotFound)
	_, _ = src.Write([]byte(`{"error":"missing"}`))

	snap := TakeSnapshot(src)
	if !snap.OK {
		t.Fatal("snapshot of a recorder should be OK")
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := Pack(snap, now, DefaultPolicy())

	out := response.NewRecorder(nil)
	ApplyEntry(&entry, out)

	again := TakeSnapshot(out)
	if again.StatusCode != snap.StatusCode {
		t.Errorf("StatusCode = %d, want %d", again.StatusCode, snap.StatusCode)
	}
	if string(again.Body) != string(snap.Body) {
		t.Errorf("Body = %q, want %q", again.Body, snap.Body)
	}

	got := headerValues(again.Headers)
	for _, h := range snap.Headers {
		if !contains(got[h.Name], h.Value) {
			t.Errorf("header %s: %s missing after round trip", h.Name, h.Value)
		}
	}
	if !contains(got["Age"], "0") {
		t.Error("Age: 0 missing after round trip")
	}
	if !contains(got["X-Cache"], "HIT") {
		t.Error("X-Cache: HIT missing after round trip")
	}
}

func TestPack(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := DefaultPolicy()
	p.TTL = 10 * time.Second
	p.StaleWhileRevalidate = 5 * time.Second

	s := Snapshot{
		Proto:      "HTTP/1.1",
		StatusCode: 200,
		Message:    "OK",
		Headers:    []Header{{Name: "A", Value: "1"}},
		Body:       []byte("x"),
		OK:         true,
	}
	e := Pack(s, now, p)

	if e.StatusLine != "HTTP/1.1 200 OK" {
		t.Errorf("StatusLine = %q", e.StatusLine)
	}
	if !e.HardExpire.Equal(now.Add(10 * time.Second)) {
		t.Errorf("HardExpire = %v, want now+10s", e.HardExpire)
	}
	if !e.SoftExpire.Equal(now.Add(15 * time.Second)) {
		t.Errorf("SoftExpire = %v, want now+15s", e.SoftExpire)
	}

	s.Body[0] = 'y'
	s.Headers[0].Value = "2"
	if string(e.Body) != "x" || e.Headers[0].Value != "1" {
		t.Error("Pack should copy headers and body")
	}

	p.StaleWhileRevalidate = -time.Second
	if e := Pack(s, now, p); e.SoftExpire.Before(e.HardExpire) {
		t.Error("SoftExpire should never precede HardExpire")
	}
}

type builderSpy struct {
	proto   string
	code    int
	message string
	headers []Header
	body    []byte
}

func (b *builderSpy) SetStatusLine(proto string, code int, message string) {
	b.proto, b.code, b.message = proto, code, message
}

func (b *builderSpy) AddHeader(name, value string) {
	b.headers = append(b.headers, Header{Name: name, Value: value})
}

func (b *builderSpy) SetBody(body []byte) {
	b.body = body
}

func TestApplyEntry(t *testing.T) {
	e := CachedEntry{
		StatusLine: "HTTP/1.0 301 Moved Permanently",
		Headers:    []Header{{Name: "Location", Value: "/b"}, {Name: "Vary", Value: "Accept-Encoding"}},
		Body:       []byte("moved"),
	}
	spy := &builderSpy{}
	ApplyEntry(&e, spy)

	if spy.proto != "HTTP/1.0" || spy.code != 301 || spy.message != "Moved Permanently" {
		t.Errorf("status line = %s %d %s", spy.proto, spy.code, spy.message)
	}
	want := []Header{
		{Name: "Location", Value: "/b"},
		{Name: "Vary", Value: "Accept-Encoding"},
		{Name: "Age", Value: "0"},
		{Name: "X-Cache", Value: "HIT"},
	}
	if !reflect.DeepEqual(spy.headers, want) {
		t.Errorf("headers = %+v, want %+v", spy.headers, want)
	}

	spy.body[0] = 'M'
	if string(e.Body) != "moved" {
		t.Error("ApplyEntry should not share the entry body")
	}
	if len(e.Headers) != 2 {
		t.Error("ApplyEntry should not modify the entry")
	}
}

func TestApplyEntry_UnparsableStatusLine(t *testing.T) {
	e := CachedEntry{StatusLine: "garbage"}
	spy := &builderSpy{}
	ApplyEntry(&e, spy)

	if spy.proto != "garbage" {
		t.Errorf("proto = %q, want %q", spy.proto, "garbage")
	}
	if spy.code != 200 || spy.message != "OK" {
		t.Errorf("code/message = %d %q, want 200 OK", spy.code, spy.message)
	}
}

func headerValues(hs []Header) map[string][]string {
	m := make(map[string][]string)
	for _, h := range hs {
		m[h.Name] = append(m[h.Name], h.Value)
	}
	return m
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
