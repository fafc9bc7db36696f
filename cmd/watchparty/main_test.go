package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"watchparty/internal/api"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{`true`, true},
		{`42`, 42.0},
		{`"quoted"`, "quoted"},
		{`dark`, "dark"},
		{`{"a":1}`, map[string]any{"a": 1.0}},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestHeaderOptions(t *testing.T) {
	opts, err := headerOptions([]string{"X-Trace: abc", "X-Env=dev"})
	if err != nil {
		t.Fatalf("headerOptions: %v", err)
	}
	var req api.Request
	for _, opt := range opts {
		opt(&req)
	}
	if req.Header.Get("X-Trace") != "abc" || req.Header.Get("X-Env") != "dev" {
		t.Fatalf("headers = %v", req.Header)
	}

	if _, err := headerOptions([]string{"novalue"}); err == nil {
		t.Fatal("accepted header without separator")
	}
}

func TestPrintResponse(t *testing.T) {
	var buf bytes.Buffer
	err := printResponse(&buf, api.Raw{Data: json.RawMessage(`{"id":3}`), Status: http.StatusOK}, true)
	if err != nil || strings.TrimSpace(buf.String()) != `{"id":3}` {
		t.Fatalf("raw output = %q, err %v", buf.String(), err)
	}

	err = printResponse(&buf, api.Raw{Error: "Mock data not found for GET /x/", Status: http.StatusNotFound}, false)
	if err == nil || !strings.Contains(err.Error(), "Mock data not found for GET /x/") {
		t.Fatalf("error = %v", err)
	}
}

func TestPrintEvent_Raw(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, time.Now(), "echo", json.RawMessage(`{"a":1}`), true)
	if got := strings.TrimSpace(buf.String()); got != `{"type":"echo","data":{"a":1}}` {
		t.Fatalf("line = %s", got)
	}

	buf.Reset()
	printEvent(&buf, time.Now(), "ping", nil, true)
	if got := strings.TrimSpace(buf.String()); got != `{"type":"ping","data":null}` {
		t.Fatalf("line = %s", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "amqp://x"); got != "amqp://x" {
		t.Fatalf("firstNonEmpty = %q", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Fatalf("firstNonEmpty() = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"dark", "dark"},
		{3.0, "3"},
		{map[string]any{"a": true}, `{"a":true}`},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
