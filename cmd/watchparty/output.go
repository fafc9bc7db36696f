package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchparty/internal/api"

	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle   = lipgloss.NewStyle().Faint(true)
	keyStyle    = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	methodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Width(7)

	eventStyles = map[string]lipgloss.Style{
		"user_joined":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		"chat_message": lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		"echo":         lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	}
	defaultEventStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func indentJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// printResponse writes the payload of a successful response, or returns an
// exitError describing the failure.
func printResponse(w io.Writer, resp api.Raw, raw bool) error {
	if !resp.OK() {
		return exitError{code: 1, msg: errStyle.Render(fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status))) + ": " + resp.Error}
	}
	if raw {
		fmt.Fprintln(w, string(resp.Data))
		return nil
	}
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status))))
	fmt.Fprintln(w, indentJSON(resp.Data))
	return nil
}

func printEvent(w io.Writer, at time.Time, eventType string, data json.RawMessage, raw bool) {
	if raw {
		line, err := json.Marshal(struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}{eventType, nonEmpty(data)})
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(line))
		return
	}
	style, ok := eventStyles[eventType]
	if !ok {
		style = defaultEventStyle
	}
	fmt.Fprintf(w, "%s %s %s\n", timeStyle.Render(at.Format("15:04:05")), style.Render(eventType), string(nonEmpty(data)))
}

func nonEmpty(data json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null")
	}
	return data
}

// parseValue decodes s as JSON and falls back to the literal string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// headerOptions parses "Name: value" or "Name=value" pairs.
func headerOptions(headers []string) ([]api.RequestOption, error) {
	opts := make([]api.RequestOption, 0, len(headers))
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			name, value, ok = strings.Cut(h, "=")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want Name: value)", h)
		}
		opts = append(opts, api.WithHeader(name, strings.TrimSpace(value)))
	}
	return opts, nil
}
