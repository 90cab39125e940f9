// ABOUTME: Tests for the colorized slog handler
// ABOUTME: Covers level filtering and group-qualified attribute rendering

package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandler_RendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&colorHandler{level: slog.LevelInfo, out: &buf})

	logger.Info("auth failure", "reason", "bad_signature")

	out := buf.String()
	if !strings.Contains(out, "auth failure") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "reason=") || !strings.Contains(out, "bad_signature") {
		t.Errorf("output missing attr: %q", out)
	}
}

func TestColorHandler_GroupQualifiesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&colorHandler{level: slog.LevelInfo, out: &buf})

	logger.WithGroup("request").Info("handled", "route", "/healthz")
	if out := buf.String(); !strings.Contains(out, "request.route=") {
		t.Errorf("record attr not group-qualified: %q", out)
	}

	buf.Reset()
	logger.WithGroup("request").With("id", "42").Info("handled")
	if out := buf.String(); !strings.Contains(out, "request.id=") {
		t.Errorf("handler attr not group-qualified: %q", out)
	}
}

func TestColorHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&colorHandler{level: slog.LevelWarn, out: &buf})

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info record emitted below warn level: %q", buf.String())
	}

	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn record not emitted: %q", buf.String())
	}
}
