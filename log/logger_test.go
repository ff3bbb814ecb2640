package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	type spec struct {
		in     string
		expLvl Level
		expErr bool
	}
	specs := []spec{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"", Notice, false},
		{"warn", Warning, false},
		{"error", Error, false},
		{"chatty", Notice, true},
	}

	for index, s := range specs {
		lvl, err := ParseLevel(s.in)
		if s.expErr != (err != nil) {
			t.Fatalf("[spec %d] expected error to be %t; got %v", index, s.expErr, err)
		}
		if lvl != s.expLvl {
			t.Fatalf("[spec %d] expected level %d; got %d", index, s.expLvl, lvl)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)
	SetLevel(Warning)
	defer SetLevel(Notice)

	logger := New("test")
	logger.Info("hidden")
	logger.Warning("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info message to be filtered; got %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "[test]") {
		t.Fatalf("expected warning message with module name; got %q", out)
	}
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)
	defer SetLevel(Notice)

	if err := Configure("warning, chatty module=debug"); err != nil {
		t.Fatal(err)
	}

	quiet := New("quiet module")
	chatty := New("chatty module")
	quiet.Info("quiet-info")
	chatty.Debug("chatty-debug")

	out := buf.String()
	if strings.Contains(out, "quiet-info") {
		t.Fatalf("expected info message from quiet module to be filtered; got %q", out)
	}
	if !strings.Contains(out, "chatty-debug") {
		t.Fatalf("expected debug message from chatty module; got %q", out)
	}

	specs := []string{"loud", "=debug", "renderer=loud"}
	for index, s := range specs {
		if err := Configure(s); err == nil {
			t.Fatalf("[spec %d] expected an error for %q", index, s)
		}
	}
}
