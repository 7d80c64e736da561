package util_test

import (
	"context"
	"testing"
	"time"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	if !util.DirExists(dir) {
		t.Errorf("Expected DirExists to return true for existing dir")
	}
	if util.DirExists(dir + "-notfound") {
		t.Errorf("Expected DirExists to return false for non-existent dir")
	}
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		dur      time.Duration
		expected string
	}{
		{time.Second * 5, "5 seconds"},
		{time.Second * 65, "1 minute, 5 seconds"},
		{time.Second * 3665, "1 hour, 1 minute, 5 seconds"},
		{time.Second * 3600, "1 hour, 0 minutes, 0 seconds"},
		{time.Second * 1, "1 second"},
	}
	for _, c := range cases {
		got := util.FormatUptime(c.dur)
		if got != c.expected {
			t.Errorf("FormatUptime(%v) = %q, want %q", c.dur, got, c.expected)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		seconds  int
		expected string
	}{
		{60, "01:00"},
		{59, "00:59"},
		{9, "00:09"},
		{0, "00:00"},
		{-3, "00:00"},
		{125, "02:05"},
	}
	for _, c := range cases {
		if got := util.FormatClock(c.seconds); got != c.expected {
			t.Errorf("FormatClock(%d) = %q, want %q", c.seconds, got, c.expected)
		}
	}
}

func TestPlural(t *testing.T) {
	if util.Plural(1) != "" {
		t.Errorf("Plural(1) = %q, want \"\"", util.Plural(1))
	}
	if util.Plural(2) != "s" {
		t.Errorf("Plural(2) = %q, want \"s\"", util.Plural(2))
	}
	if util.Plural(0) != "s" {
		t.Errorf("Plural(0) = %q, want \"s\"", util.Plural(0))
	}
}

func TestRequestID(t *testing.T) {
	if got := util.RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on bare context = %q, want empty", got)
	}
	ctx := context.WithValue(context.Background(), constants.RequestIDKey, "abc")
	if got := util.RequestID(ctx); got != "abc" {
		t.Errorf("RequestID = %q, want abc", got)
	}
}
