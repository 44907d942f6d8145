package eventlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/syncfix/syncfix/internal/domain"
)

func ev(level domain.LogLevel, msg string) domain.LogEvent {
	return domain.LogEvent{Level: level, Source: "test", Message: msg}
}

// ─── Logrus ─────────────────────────────────────────────────────────────────

func TestLogrusSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	sink := NewLogrusSink(logger)
	sink.Emit(domain.LogEvent{Level: domain.LevelSuccess, Source: "orchestrator", RunID: "r-1", Message: "sync fixed"})
	sink.Emit(ev(domain.LevelWarning, "stop failed"))

	out := buf.String()
	for _, want := range []string{"level=info", "success=true", "run_id=r-1", "source=orchestrator", "level=warning"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// ─── Ring ───────────────────────────────────────────────────────────────────

func TestRing_Wraps(t *testing.T) {
	r := NewRing(3, domain.LevelDebug)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(ev(domain.LevelInfo, m))
	}

	got := r.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent() len = %d, want 3", len(got))
	}
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("Recent() = %v, want c..e", got)
	}

	last := r.Recent(1)
	if len(last) != 1 || last[0].Message != "e" {
		t.Errorf("Recent(1) = %v", last)
	}
}

func TestRing_PartialAndFiltered(t *testing.T) {
	r := NewRing(10, domain.LevelInfo)
	r.Emit(ev(domain.LevelDebug, "noise"))
	r.Emit(ev(domain.LevelInfo, "one"))

	got := r.Recent(5)
	if len(got) != 1 || got[0].Message != "one" {
		t.Errorf("Recent() = %v, want [one]", got)
	}
}

// ─── Fanout & Recorder ──────────────────────────────────────────────────────

func TestFanout(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	f := Fanout{a, nil, b}
	f.Emit(ev(domain.LevelError, "boom"))

	if a.Count(domain.LevelError) != 1 || b.Count(domain.LevelError) != 1 {
		t.Errorf("fanout counts = %d, %d; want 1, 1", a.Count(domain.LevelError), b.Count(domain.LevelError))
	}
	if msgs := a.Messages(); len(msgs) != 1 || msgs[0] != "boom" {
		t.Errorf("Messages() = %v", msgs)
	}
}
