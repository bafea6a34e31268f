package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestReport(t *testing.T) {
	var out bytes.Buffer

	if err := report(&out, nil, nil); err != nil {
		t.Errorf("expected no error when both are up, got %v", err)
	}
	if strings.Count(out.String(), "Online") != 2 {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()

	err := report(&out, nil, errors.New("503"))
	if !errors.Is(err, errUpstreamDown) {
		t.Errorf("expected errUpstreamDown, got %v", err)
	}
	if !strings.Contains(out.String(), "✅ Open-Meteo Weather API: Online") ||
		!strings.Contains(out.String(), "❌ Wikimedia Commons API: Offline (503)") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestStatusCheckerTimeout(t *testing.T) {
	s := &statusChecker{
		weather: slowPinger{},
		images:  &fakeImages{},
		timeout: 20 * time.Millisecond,
	}

	start := time.Now()

	got := s.check(context.Background())
	if got.Weather || !got.Images {
		t.Errorf("unexpected status %+v", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("expected the probe to give up after its timeout")
	}
}
