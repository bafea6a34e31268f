package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/weathrguessr/cities"
)

type fakeForecasts struct {
	mu    sync.Mutex
	high  int
	low   int
	err   error
	calls int

	// When set, the first call signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeForecasts) HighLow(ctx context.Context, lat, lon float64) (int, int, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first && f.release != nil {
		close(f.entered)
		<-f.release
	}

	return f.high, f.low, f.err
}

type fakeImages struct{}

func (fakeImages) CityImage(_ context.Context, name string) string {
	return "https://example.com/" + name + ".jpg"
}

type blockingForecasts struct{}

func (blockingForecasts) HighLow(ctx context.Context, _, _ float64) (int, int, error) {
	<-ctx.Done()

	return 0, 0, ctx.Err()
}

var testCatalog = []cities.City{
	{Name: "Lima", Country: "Peru", Lat: -12.0464, Lon: -77.0428},
}

func newTestController(t *testing.T, f Forecaster) *Controller {
	t.Helper()

	c, err := NewController(Options{
		Forecasts: f,
		Images:    fakeImages{},
		Catalog:   testCatalog,
		Generator: seeded(42),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	return c
}

func TestNewControllerValidation(t *testing.T) {
	if _, err := NewController(Options{Images: fakeImages{}, Catalog: testCatalog}); err == nil {
		t.Error("expected error without a forecast source")
	}
	if _, err := NewController(Options{Forecasts: &fakeForecasts{}, Catalog: testCatalog}); err == nil {
		t.Error("expected error without an image source")
	}
	if _, err := NewController(Options{Forecasts: &fakeForecasts{}, Images: fakeImages{}}); !errors.Is(err, ErrNoCities) {
		t.Errorf("expected ErrNoCities, got %v", err)
	}
}

func TestStartRound(t *testing.T) {
	c := newTestController(t, &fakeForecasts{high: 24, low: 15})

	if c.Current().State != Loading {
		t.Fatalf("expected a new controller to be loading, got %s", c.Current().State)
	}

	round, err := c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	if round.State != Waiting {
		t.Errorf("expected waiting, got %s", round.State)
	}
	if round.ID == "" {
		t.Error("expected a round ID")
	}
	if round.City.Name != "Lima" {
		t.Errorf("expected Lima, got %s", round.City.Name)
	}
	if round.ImageURL != "https://example.com/Lima.jpg" {
		t.Errorf("unexpected image URL %q", round.ImageURL)
	}
	if round.Truth != (TemperaturePair{High: 24, Low: 15}) {
		t.Errorf("unexpected truth %+v", round.Truth)
	}
	if got := round.Choices[round.CorrectIndex]; !got.Correct || got.Pair != round.Truth {
		t.Errorf("correct index %d points at %+v", round.CorrectIndex, got)
	}
}

func TestSubmitScoring(t *testing.T) {
	c := newTestController(t, &fakeForecasts{high: 10, low: 2})

	round, err := c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	out, ok := c.Submit(round.CorrectIndex)
	if !ok {
		t.Fatal("expected selection to be accepted")
	}
	if !out.Correct || out.Selected != round.CorrectIndex || out.Truth != round.Truth {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Stats != (Stats{Round: 2, Correct: 1, Streak: 1}) {
		t.Errorf("unexpected stats %+v", out.Stats)
	}
	if c.Current().State != Answered {
		t.Errorf("expected answered, got %s", c.Current().State)
	}

	round, err = c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	wrong := (round.CorrectIndex + 1) % ChoiceCount
	out, ok = c.Submit(wrong)
	if !ok {
		t.Fatal("expected selection to be accepted")
	}
	if out.Correct {
		t.Error("expected an incorrect outcome")
	}
	if out.CorrectIndex != round.CorrectIndex {
		t.Errorf("expected correct index %d, got %d", round.CorrectIndex, out.CorrectIndex)
	}
	if out.Stats != (Stats{Round: 3, Correct: 1, Streak: 0}) {
		t.Errorf("unexpected stats %+v", out.Stats)
	}
}

func TestSubmitIgnoredOutsideWaiting(t *testing.T) {
	c := newTestController(t, &fakeForecasts{high: 10, low: 2})

	if _, ok := c.Submit(0); ok {
		t.Error("selection before any round should be ignored")
	}
	if c.Stats() != NewStats(false) {
		t.Errorf("stats changed while loading: %+v", c.Stats())
	}

	round, err := c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	for _, idx := range []int{-1, ChoiceCount} {
		if _, ok := c.Submit(idx); ok {
			t.Errorf("out of range selection %d should be ignored", idx)
		}
	}
	if c.Current().State != Waiting {
		t.Fatalf("expected still waiting, got %s", c.Current().State)
	}

	if _, ok := c.Submit(round.CorrectIndex); !ok {
		t.Fatal("expected first selection to be accepted")
	}

	after := c.Stats()
	if _, ok := c.Submit(round.CorrectIndex); ok {
		t.Error("second selection should be ignored")
	}
	if c.Stats() != after {
		t.Errorf("stats changed after answer: %+v -> %+v", after, c.Stats())
	}
}

func TestStartRoundFetchError(t *testing.T) {
	boom := errors.New("upstream down")
	c := newTestController(t, &fakeForecasts{err: boom})

	round, err := c.StartRound(context.Background())

	var fetchErr *DataFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected DataFetchError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected error to wrap cause, got %v", err)
	}
	if fetchErr.City.Name != "Lima" {
		t.Errorf("expected failing city Lima, got %s", fetchErr.City.Name)
	}
	if round.State != Loading || c.Current().State != Loading {
		t.Errorf("expected round left loading, got %s", c.Current().State)
	}
	if c.Current().ImageURL != "" {
		t.Error("a failed round should not expose partial data")
	}
	if _, ok := c.Submit(0); ok {
		t.Error("selection on a failed round should be ignored")
	}
}

func TestStartRoundTimeout(t *testing.T) {
	c, err := NewController(Options{
		Forecasts: blockingForecasts{},
		Images:    fakeImages{},
		Catalog:   testCatalog,
		Timeout:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	_, err = c.StartRound(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if c.Current().State != Loading {
		t.Errorf("expected loading, got %s", c.Current().State)
	}
}

func TestStartRoundSuperseded(t *testing.T) {
	f := &fakeForecasts{
		high:    5,
		low:     -1,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := newTestController(t, f)

	errs := make(chan error, 1)
	go func() {
		_, err := c.StartRound(context.Background())
		errs <- err
	}()

	<-f.entered

	second, err := c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("second StartRound: %v", err)
	}

	close(f.release)

	if err := <-errs; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	current := c.Current()
	if current.ID != second.ID || current.State != Waiting {
		t.Errorf("expected the newer round to stay active, got %+v", current)
	}
}

func TestNewGameAndToggleUnit(t *testing.T) {
	c := newTestController(t, &fakeForecasts{high: 30, low: 21})

	round, err := c.StartRound(context.Background())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	c.Submit(round.CorrectIndex)

	if _, err := c.ToggleUnit(context.Background()); err != nil {
		t.Fatalf("ToggleUnit: %v", err)
	}
	if c.Stats() != NewStats(true) {
		t.Errorf("expected reset metric stats, got %+v", c.Stats())
	}

	round = c.Current()
	c.Submit(round.CorrectIndex)

	if _, err := c.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if c.Stats() != NewStats(true) {
		t.Errorf("expected counters reset and unit kept, got %+v", c.Stats())
	}
	if c.Current().State != Waiting {
		t.Errorf("expected a fresh round waiting, got %s", c.Current().State)
	}
}
