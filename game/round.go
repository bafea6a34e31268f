/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Seednode/weathrguessr/cities"
	"github.com/google/uuid"
)

// ErrSuperseded is returned by StartRound when a newer round was started
// while this one was still loading.
var ErrSuperseded = errors.New("round superseded by a newer round")

// Forecaster looks up today's high and low, in whole degrees Celsius.
type Forecaster interface {
	HighLow(ctx context.Context, lat, lon float64) (high, low int, err error)
}

// ImageFinder returns a picture of a city. It never fails; implementations
// fall back to a placeholder.
type ImageFinder interface {
	CityImage(ctx context.Context, name string) string
}

type Options struct {
	Forecasts Forecaster
	Images    ImageFinder
	Catalog   []cities.City

	// Generator defaults to one seeded from the runtime.
	Generator *Generator

	// Timeout bounds both lookups for a round. Zero means no timeout.
	Timeout time.Duration

	Metric bool
}

// Controller drives one player's rounds: loading, waiting for an answer,
// and scoring it.
type Controller struct {
	forecasts Forecaster
	images    ImageFinder
	catalog   []cities.City
	gen       *Generator
	timeout   time.Duration

	mu    sync.Mutex
	seq   uint64
	round Round
	stats Stats
}

func NewController(opts Options) (*Controller, error) {
	if opts.Forecasts == nil {
		return nil, errors.New("a forecast source is required")
	}
	if opts.Images == nil {
		return nil, errors.New("an image source is required")
	}
	if len(opts.Catalog) == 0 {
		return nil, ErrNoCities
	}

	gen := opts.Generator
	if gen == nil {
		gen = NewGenerator(nil)
	}

	return &Controller{
		forecasts: opts.Forecasts,
		images:    opts.Images,
		catalog:   opts.Catalog,
		gen:       gen,
		timeout:   opts.Timeout,
		round:     Round{State: Loading},
		stats:     NewStats(opts.Metric),
	}, nil
}

// StartRound abandons whatever round is active, picks a new city and loads
// its image and forecast concurrently. Selections are ignored until it
// returns successfully.
//
// If the forecast can't be loaded the round stays in Loading and a
// *DataFetchError is returned; the caller may start another round.
func (c *Controller) StartRound(ctx context.Context) (Round, error) {
	return c.start(ctx, nil)
}

// start resets the stats with reset, if given, in the same critical section
// that takes the controller back to Loading.
func (c *Controller) start(ctx context.Context, reset func(Stats) Stats) (Round, error) {
	c.mu.Lock()
	if reset != nil {
		c.stats = reset(c.stats)
	}
	c.seq++
	seq := c.seq
	city := c.catalog[rand.IntN(len(c.catalog))]
	c.round = Round{
		ID:    uuid.NewString(),
		City:  city,
		State: Loading,
	}
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		wg    sync.WaitGroup
		image string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()

		image = c.images.CityImage(ctx, city.Name)
	}()

	high, low, err := c.forecasts.HighLow(ctx, city.Lat, city.Lon)

	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return Round{}, ErrSuperseded
	}

	if err != nil {
		return c.round, &DataFetchError{City: city, Err: err}
	}

	truth := TemperaturePair{High: high, Low: low}
	choices, correct := c.gen.Generate(truth)

	c.round.ImageURL = image
	c.round.Truth = truth
	c.round.Choices = choices
	c.round.CorrectIndex = correct
	c.round.State = Waiting

	return c.round, nil
}

// Submit answers the active round. It returns false, and changes nothing,
// unless the round is waiting for an answer and index names a choice.
func (c *Controller) Submit(index int) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round.State != Waiting || index < 0 || index >= ChoiceCount {
		return Outcome{}, false
	}

	correct := index == c.round.CorrectIndex

	c.round.State = Answered
	c.stats = c.stats.Record(correct)

	return Outcome{
		Correct:      correct,
		Selected:     index,
		CorrectIndex: c.round.CorrectIndex,
		Truth:        c.round.Truth,
		Stats:        c.stats,
	}, true
}

// NewGame resets the counters, keeping the unit preference, and starts a
// fresh round.
func (c *Controller) NewGame(ctx context.Context) (Round, error) {
	return c.start(ctx, func(s Stats) Stats {
		return NewStats(s.Metric)
	})
}

// ToggleUnit flips between Celsius and Fahrenheit. Switching units starts
// a new game.
func (c *Controller) ToggleUnit(ctx context.Context) (Round, error) {
	return c.start(ctx, func(s Stats) Stats {
		return NewStats(!s.Metric)
	})
}

func (c *Controller) Current() Round {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.round
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}
