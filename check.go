/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// APIStatusMessage reports whether each upstream answered a probe.
type APIStatusMessage struct {
	Type    string `json:"type"` // "api_status"
	Weather bool   `json:"weather"`
	Images  bool   `json:"images"`
}

type statusChecker struct {
	weather pinger
	images  pinger
	timeout time.Duration
}

func (s *statusChecker) probe(ctx context.Context) (weather, images error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		images = s.images.Ping(ctx)
	}()

	weather = s.weather.Ping(ctx)

	wg.Wait()

	return weather, images
}

func (s *statusChecker) check(ctx context.Context) APIStatusMessage {
	weather, images := s.probe(ctx)

	return APIStatusMessage{
		Type:    "api_status",
		Weather: weather == nil,
		Images:  images == nil,
	}
}

func serveAPIStatus(cfg *Config, status *statusChecker, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(status.check(r.Context()))
		if err != nil {
			errs <- err

			http.Error(w, "unable to encode status", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: API status (%s) to %s in %s",
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

var errUpstreamDown = errors.New("one or more upstream APIs are unavailable")

// report prints one line per upstream and returns errUpstreamDown if any
// probe failed.
func report(w io.Writer, weather, images error) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	var failed bool

	for _, api := range []struct {
		name string
		err  error
	}{
		{"Open-Meteo Weather API", weather},
		{"Wikimedia Commons API", images},
	} {
		if api.err == nil {
			ok.Fprintf(w, "✅ %s: Online\n", api.name)

			continue
		}

		failed = true
		bad.Fprintf(w, "❌ %s: Offline (%v)\n", api.name, api.err)
	}

	if failed {
		return errUpstreamDown
	}

	return nil
}

func newCheckCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the weather and image APIs are reachable.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateUpstreams(); err != nil {
				return err
			}

			status := &statusChecker{
				weather: cfg.forecastClient(),
				images:  cfg.imageryClient(),
				timeout: cfg.fetchTimeout,
			}

			weather, images := status.probe(cmd.Context())

			if err := report(cmd.OutOrStdout(), weather, images); err != nil {
				return fmt.Errorf("check: %w", err)
			}

			return nil
		},
	}
}
