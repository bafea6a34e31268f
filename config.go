package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Seednode/weathrguessr/forecast"
	"github.com/Seednode/weathrguessr/imagery"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	cacheTTL       time.Duration
	commonsURL     string
	database       string
	fetchAttempts  uint
	fetchTimeout   time.Duration
	placeholderURL string
	port           int
	prefix         string
	prefsRetention time.Duration
	profile        bool
	pruneSchedule  string
	publicURL      string
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	weatherURL     string
	wikipediaURL   string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.prefsRetention <= 0 {
		return fmt.Errorf("invalid preference retention (must be positive): %s", c.prefsRetention)
	}
	if err := checkURL("--public-url", c.publicURL); err != nil {
		return err
	}
	return c.validateUpstreams()
}

// validateUpstreams covers the settings shared with the check subcommand.
func (c *Config) validateUpstreams() error {
	if c.fetchAttempts < 1 {
		return fmt.Errorf("invalid fetch attempts (must be at least 1): %d", c.fetchAttempts)
	}
	if c.fetchTimeout < 0 {
		return fmt.Errorf("invalid fetch timeout (must not be negative): %s", c.fetchTimeout)
	}
	for _, u := range []struct{ name, raw string }{
		{"--weather-url", c.weatherURL},
		{"--commons-url", c.commonsURL},
		{"--wikipedia-url", c.wikipediaURL},
		{"--placeholder-url", c.placeholderURL},
	} {
		if err := checkURL(u.name, u.raw); err != nil {
			return err
		}
	}
	return nil
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s (must be an absolute URL): %q", name, raw)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) forecastClient() *forecast.Client {
	return forecast.New(forecast.Options{
		BaseURL:  c.weatherURL,
		Attempts: c.fetchAttempts,
		CacheTTL: c.cacheTTL,
		Logf: func(format string, args ...any) {
			logf(c, format, args...)
		},
	})
}

func (c *Config) imageryClient() *imagery.Client {
	return imagery.New(imagery.Options{
		CommonsURL:     c.commonsURL,
		WikipediaURL:   c.wikipediaURL,
		PlaceholderURL: c.placeholderURL,
		CacheTTL:       c.cacheTTL,
		Logf: func(format string, args ...any) {
			logf(c, format, args...)
		},
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WEATHRGUESSR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "weathrguessr",
		Short:         "Guess today's high and low for a random city.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	normalize := func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}

	// Upstream settings are shared with the check subcommand.
	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(normalize)

	pfs.StringVar(&cfg.commonsURL, "commons-url", imagery.DefaultCommonsURL, "wikimedia commons api endpoint (env: WEATHRGUESSR_COMMONS_URL)")
	pfs.UintVar(&cfg.fetchAttempts, "fetch-attempts", 1, "tries per forecast lookup, 1 disables retries (env: WEATHRGUESSR_FETCH_ATTEMPTS)")
	pfs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 10*time.Second, "time allowed to load a round, 0 to wait forever (env: WEATHRGUESSR_FETCH_TIMEOUT)")
	pfs.StringVar(&cfg.placeholderURL, "placeholder-url", imagery.DefaultPlaceholderURL, "image url prefix used when no city photo is found (env: WEATHRGUESSR_PLACEHOLDER_URL)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WEATHRGUESSR_VERBOSE)")
	pfs.StringVar(&cfg.weatherURL, "weather-url", forecast.DefaultURL, "open-meteo forecast endpoint (env: WEATHRGUESSR_WEATHER_URL)")
	pfs.StringVar(&cfg.wikipediaURL, "wikipedia-url", imagery.DefaultWikipediaURL, "wikipedia article prefix for fallback images (env: WEATHRGUESSR_WIKIPEDIA_URL)")

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WEATHRGUESSR_BIND)")
	fs.DurationVar(&cfg.cacheTTL, "cache-ttl", 30*time.Minute, "time to cache forecasts and images, 0 to disable (env: WEATHRGUESSR_CACHE_TTL)")
	fs.StringVar(&cfg.database, "database", "weathrguessr.db", "path to preference database, empty for in-memory (env: WEATHRGUESSR_DATABASE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WEATHRGUESSR_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WEATHRGUESSR_PREFIX)")
	fs.DurationVar(&cfg.prefsRetention, "prefs-retention", 90*24*time.Hour, "time before unchanged preferences are forgotten (env: WEATHRGUESSR_PREFS_RETENTION)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WEATHRGUESSR_PROFILE)")
	fs.StringVar(&cfg.pruneSchedule, "prune-schedule", "@daily", "cron schedule for pruning stale preferences (env: WEATHRGUESSR_PRUNE_SCHEDULE)")
	fs.StringVar(&cfg.publicURL, "public-url", "https://weathrguessr.com", "url advertised in shared results (env: WEATHRGUESSR_PUBLIC_URL)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: WEATHRGUESSR_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WEATHRGUESSR_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WEATHRGUESSR_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WEATHRGUESSR_VERSION)")

	for _, set := range []*pflag.FlagSet{pfs, fs} {
		set.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				_ = set.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
			}
		})
	}

	cmd.AddCommand(newCheckCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("weathrguessr v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
