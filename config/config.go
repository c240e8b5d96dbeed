// Package config loads the run configuration: browser and worker settings,
// output locations, the source rules and the entities to search for.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pevans/newshound/scraper"
)

var (
	ErrNoSources    = errors.New("no enabled sources configured")
	ErrNoEntities   = errors.New("no entities configured")
	ErrUnknownName  = errors.New("unknown name")
	ErrDuplicateKey = errors.New("duplicate source name")
)

// Config is the complete run configuration.
type Config struct {
	Browser  BrowserConfig         `yaml:"browser"`
	Search   SearchConfig          `yaml:"search"`
	Content  ContentConfig         `yaml:"content"`
	Output   OutputConfig          `yaml:"output"`
	Log      LogConfig             `yaml:"log"`
	Sources  []*scraper.SourceRule `yaml:"sources"`
	Entities []scraper.Entity      `yaml:"entities"`
}

// BrowserConfig configures the rendering sessions.
type BrowserConfig struct {
	Sessions        int      `yaml:"sessions"`
	Headless        bool     `yaml:"headless"`
	PageLoadTimeout Duration `yaml:"page_load_timeout"`
	Language        string   `yaml:"language"`
	UserAgent       string   `yaml:"user_agent"`
	ChromePath      string   `yaml:"chrome_path"`
}

// SearchConfig configures the search phase.
type SearchConfig struct {
	Workers        int      `yaml:"workers"`
	AwaitTimeout   Duration `yaml:"await_timeout"`
	MinDelay       Duration `yaml:"min_delay"`
	MaxDelay       Duration `yaml:"max_delay"`
	SettlePause    Duration `yaml:"settle_pause"`
	MaxSettleSteps int      `yaml:"max_settle_steps"`
	FeedTimeout    Duration `yaml:"feed_timeout"`
}

// ContentConfig configures the full-text phase.
type ContentConfig struct {
	Workers        int      `yaml:"workers"`
	Budget         Duration `yaml:"budget"`
	RequestTimeout Duration `yaml:"request_timeout"`
	AcceptLanguage string   `yaml:"accept_language"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	Stubs   string `yaml:"stubs"`   // JSON array of article stubs
	Content string `yaml:"content"` // .csv for CSV, anything else is SQLite
	Health  string `yaml:"health"`  // SQLite source health ledger
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Duration is a time.Duration written as a string in YAML ("30s", "2m",
// "1d").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML parses the string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// parseDuration extends time.ParseDuration to support 'd' (days)
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Try standard parsing first
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	if strings.HasSuffix(s, "d") {
		var n int
		if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &n); err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return 0, fmt.Errorf("invalid duration: %s", s)
}

// EnabledSources returns the rules not marked disabled, in file order.
func (c *Config) EnabledSources() []*scraper.SourceRule {
	var rules []*scraper.SourceRule
	for _, r := range c.Sources {
		if !r.Disabled {
			rules = append(rules, r)
		}
	}
	return rules
}

// SelectSources returns the named rules, enabled or not. No names means
// every enabled rule.
func (c *Config) SelectSources(names []string) ([]*scraper.SourceRule, error) {
	if len(names) == 0 {
		return c.EnabledSources(), nil
	}

	byName := make(map[string]*scraper.SourceRule, len(c.Sources))
	for _, r := range c.Sources {
		byName[strings.ToLower(r.Name)] = r
	}

	rules := make([]*scraper.SourceRule, 0, len(names))
	for _, name := range names {
		r, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("source %q: %w", name, ErrUnknownName)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// SelectEntities returns the named entities. No names means all of them.
func (c *Config) SelectEntities(names []string) ([]scraper.Entity, error) {
	if len(names) == 0 {
		return c.Entities, nil
	}

	entities := make([]scraper.Entity, 0, len(names))
	for _, name := range names {
		found := false
		for _, e := range c.Entities {
			if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
				entities = append(entities, e)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("entity %q: %w", name, ErrUnknownName)
		}
	}
	return entities, nil
}

// Validate checks the whole configuration, including every source rule.
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.Sessions < 1 {
		errs = append(errs, errors.New("browser.sessions must be at least 1"))
	}
	if c.Browser.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("browser.page_load_timeout must be positive"))
	}
	if c.Search.Workers < 1 {
		errs = append(errs, errors.New("search.workers must be at least 1"))
	}
	if c.Search.AwaitTimeout <= 0 {
		errs = append(errs, errors.New("search.await_timeout must be positive"))
	}
	if c.Search.MinDelay < 0 || c.Search.MaxDelay < c.Search.MinDelay {
		errs = append(errs, errors.New("search.min_delay must be between 0 and search.max_delay"))
	}
	if c.Search.MaxSettleSteps < 1 {
		errs = append(errs, errors.New("search.max_settle_steps must be at least 1"))
	}
	if c.Content.Workers < 1 {
		errs = append(errs, errors.New("content.workers must be at least 1"))
	}
	if c.Content.Budget <= 0 {
		errs = append(errs, errors.New("content.budget must be positive"))
	}

	seen := map[string]bool{}
	for _, r := range c.Sources {
		key := strings.ToLower(r.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateKey, r.Name))
		}
		seen[key] = true
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(c.EnabledSources()) == 0 {
		errs = append(errs, ErrNoSources)
	}

	if len(c.Entities) == 0 {
		errs = append(errs, ErrNoEntities)
	}
	for _, e := range c.Entities {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
