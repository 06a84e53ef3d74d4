package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/rohmanhakim/smoothstate/pkg/retry"
	"github.com/rohmanhakim/smoothstate/pkg/timeutil"
)

type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatHTML     OutputFormat = "html"
)

type Config struct {
	//===============
	//  Page
	//===============
	// Page the headless tab opens first.
	startURL url.URL
	// Id of the element bound as the smoothState container.
	containerID string

	//===============
	// Navigation
	//===============
	// Selector of the links that are intercepted
	anchors string
	// Selector of the links that are never intercepted
	blacklist string
	// Fetch pages as soon as their links are hovered
	prefetch bool
	// Report missing content instead of falling back to a full navigation
	development bool
	// Number of records above which the page cache is wiped
	pageCacheSize int
	// How long the start and end phases last. The progress phase reuses the
	// start duration, so it has no setting of its own
	startDuration time.Duration
	endDuration   time.Duration
	// Finish a phase as soon as the animations inside the container end
	advanceOnAnimationEnd bool

	//===============
	// Politeness
	//===============
	// Maximum number of pages prefetched concurrently
	concurrency int
	// Minimum, fixed waiting time between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Output
	//===============
	logLevel     string
	outputFormat OutputFormat
	// Directory the visit command saves container snapshots to. Empty disables saving
	outputDir string
}

type configDTO struct {
	StartURL               string        `json:"startUrl"`
	ContainerID            string        `json:"containerId"`
	Anchors                string        `json:"anchors,omitempty"`
	Blacklist              string        `json:"blacklist,omitempty"`
	Prefetch               bool          `json:"prefetch,omitempty"`
	Development            bool          `json:"development,omitempty"`
	PageCacheSize          int           `json:"pageCacheSize,omitempty"`
	StartDuration          time.Duration `json:"startDuration,omitempty"`
	EndDuration            time.Duration `json:"endDuration,omitempty"`
	AdvanceOnAnimationEnd  bool          `json:"advanceOnAnimationEnd,omitempty"`
	Concurrency            int           `json:"concurrency,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	LogLevel               string        `json:"logLevel,omitempty"`
	OutputFormat           string        `json:"outputFormat,omitempty"`
	OutputDir              string        `json:"outputDir,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	startURL, err := url.Parse(dto.StartURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: startUrl: %s", ErrInvalidConfig, err.Error())
	}

	cfg := WithDefault(*startURL, dto.ContainerID)

	// Only override if a non-zero value is provided
	if dto.Anchors != "" {
		cfg.anchors = dto.Anchors
	}
	if dto.Blacklist != "" {
		cfg.blacklist = dto.Blacklist
	}
	cfg.prefetch = dto.Prefetch
	cfg.development = dto.Development
	if dto.PageCacheSize != 0 {
		cfg.pageCacheSize = dto.PageCacheSize
	}
	if dto.StartDuration != 0 {
		cfg.startDuration = dto.StartDuration
	}
	if dto.EndDuration != 0 {
		cfg.endDuration = dto.EndDuration
	}
	cfg.advanceOnAnimationEnd = dto.AdvanceOnAnimationEnd
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.OutputFormat != "" {
		cfg.outputFormat = OutputFormat(dto.OutputFormat)
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config for the page at startURL with the
// container containerID and default values for every other field. Both are
// checked by Build.
func WithDefault(startURL url.URL, containerID string) *Config {
	defaultConfig := Config{
		startURL:               startURL,
		containerID:            containerID,
		anchors:                navigator.DefaultAnchors,
		blacklist:              navigator.DefaultBlacklist,
		prefetch:               false,
		development:            false,
		pageCacheSize:          0,
		startDuration:          0,
		endDuration:            0,
		concurrency:            4,
		baseDelay:              0,
		jitter:                 0,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             1,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                10 * time.Second,
		userAgent:              "smoothstate/1.0",
		logLevel:               "info",
		outputFormat:           FormatMarkdown,
	}
	return &defaultConfig
}

func (c *Config) WithStartURL(startURL url.URL) *Config {
	c.startURL = startURL
	return c
}

func (c *Config) WithContainerID(id string) *Config {
	c.containerID = id
	return c
}

func (c *Config) WithAnchors(selector string) *Config {
	c.anchors = selector
	return c
}

func (c *Config) WithBlacklist(selector string) *Config {
	c.blacklist = selector
	return c
}

func (c *Config) WithPrefetch(prefetch bool) *Config {
	c.prefetch = prefetch
	return c
}

func (c *Config) WithDevelopment(development bool) *Config {
	c.development = development
	return c
}

func (c *Config) WithPageCacheSize(size int) *Config {
	c.pageCacheSize = size
	return c
}

func (c *Config) WithStartDuration(d time.Duration) *Config {
	c.startDuration = d
	return c
}

func (c *Config) WithEndDuration(d time.Duration) *Config {
	c.endDuration = d
	return c
}

func (c *Config) WithAdvanceOnAnimationEnd(advance bool) *Config {
	c.advanceOnAnimationEnd = advance
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithOutputFormat(format OutputFormat) *Config {
	c.outputFormat = format
	return c
}

func (c *Config) WithOutputDir(dir string) *Config {
	c.outputDir = dir
	return c
}

func (c *Config) Build() (Config, error) {
	if c.startURL.Scheme != "http" && c.startURL.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: startUrl must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.startURL.String())
	}
	if c.startURL.Host == "" {
		return Config{}, fmt.Errorf("%w: startUrl has no host", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.containerID) == "" {
		return Config{}, fmt.Errorf("%w: containerId cannot be empty", ErrInvalidConfig)
	}
	if c.pageCacheSize < 0 {
		return Config{}, fmt.Errorf("%w: pageCacheSize cannot be negative", ErrInvalidConfig)
	}
	if c.startDuration < 0 || c.endDuration < 0 {
		return Config{}, fmt.Errorf("%w: phase durations cannot be negative", ErrInvalidConfig)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	switch c.outputFormat {
	case FormatMarkdown, FormatHTML:
	default:
		return Config{}, fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.outputFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.logLevel)
	}

	return *c, nil
}

func (c Config) StartURL() url.URL {
	return c.startURL
}

func (c Config) ContainerID() string {
	return c.containerID
}

func (c Config) Anchors() string {
	return c.anchors
}

func (c Config) Blacklist() string {
	return c.blacklist
}

func (c Config) Prefetch() bool {
	return c.prefetch
}

func (c Config) Development() bool {
	return c.development
}

func (c Config) PageCacheSize() int {
	return c.pageCacheSize
}

func (c Config) StartDuration() time.Duration {
	return c.startDuration
}

func (c Config) EndDuration() time.Duration {
	return c.endDuration
}

func (c Config) AdvanceOnAnimationEnd() bool {
	return c.advanceOnAnimationEnd
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) OutputFormat() OutputFormat {
	return c.outputFormat
}

func (c Config) OutputDir() string {
	return c.outputDir
}

// NavigatorOptions maps the navigation settings onto controller options.
// Render hooks are left unset so the controller's defaults apply.
func (c Config) NavigatorOptions() navigator.Options {
	return navigator.Options{
		Anchors:               c.anchors,
		Prefetch:              c.prefetch,
		Blacklist:             c.blacklist,
		Development:           c.development,
		PageCacheSize:         c.pageCacheSize,
		OnStart:               navigator.Phase{Duration: c.startDuration},
		OnEnd:                 navigator.Phase{Duration: c.endDuration},
		AdvanceOnAnimationEnd: c.advanceOnAnimationEnd,
	}
}

func (c Config) BackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(
		c.backoffInitialDuration,
		c.backoffMultiplier,
		c.backoffMaxDuration,
	)
}

func (c Config) RetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		c.jitter,
		c.randomSeed,
		c.maxAttempt,
		c.BackoffParam(),
	)
}
