package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile       string
	startURL      string
	containerID   string
	anchors       string
	blacklist     string
	prefetch      bool
	development   bool
	pageCacheSize int
	startDuration time.Duration
	endDuration   time.Duration
	userAgent     string
	timeout       time.Duration
	maxAttempt    int
	baseDelay     time.Duration
	jitter        time.Duration
	randomSeed    int64
	logLevel      string
	outputFormat  string
	concurrency   int
	outputDir     string
	follows       []string
)

// NewRootCommand builds the command tree. Flags are bound to the package
// level variables, so only one tree should be live at a time.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smoothstate",
		Short: "A headless smoothState navigation engine.",
		Long: `smoothstate loads a page into a headless tab, binds a smoothState
controller to one of its containers and lets you click through the site the
way the browser plugin would: internal links swap the container's content in
place, history entries pop back, and anything the controller cannot handle
falls back to a full page load.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/smoothstate.json)")
	flags.StringVar(&startURL, "url", "", "page to open")
	flags.StringVar(&containerID, "container", "", "id of the element bound as the container")
	flags.StringVar(&anchors, "anchors", "", "selector of the links to intercept")
	flags.StringVar(&blacklist, "blacklist", "", "selector of the links never intercepted")
	flags.BoolVar(&prefetch, "prefetch", false, "fetch pages when their links are hovered")
	flags.BoolVar(&development, "development", false, "report missing content instead of falling back, and log in development format")
	flags.IntVar(&pageCacheSize, "page-cache-size", 0, "number of cached pages above which the cache is wiped")
	flags.DurationVar(&startDuration, "start-duration", 0, "duration of the start phase, also used as the progress phase's duration")
	flags.DurationVar(&endDuration, "end-duration", 0, "duration of the end phase")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	flags.IntVar(&maxAttempt, "max-attempt", 0, "attempts per page request")
	flags.DurationVar(&baseDelay, "base-delay", 0, "base delay between HTTP requests to the same host")
	flags.DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&outputFormat, "format", "", "container output: markdown or html")
	flags.IntVar(&concurrency, "concurrency", 0, "pages prefetched at once")
	flags.StringVar(&outputDir, "output-dir", "", "directory visit saves each step's container to")

	rootCmd.AddCommand(newVisitCommand(), newPrefetchCommand(), newVersionCommand())
	return rootCmd
}

// Execute runs the command tree until it finishes or the process is
// interrupted. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// InitConfigWithError builds the config from the config file when one is
// given, or from the flags otherwise.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	if startURL == "" {
		return config.Config{}, fmt.Errorf("%w: --url is required", config.ErrInvalidConfig)
	}
	parsedURL, err := url.Parse(startURL)
	if err != nil {
		return config.Config{}, fmt.Errorf("%w: error parsing --url %s: %s", config.ErrInvalidConfig, startURL, err.Error())
	}

	configBuilder := config.WithDefault(*parsedURL, containerID)

	// Override with CLI flag values where provided
	if anchors != "" {
		configBuilder = configBuilder.WithAnchors(anchors)
	}
	if blacklist != "" {
		configBuilder = configBuilder.WithBlacklist(blacklist)
	}
	if prefetch {
		configBuilder = configBuilder.WithPrefetch(prefetch)
	}
	if development {
		configBuilder = configBuilder.WithDevelopment(development)
	}
	if pageCacheSize > 0 {
		configBuilder = configBuilder.WithPageCacheSize(pageCacheSize)
	}
	if startDuration > 0 {
		configBuilder = configBuilder.WithStartDuration(startDuration)
	}
	if endDuration > 0 {
		configBuilder = configBuilder.WithEndDuration(endDuration)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}
	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if outputFormat != "" {
		configBuilder = configBuilder.WithOutputFormat(config.OutputFormat(outputFormat))
	}
	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}
	if outputDir != "" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}

	return configBuilder.Build()
}

// NewLogger builds the zap logger for cfg. Development configs get zap's
// human readable console output.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidConfig, err.Error())
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Development() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

func ResetFlags() {
	cfgFile = ""
	startURL = ""
	containerID = ""
	anchors = ""
	blacklist = ""
	prefetch = false
	development = false
	pageCacheSize = 0
	startDuration = 0
	endDuration = 0
	userAgent = ""
	timeout = 0
	maxAttempt = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	logLevel = ""
	outputFormat = ""
	concurrency = 0
	outputDir = ""
	follows = []string{}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetStartURLForTest(u string) {
	startURL = u
}

func SetContainerIDForTest(id string) {
	containerID = id
}

func SetAnchorsForTest(selector string) {
	anchors = selector
}

func SetBlacklistForTest(selector string) {
	blacklist = selector
}

func SetPrefetchForTest(p bool) {
	prefetch = p
}

func SetDevelopmentForTest(d bool) {
	development = d
}

func SetPageCacheSizeForTest(size int) {
	pageCacheSize = size
}

func SetStartDurationForTest(d time.Duration) {
	startDuration = d
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

func SetOutputFormatForTest(format string) {
	outputFormat = format
}

func SetConcurrencyForTest(c int) {
	concurrency = c
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}
