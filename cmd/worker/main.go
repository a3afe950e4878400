// -----------------------------------------------------------------------
// cmd/worker is the work-dispatch worker process: authenticates against
// the coordinator, then polls/claims/processes jobs until signaled to
// stop.
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/claim"
	"github.com/ternarybob/workdispatch/internal/common"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	crawldriver "github.com/ternarybob/workdispatch/internal/drivers/crawl"
	discoverydriver "github.com/ternarybob/workdispatch/internal/drivers/discovery"
	ingredientdriver "github.com/ternarybob/workdispatch/internal/drivers/ingredient"
	"github.com/ternarybob/workdispatch/internal/drivers/llmmatch"
	"github.com/ternarybob/workdispatch/internal/drivers/media"
	videodriver "github.com/ternarybob/workdispatch/internal/drivers/video"
	"github.com/ternarybob/workdispatch/internal/events"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
	"github.com/ternarybob/workdispatch/internal/worker"
)

// configPaths collects repeatable -config/-c flags in the order given.
type configPaths []string

func (c *configPaths) String() string {
	return strings.Join(*c, ",")
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths

	workerName   = flag.String("name", "", "worker name override")
	showVersion  = flag.Bool("version", false, "print version and exit")
	showVersionV = flag.Bool("v", false, "print version and exit (shorthand)")

	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "path to a TOML config file (repeatable)")
	flag.Var(&configFiles, "c", "path to a TOML config file (repeatable, shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Println(common.GetFullVersion())
		return
	}

	files := resolveConfigFiles(configFiles)

	config, err := common.LoadFromFiles(files...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *workerName)

	logger = common.SetupLogger(config)

	execPath, err := os.Executable()
	logsDir := "./logs"
	if err == nil {
		logsDir = filepath.Join(filepath.Dir(execPath), "logs")
	}
	common.InstallCrashHandler(logsDir)

	common.PrintBanner(config, logger)

	logger.Info().
		Strs("config_files", files).
		Str("coordinator_url", config.Coordinator.URL).
		Msg("worker configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	loop, err := buildLoop(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build worker")
		os.Exit(1)
	}

	if err := loop.Authenticate(ctx); err != nil {
		logger.Error().Err(err).Msg("authentication with coordinator failed")
		os.Exit(1)
	}
	logger.Info().Str("worker_id", loop.WorkerID).Msg("authenticated with coordinator")
	loop.Claim = claim.New(loop.Client, loop.WorkerID, config.Worker.JobTimeout(), logger)

	if err := loop.Watchdog.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start heartbeat watchdog")
		os.Exit(1)
	}
	defer loop.Watchdog.Stop()

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("worker loop exited with error")
	}

	common.PrintShutdownBanner(logger)
	common.Stop()
}

// resolveConfigFiles falls back to well-known relative paths when no
// -config flag was given, mirroring the coordinator's own auto-discovery.
func resolveConfigFiles(explicit configPaths) []string {
	if len(explicit) > 0 {
		return explicit
	}
	candidates := []string{"worker.toml", "deployments/local/worker.toml"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return []string{c}
		}
	}
	return nil
}

// buildLoop wires every dependency the worker loop needs: the coordinator
// client, claim engine, event sink, heartbeat watchdog, and one driver
// bundle per job type.
func buildLoop(config *common.Config, logger arbor.ILogger) (*worker.Loop, error) {
	client := coordinator.New(coordinator.Config{
		BaseURL:        config.Coordinator.URL,
		APIKey:         config.Coordinator.APIKey,
		RequestTimeout: config.Crawler.RequestTimeout,
		RateLimit:      config.Coordinator.RateLimit,
		RetryFor:       config.Coordinator.RetryFor,
	}, logger)

	crawlDriver, err := crawldriver.New(crawldriver.Config{
		UserAgent:      config.Crawler.UserAgent,
		RequestTimeout: config.Crawler.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build crawl driver: %w", err)
	}

	discoveryDriver := discoverydriver.New(config.Crawler.UserAgent, config.Crawler.RequestTimeout, logger)
	ingredientDriver := ingredientdriver.New(config.Ingredient.BaseURL, config.Crawler.UserAgent, config.Ingredient.RequestTimeout, logger)
	videoDriver := videodriver.New(config.Crawler.UserAgent, config.Video.RequestTimeout, logger)
	mediaFetcher := media.New(config.Crawler.UserAgent, config.Crawler.RequestTimeout)

	videoMatcher := llmmatch.New(llmmatch.Config{
		APIKey:    config.Claude.APIKey,
		Model:     config.Claude.Model,
		MaxTokens: config.Claude.MaxTokens,
		Timeout:   config.Claude.Timeout,
	}, logger)
	aggregationMatcher := llmmatch.New(llmmatch.Config{
		APIKey:    config.Claude.APIKey,
		Model:     config.Claude.Model,
		MaxTokens: config.Claude.MaxTokens,
		Timeout:   config.Claude.Timeout,
	}, logger)

	jobTimeout := config.Worker.JobTimeout()

	// WorkerID is unknown until Authenticate() runs; the configured name
	// stands in for it until then, and main rebuilds the claim engine with
	// the coordinator-assigned ID once authentication succeeds.
	workerID := config.Worker.Name

	loop := &worker.Loop{
		Client:   client,
		Config:   config,
		Logger:   logger,
		Claim:    claim.New(client, workerID, jobTimeout, logger),
		Events:   events.New(client, logger, "worker"),
		Watchdog: heartbeat.NewWatchdog(logger, jobTimeout),
		WorkerID: workerID,
		Drivers: &worker.Drivers{
			Crawl:          &worker.CrawlDrivers{Driver: crawlDriver},
			Discovery:      &worker.DiscoveryDrivers{Driver: discoveryDriver},
			Ingredient:     &worker.IngredientDrivers{Driver: ingredientDriver},
			VideoDiscovery: &worker.VideoDiscoveryDrivers{Driver: videoDriver, MediaFetcher: mediaFetcher},
			VideoProcessing: &worker.VideoProcessingDrivers{
				Driver:          videoDriver,
				Matcher:         videoMatcher,
				SpeechToTextBin: config.Video.SpeechToTextBin,
			},
			Aggregation: &worker.AggregationDrivers{
				Matcher:    aggregationMatcher,
				FullEnrich: config.Video.FullEnrich,
			},
		},
	}

	return loop, nil
}
