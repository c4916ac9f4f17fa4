package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/config"
	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/filter"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
	"github.com/jmagar/bookbeat-cli/internal/tag"
	"github.com/jmagar/bookbeat-cli/internal/ui"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	args := config.ParseArgs()

	loader := config.NewLoader()
	cfg, err := loader.Load(args.Config)
	if err != nil {
		ui.PrintError("Failed to load config: " + err.Error())
		return exitFailure
	}
	config.Apply(cfg, args)
	if err := config.Normalize(cfg); err != nil {
		ui.PrintError("Invalid configuration: " + err.Error())
		return exitUsage
	}

	logger, logCloser, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		ui.PrintWarning("Logging disabled: " + err.Error())
		logger, logCloser = config.NullLogger(), io.NopCloser(nil)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history *store.History
	if !cfg.Download.SkipHistory || args.History {
		history, err = store.OpenHistory(cfg.Paths.HistoryFile)
		if err != nil {
			ui.PrintError("Failed to open download history: " + err.Error())
			return exitFailure
		}
		defer history.Close()
	}
	if args.History {
		if err := printHistory(history); err != nil {
			ui.PrintError(err.Error())
			return exitFailure
		}
		return exitOK
	}

	src, err := sourcesFromArgs(args)
	if err != nil {
		ui.PrintError(err.Error())
		return exitUsage
	}
	if !args.HasSources() {
		ui.PrintWarning("Nothing to download. Pass --id, --author, --narrator, --series, --query, --audioisbn or --ebookisbn.")
		return exitUsage
	}

	if created, err := loader.EnsureDeviceID(cfg); err != nil {
		logger.Warn("failed to persist device id", "error", err)
	} else if created {
		logger.Info("generated device id", "config", loader.Path())
	}

	printEnvironment(loader.Path(), cfg)

	reqLog, reqCloser, err := api.OpenRequestLog(cfg.Logging.APIFile)
	if err != nil {
		logger.Warn("request log disabled", "error", err)
		reqLog, reqCloser = nil, io.NopCloser(nil)
	}
	defer reqCloser.Close()

	httpClient := api.NewHTTPClient()
	client := api.NewClient(api.Options{
		Endpoints:      api.NewEndpoints(cfg.API.StatusURL, cfg.API.BaseURL, cfg.API.SearchURL),
		HTTPClient:     httpClient,
		DeviceID:       cfg.DeviceID,
		Market:         cfg.Market,
		AcceptLanguage: cfg.API.AcceptLanguage,
		RateLimit:      cfg.API.RateLimit,
		RateBurst:      cfg.API.RateBurst,
		RequestLog:     reqLog,
	})

	tokens := store.NewFileTokenStore(cfg.Paths.TokenFile)
	if args.ForceFetch {
		if err := tokens.Clear(); err != nil {
			ui.PrintWarning("Failed to remove stored token: " + err.Error())
		}
	}

	prompter := ui.NewPrompter()
	sessions := api.NewSessionManager(client, tokens, logger)
	sess, err := openSession(ctx, sessions, tokens, cfg, prompter, logger)
	if err != nil {
		return fail(ctx, logger, "Sign in failed", err)
	}
	catalog := api.NewCatalog(sess)
	if _, err := checkSubscription(ctx, catalog, prompter); err != nil {
		if errors.Is(err, errNotSubscribed) {
			ui.PrintInfo("Stopped.")
			return exitOK
		}
		return fail(ctx, logger, "Profile check failed", err)
	}

	opts := download.Options{
		OutPath:        cfg.Download.OutPath,
		SizePolicy:     model.SizePolicy(cfg.Download.SizePolicy),
		StreamFallback: cfg.Download.StreamFallback,
		Reporter:       download.NewConsoleReporter(cfg.Download.Workers == 1 && term.IsTerminal(int(os.Stdout.Fd()))),
		Logger:         logger,
	}
	if history != nil {
		opts.History = history
	}
	fetcher := download.NewFetcher(httpClient)
	if cfg.Formats().Audio && cfg.Download.Tag {
		if bin, err := tag.ResolveFFmpeg(cfg.Download.FFmpeg); err != nil {
			ui.PrintWarning("Tagging disabled: " + err.Error())
		} else {
			opts.Tagger = tag.NewFFmpegTagger(bin, fetcher)
		}
	}
	downloader := download.NewDownloader(api.NewResolver(catalog), fetcher, opts)

	skipped := 0
	p := &planner{
		catalog:   catalog,
		market:    cfg.Market,
		languages: cfg.Search.Languages,
		sfw:       cfg.Search.SFW,
		pageSize:  cfg.Search.PageSize,
		formats:   cfg.Formats(),
		matcher:   filter.NewMatcher(args.Match),
		logger:    logger,
		onSkip: func(what string, err error) {
			skipped++
			ui.PrintError(fmt.Sprintf("%s: %v", what, err))
		},
	}

	pool := download.NewPool(downloader, cfg.Download.Workers)
	summary, err := pool.Run(ctx, p.Jobs(ctx, src), printResult)
	summary.Failed += skipped
	printSummary(summary)
	if err != nil {
		return fail(ctx, logger, "Run aborted", err)
	}
	if summary.Failed > 0 {
		return exitFailure
	}
	return exitOK
}

// fail reports err and picks the exit code.
func fail(ctx context.Context, logger *slog.Logger, what string, err error) int {
	if ctx.Err() != nil {
		ui.PrintWarning("Interrupted")
		return exitInterrupted
	}
	logger.Error(strings.ToLower(what), "error", err)
	ui.PrintError(fmt.Sprintf("%s: %v", what, err))
	return exitFailure
}
