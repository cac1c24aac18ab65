package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/mattn/go-isatty"

	"prospector/internal/api"
	"prospector/internal/config"
	"prospector/internal/database"
	"prospector/internal/ingest"
	"prospector/internal/log"
	"prospector/internal/tui"
	"prospector/internal/voice"
	"prospector/internal/watch"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Panic recovered")
			fmt.Fprintf(os.Stderr, "prospector crashed: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		configPath  = flag.String("config", "", "config file path (default: search standard locations)")
		journalDir  = flag.String("journal", "", "override journal directory")
		dbPath      = flag.String("db", "", "override database path")
		importPath  = flag.String("import", "", "import external hotspot data from a JSON-lines file")
		watchMode   = flag.Bool("watch", false, "keep running and ingest journal writes as they happen")
		tuiMode     = flag.Bool("tui", false, "open the interactive hotspot browser")
		repair      = flag.Bool("repair", false, "run all maintenance passes (dedupe, normalize, backfill, recount)")
		dedupe      = flag.Bool("dedupe", false, "remove duplicate hotspot rows")
		renames     = flag.Bool("normalize", false, "normalize stored system/ring/material names")
		backfill    = flag.Bool("backfill", false, "propagate ring metadata across sibling hotspots")
		recount     = flag.Bool("recount", false, "recompute visit counts from recorded arrivals")
		voiceCmd    = flag.String("voice", "", "send a command to the voice-automation mailbox and print the reply")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("prospector %s (%s, built %s)\n", version, commit, date)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *journalDir != "" {
		cfg.Journal.Dir = *journalDir
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	initLogging(cfg, *tuiMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *voiceCmd != "" {
		runVoice(ctx, cfg, *voiceCmd)
		return
	}

	db := database.New()
	db.SetRetryPolicy(database.RetryPolicy{
		Attempts: cfg.Ingest.RetryAttempts,
		Interval: cfg.Ingest.RetryInterval,
	})
	if err := db.Open(cfg.Database.Path); err != nil {
		fmt.Fprintf(os.Stderr, "open database %s: %v\n", cfg.Database.Path, err)
		os.Exit(1)
	}
	defer db.Close()

	switch {
	case *repair, *dedupe, *renames, *backfill, *recount:
		runMaintenance(db, *repair || *dedupe, *repair || *renames, *repair || *backfill, *repair || *recount)

	case *importPath != "":
		runImport(ctx, db, *importPath)

	case *tuiMode:
		runTUI(ctx, cfg, db)

	case *watchMode:
		runWatch(ctx, cfg, db)

	default:
		runOnce(ctx, cfg, db)
	}
}

// initLogging configures the global logger from config. The TUI owns the
// terminal, so interactive mode always logs to a file.
func initLogging(cfg *config.Config, tuiMode bool) {
	format := cfg.Log.Format
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "console"
		}
	}
	log.Init(log.Config{Level: cfg.Log.Level, Format: format})

	logFile := cfg.Log.File
	if tuiMode && logFile == "" {
		logFile = "prospector.log"
	}
	if logFile != "" {
		if err := log.SetFileOutput(logFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot log to %s: %v\n", logFile, err)
		}
	}
}

// runOnce is the default mode: one ingestion pass over the journal
// directory, then a one-line summary.
func runOnce(ctx context.Context, cfg *config.Config, db database.Database) {
	runner := ingest.NewRunner(db)
	stats, err := runner.Run(ctx, cfg.Journal.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(ingest.Summary(stats))
}

func runImport(ctx context.Context, db database.Database, path string) {
	runner := ingest.NewRunner(db)
	stats, err := runner.ImportFile(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Println(ingest.Summary(stats))
}

func runWatch(ctx context.Context, cfg *config.Config, db database.Database) {
	runner := ingest.NewRunner(db)
	if stats, err := runner.Run(ctx, cfg.Journal.Dir); err == nil {
		fmt.Println(ingest.Summary(stats))
	} else {
		fmt.Fprintf(os.Stderr, "initial ingest: %v\n", err)
	}

	watcher := watch.New(runner, cfg.Journal.Dir, cfg.Watch.Debounce)
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(ctx context.Context, cfg *config.Config, db database.Database) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "the interactive browser needs a terminal; use the default one-shot mode instead")
		os.Exit(1)
	}

	runner := ingest.NewRunner(db)
	if _, err := runner.Run(ctx, cfg.Journal.Dir); err != nil {
		log.Warn().Err(err).Msg("Initial ingest failed, browsing stored data only")
	}

	app := tui.NewApp(api.NewService(db, cfg.Route.JumpRangeLY))
	app.SetOrigin(runner.CurrentSystem())

	watcher := watch.New(runner, cfg.Journal.Dir, cfg.Watch.Debounce)
	watcher.OnStats = func(stats *ingest.RunStats) {
		app.SetOrigin(runner.CurrentSystem())
		app.ReportStats(stats)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := watcher.Run(watchCtx); err != nil && watchCtx.Err() == nil {
			log.Error().Err(err).Msg("Journal watcher stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}

func runMaintenance(db database.Database, dedupe, renames, backfill, recount bool) {
	run := func(name string, fn func() (int, error)) {
		n, err := fn()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d rows affected\n", name, n)
	}
	if dedupe {
		run("dedupe", db.RemoveDuplicateHotspots)
	}
	if renames {
		run("normalize", db.NormalizeNames)
	}
	if backfill {
		run("backfill", db.BackfillRingMetadata)
	}
	if recount {
		run("recount", db.RecomputeVisitCounts)
	}
}

func runVoice(ctx context.Context, cfg *config.Config, command string) {
	mailbox := voice.NewMailbox(cfg.Voice.Dir, cfg.Voice.PollInterval, cfg.Voice.Timeout)
	reply, err := mailbox.Send(ctx, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voice: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(reply)
}
