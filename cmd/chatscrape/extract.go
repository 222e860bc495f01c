package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatscrape/internal/browser"
	"chatscrape/internal/delivery"
	"chatscrape/pkg/auth"
	"chatscrape/pkg/checkpoint"
	"chatscrape/pkg/config"
	"chatscrape/pkg/dom"
	"chatscrape/pkg/driver"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/scanner"
	"chatscrape/pkg/sink"
	"chatscrape/pkg/storage"
	"chatscrape/pkg/ui"
	"chatscrape/pkg/ui/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const deliveryDrainTimeout = 30 * time.Second

var (
	targetName          string
	controlURL          string
	headless            bool
	profileName         string
	delayMin            time.Duration
	delayMax            time.Duration
	maxIterations       int
	noProgressThreshold int
	noDates             bool
	noTimestamps        bool
	sinkURL             string
	sinkFile            string
	outputDir           string
	order               string
	resumeSession       bool
	replayFrames        []string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [conversation-url]",
	Short: "Extract a conversation from a messaging page",
	Long: `Open a conversation, scroll it back to the beginning and extract every
message, date marker and sender along the way.

By default a browser is launched. Use --control-url to attach to a browser
you already logged in with, for example one started with
--remote-debugging-port=9222. Use --profile to load cookies saved with
"chatscrape session".

Press q in the TUI, or Ctrl+C, to stop after the current pass. A second
Ctrl+C aborts immediately. Stopped sessions keep their checkpoint and can
be continued with --resume.`,
	Example: `  # Attach to a running browser and extract a conversation
  chatscrape extract https://www.messenger.com/t/1234567 --control-url ws://127.0.0.1:9222/devtools/browser/abc

  # Stream lines to a local receiver, no dates
  chatscrape extract https://www.messenger.com/t/1234567 --sink-url http://127.0.0.1:8765/lines --no-dates

  # Replay saved snapshots instead of a live page
  chatscrape extract --name alice --replay frame1.html,frame2.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()
	f.StringVarP(&targetName, "name", "n", "", "conversation name used for files and the checkpoint")
	f.StringVar(&controlURL, "control-url", "", "DevTools websocket URL of a running browser")
	f.BoolVar(&headless, "headless", false, "run a launched browser headless")
	f.StringVarP(&profileName, "profile", "P", "", "saved session profile to load cookies from")
	f.DurationVar(&delayMin, "delay-min", driver.DefaultDelayMin, "minimum wait after each scroll")
	f.DurationVar(&delayMax, "delay-max", driver.DefaultDelayMax, "maximum wait after each scroll")
	f.IntVar(&maxIterations, "max-iterations", driver.DefaultMaxIterations, "stop after this many passes")
	f.IntVar(&noProgressThreshold, "no-progress-threshold", driver.DefaultNoProgressThreshold, "stop after this many passes without new items")
	f.BoolVar(&noDates, "no-dates", false, "leave date markers out of the output")
	f.BoolVar(&noTimestamps, "no-timestamps", false, "leave message times out of the output")
	f.StringVar(&sinkURL, "sink-url", "", "POST every line to this URL")
	f.StringVar(&sinkFile, "sink-file", "", "append every line to this file")
	f.StringVarP(&outputDir, "output", "o", "", "transcript directory")
	f.StringVar(&order, "order", "", "transcript order (discovery, chronological)")
	f.BoolVarP(&resumeSession, "resume", "r", false, "continue from the conversation's checkpoint")
	f.StringSliceVar(&replayFrames, "replay", nil, "saved HTML snapshots to scan instead of a live page")
}

// extractFlags collects the extract flags the user set
func extractFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(args) > 0 {
		flags["url"] = strings.TrimSpace(args[0])
	}

	set := func(name string, value interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}
	set("name", targetName)
	set("control-url", controlURL)
	set("headless", headless)
	set("profile", profileName)
	set("delay-min", delayMin)
	set("delay-max", delayMax)
	set("max-iterations", maxIterations)
	set("no-progress-threshold", noProgressThreshold)
	set("no-dates", noDates)
	set("no-timestamps", noTimestamps)
	set("sink-url", sinkURL)
	set("sink-file", sinkFile)
	set("output", outputDir)
	set("order", order)
	set("resume", resumeSession)
	return flags
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, extractFlags(cmd, args))
	if err != nil {
		return err
	}
	if cfg.Target.URL == "" && len(replayFrames) == 0 {
		return fmt.Errorf("a conversation URL is required (argument, target.url or CHATSCRAPE_URL)")
	}

	name := displayName(cfg)
	mode := resolveUIMode(cfg.UI.Mode)

	var (
		drv      *driver.Driver
		terminal *tui.TUI
	)
	if mode == config.UIModeTUI {
		terminal = tui.NewTUI(name, cfg.Extraction.NoProgressThreshold, func() {
			if drv != nil {
				drv.Stop()
			}
		}, tea.WithAltScreen(), tea.WithOutput(os.Stderr))

		tuiLogger, err := logger.NewWithWriter(&cfg.Logging, terminal)
		if err != nil {
			return err
		}
		logger.SetLogger(tuiLogger)
	}
	log := logger.GetLogger().WithField("conversation", name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page, pageURL, closePage, err := openPage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePage()

	rules, err := scanner.NewRules(cfg.Scanner)
	if err != nil {
		return fmt.Errorf("invalid scanner rules: %w", err)
	}
	drv = driver.New(page, scanner.New(rules, log), log)

	// Lines on a terminal stdout would tear the full-screen UI
	if terminal != nil && ui.IsTerminal(os.Stdout) {
		cfg.Sink.Stdout = false
	}
	sinks, err := sink.FromConfig(cfg.Sink, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("failed to set up sinks: %w", err)
	}
	defer sinks.Close()

	var pool *delivery.Fanout
	if sinks.Len() > 0 {
		pool = delivery.NewFanout(cfg.Sink.Workers, cfg.Sink.QueueSize, sinks.Sinks(), log)
		pool.Start()
		drv.SetDispatcher(pool)
	}

	opts := driver.OptionsFromConfig(cfg.Extraction)

	var journal *checkpoint.Manager
	if cfg.Checkpoint.Enabled {
		journal, err = openJournal(cfg, pageURL, &opts, log)
		if err != nil {
			return err
		}
		drv.SetJournal(journal)
	}

	reporters := ui.Reporters{}
	switch mode {
	case config.UIModePlain:
		reporters = append(reporters, ui.NewProgressDisplay(os.Stderr, name, opts.NoProgressThreshold, verbose))
	case config.UIModeTUI:
		reporters = append(reporters, terminal)
	}
	if cfg.Notifications.Enabled {
		reporters = append(reporters, ui.NewNotifier(cfg.Notifications, name))
	}
	drv.SetReporter(reporters)

	stopSignals := watchSignals(ctx, cancel, drv, log)
	defer stopSignals()

	session, err := drv.Start(ctx, opts)
	if err != nil {
		return err
	}

	if terminal != nil {
		go func() {
			session.Wait()
			terminal.Quit()
		}()
		if err := terminal.Run(); err != nil {
			log.WithError(err).Error("TUI failed")
		}
		// Leaving the UI early stops the session too
		drv.Stop()
		logger.SetLogger(mustConsoleLogger(cfg))
		log = logger.GetLogger().WithField("conversation", name)
	}
	completion := session.Wait()

	if pool != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), deliveryDrainTimeout)
		stats := pool.Stop(drainCtx)
		drainCancel()
		logger.LogMetrics(log, "delivery", map[string]interface{}{
			"submitted": stats.Submitted,
			"delivered": stats.Delivered,
			"failed":    stats.Failed,
			"dropped":   stats.Dropped,
		})
	}

	paths, exportErr := exportTranscript(cfg, name, pageURL, session, completion)
	if exportErr != nil {
		log.WithError(exportErr).Error("Failed to write transcript")
	}

	if journal != nil {
		switch {
		case completion.Reason == driver.StateCompleted && exportErr == nil:
			if err := journal.Delete(); err != nil {
				log.WithError(err).Warn("Failed to remove checkpoint")
			}
		case completion.Reason != driver.StateCompleted:
			log.WithField("checkpoint", journal.Path()).Info("Checkpoint kept, continue with --resume")
		}
	}

	if mode == config.UIModeTUI {
		printSummary(name, completion, paths)
	} else if mode != config.UIModeQuiet {
		for _, p := range paths {
			ui.PrintInfo("Transcript", p)
		}
	}

	if completion.Reason == driver.StateFailed {
		return fmt.Errorf("extraction failed: %w", completion.Err)
	}
	return exportErr
}

// displayName picks the name used in files, logs and the UI
func displayName(cfg *config.Config) string {
	if cfg.Target.Name != "" {
		return cfg.Target.Name
	}
	if cfg.Target.URL != "" {
		return checkpoint.Key("", cfg.Target.URL)
	}
	if len(replayFrames) > 0 {
		return "replay"
	}
	return "conversation"
}

// resolveUIMode turns auto into tui or plain depending on stderr
func resolveUIMode(mode string) string {
	mode = strings.ToLower(mode)
	if mode == "" || mode == config.UIModeAuto {
		if ui.IsTerminal(os.Stderr) {
			return config.UIModeTUI
		}
		return config.UIModePlain
	}
	return mode
}

// openPage returns the page to extract from: replayed frames, or a tab in a
// launched or attached browser
func openPage(ctx context.Context, cfg *config.Config, log logger.Logger) (driver.Page, string, func(), error) {
	if len(replayFrames) > 0 {
		page, err := dom.LoadStaticPage(replayFrames...)
		if err != nil {
			return nil, "", nil, err
		}
		if cfg.Target.URL != "" {
			page.URL = cfg.Target.URL
		}
		log.WithField("frames", len(replayFrames)).Info("Replaying saved snapshots")
		return page, page.URL, func() {}, nil
	}

	var profile *auth.Profile
	if cfg.Browser.Profile != "" {
		manager, err := auth.NewManager()
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open profile store: %w", err)
		}
		if profile, err = manager.Retrieve(cfg.Browser.Profile); err != nil {
			return nil, "", nil, err
		}
		log.WithField("profile", profile.Name).Debug("Loaded session profile")
	}

	b, err := browser.New(ctx, cfg.Browser, log)
	if err != nil {
		return nil, "", nil, err
	}
	page, err := b.Open(ctx, cfg.Target.URL, profile)
	if err != nil {
		b.Close()
		return nil, "", nil, err
	}

	closeFn := func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Debug("Failed to close browser")
		}
	}
	return page, page.URL(), closeFn, nil
}

// openJournal loads or creates the conversation's checkpoint. When resuming,
// the saved items seed opts.
func openJournal(cfg *config.Config, pageURL string, opts *driver.Options, log logger.Logger) (*checkpoint.Manager, error) {
	key := checkpoint.Key(cfg.Target.Name, pageURL)

	manager, err := newJournal(cfg, key, log)
	if err != nil {
		return nil, err
	}

	if cfg.Checkpoint.Resume {
		cp, err := manager.Load()
		if err != nil {
			return nil, err
		}
		if cp != nil {
			opts.Seed = cp.Items
			opts.Counterpart = cp.Counterpart
			log.WithFields(map[string]interface{}{
				"items":      len(cp.Items),
				"iterations": cp.Iterations,
			}).Info("Resuming from checkpoint")
			return manager, nil
		}
		log.Info("No checkpoint to resume, starting fresh")
	} else if manager.Exists() {
		if err := manager.BackupCheckpoint(); err != nil {
			log.WithError(err).Warn("Failed to back up previous checkpoint")
		}
	}

	if _, err := manager.Create(key, pageURL); err != nil {
		return nil, err
	}
	return manager, nil
}

// watchSignals turns the first SIGINT or SIGTERM into a cooperative stop and
// the second into cancellation
func watchSignals(ctx context.Context, cancel context.CancelFunc, drv *driver.Driver, log logger.Logger) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		stopping := false
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if stopping {
					log.WithField("signal", sig.String()).Warn("Aborting")
					cancel()
					return
				}
				stopping = true
				log.WithField("signal", sig.String()).Warn("Stop requested, finishing current pass")
				drv.Stop()
			}
		}
	}()

	return func() { signal.Stop(sigs) }
}

// exportTranscript writes whatever the session collected
func exportTranscript(cfg *config.Config, name, pageURL string, session *driver.Session, c driver.Completion) ([]string, error) {
	items := session.Items()
	if len(items) == 0 {
		return nil, nil
	}

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}
	return store.Export(&storage.Transcript{
		Name:        name,
		URL:         pageURL,
		Counterpart: session.Counterpart(),
		SessionID:   session.ID,
		Status:      string(c.Reason),
		Items:       items,
	}, storage.ExportOptions{
		Order:             cfg.Output.Order,
		Formats:           cfg.Output.Formats,
		IncludeDates:      cfg.Extraction.IncludeDates,
		IncludeTimestamps: cfg.Extraction.IncludeTimestamps,
	})
}

// printSummary reports the outcome once the full-screen UI is gone
func printSummary(name string, c driver.Completion, paths []string) {
	switch c.Reason {
	case driver.StateCompleted:
		ui.PrintSuccess(fmt.Sprintf("Extracted %d items from %s", c.TotalItems, name))
	case driver.StateStopped:
		ui.PrintWarning(fmt.Sprintf("Stopped after %d items from %s", c.TotalItems, name))
	default:
		ui.PrintError(fmt.Sprintf("Failed after %d items from %s", c.TotalItems, name), c.Err)
	}
	ui.PrintInfo("Iterations", fmt.Sprintf("%d in %s", c.TotalIterations, c.Duration.Round(time.Second)))
	for _, p := range paths {
		ui.PrintInfo("Transcript", p)
	}
}

// mustConsoleLogger points logging back at stderr after the TUI exits
func mustConsoleLogger(cfg *config.Config) logger.Logger {
	l, err := logger.New(&cfg.Logging)
	if err != nil {
		return logger.GetLogger()
	}
	return l
}
