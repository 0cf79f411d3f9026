package main

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/httpapi"
	"ideagraph/internal/poller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll configured sources for new messages/issues and turn them into Tasks",
	RunE:  runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().String("source", "", "restrict to one source: mail, teams, or github (default: all enabled sources)")
	pollCmd.Flags().Bool("once", false, "poll once and exit instead of running as a daemon")
	pollCmd.Flags().Int("interval", 0, "poll interval in seconds for daemon mode (default: 60s)")
}

func runPoll(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	source, _ := cmd.Flags().GetString("source")
	once, _ := cmd.Flags().GetBool("once")
	intervalSecs, _ := cmd.Flags().GetInt("interval")

	a, cleanup, err := newApp(ctx, configFilePath(cmd))
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}
	defer cleanup()

	selected, err := selectPollers(a, source)
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}

	interval := time.Duration(intervalSecs) * time.Second
	orchestrator := poller.NewOrchestrator(interval, a.logger, selected...)

	if once {
		orchestrator.PollAllOnce(ctx)
		a.logger.Info("poll-once complete")
		return nil
	}

	return runPollDaemon(ctx, a, orchestrator)
}

// selectPollers returns every wired poller, or just the one named by
// --source. An explicit --source naming a poller that isn't wired (toggle
// off, or a required secret missing) is a config error, not a silent no-op.
func selectPollers(a *app, source string) ([]poller.Poller, error) {
	if source == "" {
		all := make([]poller.Poller, 0, len(a.pollers))
		for _, p := range a.pollers {
			all = append(all, p)
		}
		if len(all) == 0 {
			return nil, fmt.Errorf("no pollers are enabled/configured; check Settings and required secrets")
		}
		return all, nil
	}
	p, ok := a.pollers[source]
	if !ok {
		return nil, fmt.Errorf("source %q is not enabled/configured (check Settings and required secrets)", source)
	}
	return []poller.Poller{p}, nil
}

// runPollDaemon starts the Orchestrator's tick loop and, alongside it, the
// trigger/status HTTP surface (spec.md §2 Non-goals carve-in: poll-once
// trigger, backpressure admin, RAG ask). This is the one long-lived process
// in the CLI surface, so it is the natural place to also serve that surface
// rather than adding a seventh subcommand for it.
func runPollDaemon(ctx context.Context, a *app, orchestrator *poller.Orchestrator) error {
	router := httpapi.NewRouter(orchestrator, a.backpressure, a.ragAsker(), a.supportAdvisor(), a.logger)
	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- router.Run(":" + a.config.HTTPPort)
	}()

	a.logger.Info("poll daemon started", zap.String("httpPort", a.config.HTTPPort))

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- orchestrator.Run(ctx) }()

	// The drop-folder watcher has no CLI subcommand of its own (spec.md §6's
	// surface doesn't name one) — it rides alongside the poll daemon, the
	// one other long-lived process, same as the HTTP surface above.
	var dropErrCh chan error
	if a.dropfolder != nil {
		dropErrCh = make(chan error, 1)
		go func() { dropErrCh <- a.dropfolder.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("poll daemon shutting down")
		return nil
	case err := <-runErrCh:
		return err
	case err := <-httpErrCh:
		return fmt.Errorf("http server: %w", err)
	case err := <-dropErrCh:
		return fmt.Errorf("dropfolder watcher: %w", err)
	}
}
