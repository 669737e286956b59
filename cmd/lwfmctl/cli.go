// Package main implements lwfmctl, a debug CLI that talks directly to
// the store and façade without going through the running daemon's HTTP
// surface. It recovers the verb set of the original implementation's
// command-line entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lwfm/internal/config"
	"lwfm/internal/eventproc"
	"lwfm/internal/lwfmanager"
	"lwfm/internal/logging"
	"lwfm/internal/sitebridge"
	"lwfm/internal/store"
)

// App wires a cobra root command over a lazily-opened store and façade,
// so every subcommand shares one connection opened on first use and
// closed when Execute returns.
type App struct {
	rootCmd *cobra.Command

	configPath string
	dbPath     string

	st  *store.Store
	mgr *lwfmanager.Manager
}

func newApp() *App {
	a := &App{}
	a.setupRootCmd()
	return a
}

func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:           "lwfmctl",
		Short:         "Inspect and drive the lwfm middleware store directly",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to lwfm.yaml (defaults to ~/.lwfm/lwfm.yaml)")
	a.rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "override the store's database path")

	a.rootCmd.AddCommand(
		newCheckCmd(a),
		newGenerateIDCmd(a),
		newClearEventsCmd(a),
		newStatusCmd(a),
		newWorkflowsCmd(a),
		newWorkflowCmd(a),
		newLogsByWorkflowCmd(a),
		newLogsByJobCmd(a),
		newAllLogsCmd(a),
		newActiveEventsCmd(a),
		newMetasheetsCmd(a),
	)
}

// manager lazily opens the store and façade on first use, shared across
// the lifetime of one lwfmctl invocation.
func (a *App) manager(ctx context.Context) (*lwfmanager.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}

	log := logging.Wrap(logging.New(cfg.LogLevel, cfg.LogFormat))
	st, err := store.Open(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.st = st

	bridge := sitebridge.New(log)
	for _, desc := range cfg.Sites {
		bridge.RegisterSite(desc)
	}
	proc := eventproc.New(st, bridge, log)
	a.mgr = lwfmanager.New(st, bridge, proc, &cfg, log)
	return a.mgr, nil
}

func (a *App) close() {
	if a.st != nil {
		_ = a.st.Close()
	}
}

func main() {
	app := newApp()
	defer app.close()
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lwfmctl: %v\n", err)
		os.Exit(1)
	}
}
