package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hohoca/brachyplan/internal/catalog"
	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/cli"
	"github.com/hohoca/brachyplan/internal/config"
	"github.com/hohoca/brachyplan/internal/filter"
	"github.com/hohoca/brachyplan/internal/history"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/metrics"
	"github.com/hohoca/brachyplan/internal/session"
	"github.com/hohoca/brachyplan/internal/template"
	"github.com/hohoca/brachyplan/internal/tui"
	"github.com/hohoca/brachyplan/internal/types"
	"github.com/hohoca/brachyplan/internal/viewer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "brachyplan",
	Short: "Brachytherapy applicator channel planner",
	Long: `brachyplan edits the applicator channels of a brachytherapy plan in an
interactive TUI: channels, active dwell positions on the shared grid,
reconstruction models and multi-channel sub-tubes.

Settings, templates and the change history live in ~/.brachyplan.

Examples:
  brachyplan                          # Start the TUI
  brachyplan -t cervix                # Start with templates/cervix.yaml loaded
  brachyplan --recent                 # Pick a recent template first
  brachyplan models -s ring           # Search the model catalog
  brachyplan template show cervix -q 'channels[].name'
  brachyplan history --limit 20`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return runTUI(cmd)
	},
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the dwell position grid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		grid := channel.GenerateDwellGrid(flagStep)
		return cli.Write(cmd.OutOrStdout(), grid, flagFormat, func() string {
			return cli.GridText(grid)
		})
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the reconstruction models of the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		cat, err := catalog.LoadOrDefault(catalogPath())
		if err != nil {
			return err
		}

		models := cat.Search(flagSearch)
		if flagQuery != "" {
			if !filter.IsShellCommand(flagQuery) && !filter.IsValidJMESPath(flagQuery) {
				return fmt.Errorf("invalid query: %s", flagQuery)
			}
			out, err := filter.Apply(models, flagQuery)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		}
		return cli.Write(cmd.OutOrStdout(), models, flagFormat, func() string {
			return cli.ModelTable(models)
		})
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect and create channel templates",
}

var templateShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a template",
	Long: `Print a template as a channel table, JSON or YAML.

--query evaluates a JMESPath expression against the template. A query of the
form $(command) pipes the template JSON through a shell command instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		path, err := config.ResolveTemplatePath(args[0])
		if err != nil {
			return err
		}
		t, err := template.Load(path)
		if err != nil {
			return err
		}
		return showTemplate(cmd.Context(), cmd.OutOrStdout(), t)
	},
}

var templateNewCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create a template with default channels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if flagChannels < 0 {
			return fmt.Errorf("--channels must not be negative")
		}
		path, err := config.ResolveTemplatePath(args[0])
		if err != nil {
			return err
		}
		if filepath.Ext(path) == "" {
			path += ".yaml"
		}
		if _, err := os.Stat(path); err == nil && !flagForce {
			return fmt.Errorf("template %s already exists (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
			return fmt.Errorf("failed to create template directory: %w", err)
		}

		name := flagName
		if name == "" {
			name = trimExt(filepath.Base(path))
		}
		t := template.New(name, flagChannels, flagStep)
		if err := template.Save(&t, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d channels\n", path, flagChannels)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded channel changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		var events []types.ChannelEvent
		switch {
		case flagChannel != "":
			events, err = store.LoadForChannel(flagChannel)
		case flagSession != "":
			events, err = store.LoadForSession(flagSession)
		default:
			events, err = store.Load(flagLimit)
		}
		if err != nil {
			return err
		}
		return cli.Write(cmd.OutOrStdout(), events, flagFormat, func() string {
			if len(events) == 0 {
				return "No changes recorded"
			}
			return cli.HistoryTable(events)
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the recorded channel changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.GetCount()
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded")
			return nil
		}

		if !flagYes {
			dialogs := cli.NewDialogs()
			dialogs.Out = cmd.ErrOrStderr()
			ok, err := dialogs.Confirm(cmd.Context(), fmt.Sprintf("Delete %d recorded changes?", count))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d recorded changes\n", count)
		return nil
	},
}

var keybindsCmd = &cobra.Command{
	Use:   "keybinds",
	Short: "Write an example key binding file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if _, err := os.Stat(config.KeybindsFile); err == nil && !flagForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.KeybindsFile)
		}
		if err := keybinds.CreateExampleConfig(config.KeybindsFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.KeybindsFile)
		return nil
	},
}

var keybindsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report problems in the key binding file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		registry := keybinds.NewDefaultRegistry()
		if _, err := os.Stat(config.KeybindsFile); err == nil {
			cfg, err := keybinds.LoadConfig(config.KeybindsFile)
			if err != nil {
				return fmt.Errorf("failed to load keybinds.json: %w", err)
			}
			if err := keybinds.ApplyConfig(registry, cfg); err != nil {
				return fmt.Errorf("failed to apply keybinds config: %w", err)
			}
		}

		issues := keybinds.Check(registry)
		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintln(out, "No issues found")
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintln(out, issue.String())
		}
		if err := keybinds.Errors(issues); err != nil {
			return fmt.Errorf("%s cannot be used, the defaults apply until it is fixed", config.KeybindsFile)
		}
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Write the default settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if _, err := os.Stat(config.SettingsFile); err == nil && !flagForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.SettingsFile)
		}
		if err := config.SaveSettings(config.DefaultSettings(), config.SettingsFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.SettingsFile)
		return nil
	},
}

// Flags for root
var (
	flagTemplate string
	flagRecent   bool
	flagCatalog  string
)

// Flags shared by the listing commands
var (
	flagFormat string
	flagQuery  string
	flagSearch string
	flagStep   float64
)

// Flags for template new
var (
	flagChannels int
	flagName     string
	flagForce    bool
)

// Flags for history
var (
	flagChannel string
	flagSession string
	flagLimit   int
	flagYes     bool
)

func init() {
	// Root command flags
	rootCmd.Flags().StringVarP(&flagTemplate, "template", "t", "", "Template to load on start")
	rootCmd.Flags().BoolVar(&flagRecent, "recent", false, "Choose a recent template to load on start")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "Model catalog file (yaml/json)")

	// grid flags
	gridCmd.Flags().Float64Var(&flagStep, "step", 2.5, "Dwell step in mm")
	gridCmd.Flags().StringVarP(&flagFormat, "format", "f", cli.FormatText, "Output format (text/json/yaml)")

	// models flags
	modelsCmd.Flags().StringVarP(&flagSearch, "search", "s", "", "Fuzzy search by id, name or type")
	modelsCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "JMESPath query applied to the model list")
	modelsCmd.Flags().StringVarP(&flagFormat, "format", "f", cli.FormatText, "Output format (text/json/yaml)")

	// template flags
	templateShowCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "JMESPath query or $(shell command)")
	templateShowCmd.Flags().StringVarP(&flagFormat, "format", "f", cli.FormatText, "Output format (text/json/yaml)")
	templateNewCmd.Flags().IntVarP(&flagChannels, "channels", "n", 1, "Number of channels")
	templateNewCmd.Flags().Float64Var(&flagStep, "step", 2.5, "Dwell step in mm")
	templateNewCmd.Flags().StringVar(&flagName, "name", "", "Template name (defaults to the file name)")
	templateNewCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing file")
	templateCmd.AddCommand(templateShowCmd, templateNewCmd)

	// history flags
	historyCmd.Flags().StringVar(&flagChannel, "channel", "", "Only changes of this channel id")
	historyCmd.Flags().StringVar(&flagSession, "session", "", "Only changes of this run id")
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "l", 50, "Maximum number of changes")
	historyCmd.Flags().StringVarP(&flagFormat, "format", "f", cli.FormatText, "Output format (text/json/yaml)")
	historyClearCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Do not ask for confirmation")
	historyCmd.AddCommand(historyClearCmd)
	keybindsCmd.AddCommand(keybindsCheckCmd)

	keybindsCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing file")
	settingsCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing file")

	// Add subcommands
	rootCmd.AddCommand(gridCmd, modelsCmd, templateCmd, historyCmd, keybindsCmd, settingsCmd)
}

// runTUI wires the channel model to its collaborators and starts the TUI
func runTUI(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(config.SettingsFile)
	if err != nil {
		return err
	}

	logCloser, err := config.InitLogger(config.LogFile, settings.LogLevel)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger := config.Logger

	sessionMgr := session.NewManager()
	if err := sessionMgr.Load(); err != nil {
		logger.Warn("failed to load session", "error", err)
	}

	cat, err := catalog.LoadOrDefault(catalogPath())
	if err != nil {
		return err
	}
	if flagCatalog != "" {
		if err := sessionMgr.SetCatalogFile(flagCatalog); err != nil {
			logger.Warn("failed to remember catalog", "error", err)
		}
	}

	keys, err := keybinds.LoadOrDefault(config.KeybindsFile)
	if err != nil {
		// Bad overrides fall back to the defaults
		logger.Warn("failed to load key bindings", "error", err)
		keys = keybinds.NewDefaultRegistry()
	}
	for _, issue := range keybinds.Check(keys) {
		logger.Warn("key binding issue", "context", issue.Context, "key", issue.Key, "message", issue.Message)
	}

	startTemplate, err := chooseStartTemplate(sessionMgr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	dialogs := tui.NewDialogs()
	channels := channel.New(channel.Options{
		Catalog:    cat,
		Dialogs:    dialogs,
		DwellStep:  settings.DwellStep,
		Logger:     logger,
		OnRejected: collector.Rejected,
	})
	channels.Subscribe(collector.Listener())

	var store *history.Manager
	if settings.IsHistoryEnabled() {
		store, err = history.NewManager(config.DatabasePath)
		if err != nil {
			logger.Error("failed to open history, changes are not recorded", "error", err)
		} else {
			defer store.Close()
			recorder := history.NewRecorder(store, sessionMgr.RunID(), logger)
			channels.Subscribe(recorder.Listener())
		}
	}

	if startTemplate != "" {
		if err := loadStartTemplate(ctx, channels, sessionMgr, startTemplate); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	var bridge *viewer.Bridge
	if settings.ViewerURL != "" {
		client := viewer.NewClient(settings.ViewerURL, logger)
		bridge = viewer.NewBridge(channels, client, nil, logger)
		channels.Subscribe(bridge.Listener())
		g.Go(func() error {
			if err := client.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("viewer connection stopped", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			bridge.Run(gctx, client.Incoming())
			return nil
		})
	}
	if settings.MetricsAddr != "" {
		g.Go(func() error {
			if err := collector.Serve(gctx, settings.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
			return nil
		})
	}

	opts := tui.Options{
		Channels: channels,
		Catalog:  cat,
		Dialogs:  dialogs,
		Session:  sessionMgr,
		Keybinds: keys,
		History:  store,
		Bridge:   bridge,
		Logger:   logger,
	}

	runErr := tui.Run(opts)
	stop()
	if err := g.Wait(); err != nil {
		logger.Warn("background task failed", "error", err)
	}
	return runErr
}

// chooseStartTemplate returns the template named by --template, or the one
// picked from the recent list with --recent
func chooseStartTemplate(sessionMgr *session.Manager) (string, error) {
	if flagTemplate != "" || !flagRecent {
		return flagTemplate, nil
	}

	recent := sessionMgr.GetRecentTemplates()
	if len(recent) == 0 {
		return "", nil
	}
	options := make([]cli.Option, len(recent))
	for i, path := range recent {
		options[i] = cli.Option{Value: path, Label: trimExt(filepath.Base(path)) + "  " + path}
	}
	choice, err := cli.Select("Recent templates", options, 0)
	if errors.Is(err, cli.ErrCancelled) {
		return "", nil
	}
	return choice, err
}

func loadStartTemplate(ctx context.Context, channels *channel.Model, sessionMgr *session.Manager, name string) error {
	path, err := config.ResolveTemplatePath(name)
	if err != nil {
		return err
	}
	t, err := template.Load(path)
	if err != nil {
		return err
	}
	if _, err := channels.LoadTemplate(ctx, t); err != nil {
		return err
	}
	if err := sessionMgr.AddRecentTemplate(path); err != nil {
		slog.Warn("failed to remember template", "path", path, "error", err)
	}
	return nil
}

func showTemplate(ctx context.Context, w io.Writer, t *template.Template) error {
	if flagQuery != "" {
		out, err := template.Query(t, flagQuery)
		if err != nil {
			return err
		}
		return cli.Highlight(w, out+"\n", "json")
	}

	switch flagFormat {
	case cli.FormatJSON, cli.FormatYAML:
		data, err := template.Marshal(t, "."+flagFormat)
		if err != nil {
			return err
		}
		return cli.Highlight(w, string(data), flagFormat)
	}
	if flagFormat != cli.FormatText && flagFormat != "" {
		return fmt.Errorf("unsupported format: %s (use text, json or yaml)", flagFormat)
	}

	// Expand the template the way the TUI would, sub-tube channels included
	cat, err := catalog.LoadOrDefault(catalogPath())
	if err != nil {
		return err
	}
	channels := channel.New(channel.Options{
		Catalog: cat,
		Dialogs: channel.AlwaysConfirm{},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if _, err := channels.LoadTemplate(ctx, t); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s (step %g mm)\n%s\n", t.Name, channels.Grid().Step, cli.ChannelTable(channels.Channels()))
	return err
}

func openHistory() (*history.Manager, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return history.NewManager(config.DatabasePath)
}

// catalogPath prefers --catalog, then the session's catalog, then the
// local or global catalog file
func catalogPath() string {
	if flagCatalog != "" {
		return flagCatalog
	}
	sessionMgr := session.NewManager()
	if err := sessionMgr.Load(); err == nil {
		if p := sessionMgr.GetSession().CatalogFile; p != "" {
			return p
		}
	}
	return config.GetCatalogFilePath()
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
