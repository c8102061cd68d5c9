package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/fieldboard/internal/adapters/server"
	"github.com/hylla/fieldboard/internal/adapters/server/common"
	"github.com/hylla/fieldboard/internal/adapters/storage/sqlite"
	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/config"
	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
	"github.com/hylla/fieldboard/internal/platform"
	"github.com/hylla/fieldboard/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveFunc stores a package-level helper value.
var serveFunc = server.Run

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// session holds the resolved config, logger, and storage for one command.
type session struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(&rootOptions{stdin: os.Stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand builds the command tree; the bare root starts the TUI.
func newRootCommand(opts *rootOptions) *cobra.Command {
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("FIELDBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	appName := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("FIELDBOARD_APP_NAME")); envApp != "" {
		appName = envApp
	}

	var breakpoint string
	root := &cobra.Command{
		Use:           "fieldboard",
		Short:         "Pack dashboard widgets onto responsive grids",
		Long:          "fieldboard keeps dashboards of widgets packed onto a column grid per breakpoint.\nRun without a command to open the board TUI.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runTUI(cmd.Context(), breakpoint)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config TOML")
	pf.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&opts.appName, "app", appName, "application name for config/data path resolution")
	pf.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	root.Flags().StringVar(&breakpoint, "breakpoint", "", "breakpoint shown first in the TUI")

	root.AddCommand(
		newTUICommand(opts),
		newPathsCommand(opts),
		newServeCommand(opts),
		newPackCommand(opts),
		newLayoutCommand(opts),
		newSeedCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
	)
	return root
}

// newTUICommand builds the explicit tui command.
func newTUICommand(opts *rootOptions) *cobra.Command {
	var breakpoint string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the board TUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runTUI(cmd.Context(), breakpoint)
		},
	}
	cmd.Flags().StringVar(&breakpoint, "breakpoint", "", "breakpoint shown first")
	return cmd
}

// newPathsCommand builds the paths command.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and log paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", opts.resolveConfigPath(paths))
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			_, _ = fmt.Fprintf(out, "export_dir: %s\n", paths.ExportDir)
			return nil
		},
	}
}

// newServeCommand builds the serve command.
func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), "serve")
			if err != nil {
				return err
			}
			defer rt.close(opts.stderr)

			serverCfg := server.Config{
				HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
				ServerName:    rt.appName,
				ServerVersion: version,
			}
			adapter := common.NewAppServiceAdapter(rt.svc)
			rt.logger.Info("serving", "http", serverCfg.HTTPBind, "api", serverCfg.APIEndpoint, "mcp", serverCfg.MCPEndpoint)
			if err := serveFunc(cmd.Context(), serverCfg, server.Dependencies{
				Dashboards: adapter,
				Layouts:    adapter,
				Readiness:  rt.repo,
			}); err != nil {
				rt.logger.Error("server stopped with error", "err", err)
				return fmt.Errorf("run server: %w", err)
			}
			rt.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API mount path (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path (default from config)")
	return cmd
}

// packInput is the JSON document accepted by the pack command.
type packInput struct {
	Columns int             `json:"columns"`
	Items   []gridpack.Item `json:"items"`
}

// newPackCommand builds the stateless pack command.
func newPackCommand(opts *rootOptions) *cobra.Command {
	var (
		inPath  string
		columns int
	)
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack a JSON list of items onto a grid without touching storage",
		Long:  "Reads {\"columns\":N,\"items\":[...]} or a bare item array from --in (or stdin) and prints placements in (y, x) order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig(paths)
			if err != nil {
				return err
			}
			content, err := readInput(inPath, opts.stdin)
			if err != nil {
				return err
			}
			in, err := decodePackInput(content)
			if err != nil {
				return err
			}
			if columns > 0 {
				in.Columns = columns
			}
			packer := gridpack.Packer{MaxRows: cfg.Layout.MaxRows}
			placements, err := packer.Pack(in.Items, in.Columns)
			if err != nil {
				return fmt.Errorf("pack items: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), app.PackResult{
				Placements: placements,
				Summary:    gridpack.Summarize(placements, in.Columns),
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "-", "input JSON file ('-' for stdin)")
	cmd.Flags().IntVar(&columns, "columns", 0, "grid columns (overrides the input document)")
	return cmd
}

// newLayoutCommand builds the layout command.
func newLayoutCommand(opts *rootOptions) *cobra.Command {
	var (
		dashboardID string
		breakpoint  string
		all         bool
		current     bool
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Repack a dashboard and print the resulting layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(dashboardID) == "" {
				return errors.New("--dashboard is required")
			}
			rt, err := opts.open(cmd.Context(), "layout")
			if err != nil {
				return err
			}
			defer rt.close(opts.stderr)

			ctx := cmd.Context()
			switch {
			case all:
				layouts, err := rt.svc.LayoutAll(ctx, dashboardID)
				if err != nil {
					return fmt.Errorf("layout all breakpoints: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), layouts)
			case current:
				layout, err := rt.svc.CurrentLayout(ctx, dashboardID, breakpoint)
				if err != nil {
					return fmt.Errorf("read layout: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), layout)
			default:
				layout, err := rt.svc.Layout(ctx, dashboardID, breakpoint)
				if err != nil {
					return fmt.Errorf("layout: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), layout)
			}
		},
	}
	cmd.Flags().StringVar(&dashboardID, "dashboard", "", "dashboard id")
	cmd.Flags().StringVar(&breakpoint, "breakpoint", "", "breakpoint name (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "repack every breakpoint")
	cmd.Flags().BoolVar(&current, "current", false, "print the stored layout without repacking")
	cmd.MarkFlagsMutuallyExclusive("all", "current")
	return cmd
}

// newSeedCommand builds the seed command.
func newSeedCommand(opts *rootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a sample field-operations dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), "seed")
			if err != nil {
				return err
			}
			defer rt.close(opts.stderr)

			dashboard, err := rt.svc.SeedSampleDashboard(cmd.Context(), owner)
			if err != nil {
				return fmt.Errorf("seed dashboard: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", dashboard.ID, dashboard.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (default from config identity)")
	return cmd
}

// newExportCommand builds the export command.
func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		outPath         string
		includeArchived bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write dashboards, widgets, and positions as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), "export")
			if err != nil {
				return err
			}
			defer rt.close(opts.stderr)

			snap, err := rt.svc.ExportSnapshot(cmd.Context(), includeArchived)
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			if outPath == "-" {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			if outPath == "" {
				outPath = rt.paths.SnapshotPath(snap.ExportedAt)
			}
			encoded, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot json: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export output dir: %w", err)
			}
			if err := os.WriteFile(outPath, append(encoded, '\n'), 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			rt.logger.Info("snapshot exported", "path", outPath, "dashboards", len(snap.Dashboards))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout, '' for the export dir)")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", true, "include archived dashboards")
	return cmd
}

// newImportCommand builds the import command.
func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			content, err := readInput(inPath, opts.stdin)
			if err != nil {
				return err
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}

			rt, err := opts.open(cmd.Context(), "import")
			if err != nil {
				return err
			}
			defer rt.close(opts.stderr)
			if err := rt.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			rt.logger.Info("snapshot imported", "path", inPath, "dashboards", len(snap.Dashboards), "widgets", len(snap.Widgets))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file ('-' for stdin)")
	return cmd
}

// runTUI opens storage and runs the board program.
func (o *rootOptions) runTUI(ctx context.Context, breakpoint string) error {
	rt, err := o.open(ctx, "tui")
	if err != nil {
		return err
	}
	defer rt.close(nil)

	m := tui.NewModel(
		rt.svc,
		tui.WithOwner(rt.cfg.Identity.OwnerID),
		tui.WithBreakpoint(firstNonEmpty(breakpoint, rt.cfg.Layout.DefaultBreakpoint)),
		tui.WithKeyConfig(tui.KeyConfig{
			Relayout:      rt.cfg.Keys.Relayout,
			CopyLayout:    rt.cfg.Keys.CopyLayout,
			ToggleDetails: rt.cfg.Keys.ToggleDetails,
		}),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

// resolvePaths resolves platform paths for the configured app name and mode.
func (o *rootOptions) resolvePaths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfigPath applies --config, then FIELDBOARD_CONFIG, then the platform path.
func (o *rootOptions) resolveConfigPath(paths platform.Paths) string {
	if path := strings.TrimSpace(o.configPath); path != "" {
		return path
	}
	if envPath := strings.TrimSpace(os.Getenv("FIELDBOARD_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// resolveDBPath applies --db, then FIELDBOARD_DB_PATH, and reports whether either was set.
func (o *rootOptions) resolveDBPath(paths platform.Paths) (string, bool) {
	if path := strings.TrimSpace(o.dbPath); path != "" {
		return path, true
	}
	if envPath := strings.TrimSpace(os.Getenv("FIELDBOARD_DB_PATH")); envPath != "" {
		return envPath, true
	}
	return paths.DBPath, false
}

// loadConfig reads the TOML config over defaults and applies the db override.
func (o *rootOptions) loadConfig(paths platform.Paths) (config.Config, error) {
	configPath := o.resolveConfigPath(paths)
	dbPath, overridden := o.resolveDBPath(paths)
	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if overridden {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// open resolves config and logging, opens sqlite, and builds the app service.
func (o *rootOptions) open(_ context.Context, command string) (*session, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}
	cfg, err := o.loadConfig(paths)
	if err != nil {
		return nil, err
	}
	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// runtime logs stay in the dev-file sink while the board is active
		logger.SetConsoleEnabled(false)
	}
	rt := &session{
		appName:    o.appName,
		devMode:    o.devMode,
		paths:      paths,
		configPath: o.resolveConfigPath(paths),
		cfg:        cfg,
		logger:     logger,
	}
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("configuration loaded", "config_path", rt.configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	breakpoints, err := breakpointsFromConfig(cfg.Layout.Breakpoints)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	rt.repo = repo
	rt.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Breakpoints:       breakpoints,
		DefaultBreakpoint: cfg.Layout.DefaultBreakpoint,
		MaxRows:           cfg.Layout.MaxRows,
		DefaultOwnerID:    cfg.Identity.OwnerID,
		Logger:            logger,
	})
	return rt, nil
}

// close releases storage and the log file; warnings go to stderr when non-nil.
func (rt *session) close(stderr io.Writer) {
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", err)
		}
	}
	if err := rt.logger.Close(); err != nil && stderr != nil {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// breakpointsFromConfig validates configured breakpoint tiers.
func breakpointsFromConfig(in []config.BreakpointConfig) ([]domain.Breakpoint, error) {
	out := make([]domain.Breakpoint, 0, len(in))
	for _, bp := range in {
		converted, err := domain.NewBreakpoint(bp.Name, bp.Columns, bp.MinWidth)
		if err != nil {
			return nil, fmt.Errorf("breakpoint %q: %w", bp.Name, err)
		}
		out = append(out, converted)
	}
	return out, nil
}

// decodePackInput accepts either a {columns, items} document or a bare item array.
func decodePackInput(content []byte) (packInput, error) {
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "[") {
		var items []gridpack.Item
		if err := json.Unmarshal(content, &items); err != nil {
			return packInput{}, fmt.Errorf("decode pack items: %w", err)
		}
		return packInput{Items: items}, nil
	}
	var in packInput
	if err := json.Unmarshal(content, &in); err != nil {
		return packInput{}, fmt.Errorf("decode pack input: %w", err)
	}
	return in, nil
}

// readInput reads a file, or stdin for "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, errors.New("stdin is not available")
		}
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	return content, nil
}

// writeJSON writes an indented JSON document followed by a newline.
func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if _, err := w.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
