package main

import (
	"evacuation-dashboard/internal/adapters/gateway"
	"evacuation-dashboard/internal/config"
	"evacuation-dashboard/internal/controller"
	"evacuation-dashboard/internal/platform/logging"
	"evacuation-dashboard/internal/ui"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfgPath string
	apiURL  string
	timeout time.Duration
	verbose bool

	cfg      config.Client
	log      *zap.Logger
	client   *gateway.Client
	renderer *ui.Renderer

	// reported is set once a failure has been written by the notifier.
	reported bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut, renderer: ui.NewRenderer()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Evacuation plan dashboard",
		Long: `Browse and manage evacuation plans held by the plans API.

Without a subcommand the interactive terminal dashboard starts.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runTUI,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "dashboard.yaml", "path to the YAML config file")
	flags.StringVar(&a.apiURL, "api-url", "", "plans API base URL (overrides config and env)")
	flags.DurationVar(&a.timeout, "timeout", 0, "per-request timeout (overrides config and env)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(a.plansCmd(), a.healthCmd())
	return root
}

// setup resolves config (defaults, file, env, flags) and builds the gateway.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(a.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = a.apiURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.timeout.String()
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so it logs to a file (verbose) or not at all.
	switch {
	case cmd == cmd.Root() && a.verbose:
		a.log, err = logging.NewFile(cfg.LogLevel, "dashboard-debug.log")
	case cmd == cmd.Root():
		a.log = zap.NewNop()
	default:
		a.log, err = logging.New(cfg.LogLevel)
	}
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(a.log)

	a.client = gateway.New(gateway.Options{
		BaseURL: cfg.APIURL,
		Timeout: timeout,
		Logger:  a.log,
	})
	a.log.Debug("dashboard configured", zap.String("api_url", a.client.BaseURL()), zap.Duration("timeout", timeout))
	return nil
}

// stderrNotifier reports controller failures on the error stream.
func (a *app) stderrNotifier() controller.Notifier {
	return controller.NotifierFunc(func(op string, err error) {
		a.reported = true
		fmt.Fprintf(a.errOut, "Error: %s: %v\n", op, err)
	})
}

func (a *app) newController(n controller.Notifier) (*controller.Controller, error) {
	return controller.New(controller.Options{
		Gateway:  a.client.Plans,
		Notifier: n,
		Logger:   a.log,
	})
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	alerts := &ui.AlertQueue{}
	ctrl, err := a.newController(alerts)
	if err != nil {
		return err
	}

	model := ui.NewModel(cmd.Context(), ctrl, alerts, a.renderer)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(a.in),
		tea.WithOutput(a.out),
	)
	_, err = p.Run()
	return err
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the plans API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check against %s: %w", a.client.BaseURL(), err)
			}
			fmt.Fprintf(a.out, "%s: %s (%s)\n", a.client.BaseURL(), h.Status, h.Message)
			return nil
		},
	}
}
