// Package main is the entry point for the meeblipcc CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the system MIDI driver
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/api"
	"github.com/james-see/meeblipcc/pkg/config"
	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
	"github.com/james-see/meeblipcc/pkg/mcptools"
	"github.com/james-see/meeblipcc/pkg/midi"
	"github.com/james-see/meeblipcc/pkg/replay"
	"github.com/james-see/meeblipcc/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile string
	layoutFile string
	verbose    bool
	noEcho     bool
	offline    bool

	outputFile string
	syxFile    string
	serverPort int
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "meeblipcc",
	Short: "Drive a Meeblip synthesizer over MIDI Control-Change",
	Long: `meeblipcc maps the Meeblip panel onto normalized parameters and keeps
them in sync with the hardware over MIDI Control-Change messages.

Examples:
  meeblipcc layout
  meeblipcc replay song.mid -o song-out.mid
  meeblipcc bridge
  meeblipcc panel
  meeblipcc serve --port 8080
  meeblipcc mcp`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show the parameter layout",
	RunE:  runLayout,
}

var replayCmd = &cobra.Command{
	Use:   "replay <input.mid>",
	Short: "Run a MIDI file through the engine and write what it sends",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var sysexCmd = &cobra.Command{
	Use:   "sysex <dump.syx>",
	Short: "Send a .syx dump to the output port through the engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runSysex,
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Connect the engine to the configured MIDI ports",
	RunE:  runBridge,
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Launch the interactive knob panel",
	RunE:  runPanel,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	RunE:  runMCP,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI ports",
	RunE:  runPorts,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  runInit,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ~/.config/meeblipcc/config.json)")
	rootCmd.PersistentFlags().StringVar(&layoutFile, "layout", "", "Layout JSON file overriding the built-in Meeblip table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&noEcho, "no-echo", false, "Do not echo automation as Control-Change")

	// layout command
	layoutCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the layout as JSON")

	// replay command
	replayCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	replayCmd.Flags().StringVar(&syxFile, "syx", "", "Also write passed-through SysEx to this .syx file")

	// runtime commands
	for _, cmd := range []*cobra.Command{panelCmd, serveCmd, mcpCmd} {
		cmd.Flags().BoolVar(&offline, "offline", false, "Do not open MIDI ports")
	}
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	// Add commands
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(sysexCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(initCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if layoutFile != "" {
		cfg.Layout = layoutFile
	}
	if noEcho {
		echo := false
		cfg.Echo = &echo
	}
	return cfg, nil
}

func engineConfig(cfg *config.Config, logger *zap.Logger) (engine.Config, error) {
	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return engine.Config{}, err
	}
	ecfg.Logger = logger
	return ecfg, nil
}

// runtime is a live engine driven by a runner, optionally bridged to ports
type runtime struct {
	runner *host.Runner
	bridge *host.Bridge
	done   chan error
}

func startRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger, ports, required bool) (*runtime, error) {
	ecfg, err := engineConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(ecfg, nil)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		runner: host.NewRunner(e, cfg.BlockSize, logger),
		done:   make(chan error, 1),
	}

	if ports {
		b, err := host.OpenBridge(rt.runner, cfg.Ports.Input, cfg.Ports.Output, logger)
		switch {
		case err != nil && required:
			return nil, err
		case err != nil:
			logger.Warn("running without MIDI ports", zap.Error(err))
		default:
			rt.bridge = b
		}
	}

	period := host.BlockPeriod(cfg.BlockSize, cfg.SampleRate)
	go func() { rt.done <- rt.runner.Run(ctx, period) }()
	return rt, nil
}

func (rt *runtime) wait() error {
	err := <-rt.done
	if rt.bridge != nil {
		rt.bridge.Close()
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ecfg, err := engineConfig(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	if jsonOutput {
		return ecfg.Layout.Encode(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderLayout(ecfg.Layout))
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := outputFile
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "-out.mid"
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ecfg, err := engineConfig(cfg, logger)
	if err != nil {
		return err
	}
	p, err := replay.New(ecfg, replay.Options{
		SampleRate: cfg.SampleRate,
		BlockSize:  cfg.BlockSize,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := p.PlayFile(ctx, input, output); err != nil {
		return err
	}

	if syxFile != "" {
		if err := midi.WriteSysexFile(syxFile, p.SysexOut()); err != nil {
			return err
		}
	}

	st := p.Engine().Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %s -> %s (%d blocks, %d control changes, %d events out)\n",
		input, output, st.Blocks, st.ControlChanges, st.EventsOut)
	return nil
}

func runSysex(cmd *cobra.Command, args []string) error {
	events, err := midi.ReadSysexFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := startRuntime(ctx, cfg, logger, true, true)
	if err != nil {
		return err
	}

	rt.runner.Post(0, toEvents(events)...)
	// the first call lands in the block that dispatches the dump, the
	// second one after it was delivered
	noop := func(*engine.Engine) error { return nil }
	for i := 0; i < 2; i++ {
		if err := rt.runner.Call(ctx, noop); err != nil {
			cancel()
			_ = rt.wait()
			return err
		}
	}
	cancel()
	if err := rt.wait(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d SysEx messages to %q\n", len(events), cfg.Ports.Output)
	return nil
}

func toEvents(sysex []midi.SysexEvent) []midi.Event {
	events := make([]midi.Event, len(sysex))
	for i, ev := range sysex {
		events[i] = ev
	}
	return events
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := startRuntime(ctx, cfg, logger, true, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bridging %q -> %q, ctrl+c to stop\n", cfg.Ports.Input, cfg.Ports.Output)
	return rt.wait()
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// the panel owns the terminal
	logger := zap.NewNop()

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := startRuntime(ctx, cfg, logger, !offline, false)
	if err != nil {
		return err
	}

	panelErr := tui.Run(rt.runner)
	cancel()
	if err := rt.wait(); err != nil {
		return err
	}
	return panelErr
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	port := cfg.HTTPPort
	if serverPort != 0 {
		port = serverPort
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := startRuntime(ctx, cfg, logger, !offline, false)
	if err != nil {
		return err
	}
	replayCfg, err := engineConfig(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on port %d...\n", port)
	fmt.Fprintf(cmd.OutOrStdout(), "Swagger docs available at http://localhost:%d/swagger/index.html\n", port)

	serveErr := api.NewServer(rt.runner, replayCfg, logger).StartServer(ctx, port)
	cancel()
	if err := rt.wait(); err != nil {
		return err
	}
	return serveErr
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol; zap writes to stderr
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := startRuntime(ctx, cfg, logger, !offline, false)
	if err != nil {
		return err
	}

	mcpErr := mcptools.New(rt.runner, logger).ServeStdio(version)
	cancel()
	if err := rt.wait(); err != nil {
		return err
	}
	return mcpErr
}

func runPorts(cmd *cobra.Command, args []string) error {
	ins, outs, err := host.PortNames()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Inputs:")
	for _, name := range ins {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "Outputs:")
	for _, name := range outs {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.DefaultConfig().SaveTo(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
