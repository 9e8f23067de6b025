// Package cmd wires the application together and dispatches the CLI modes.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/novahq/nova/ai"
	"github.com/novahq/nova/alerts"
	"github.com/novahq/nova/chat"
	"github.com/novahq/nova/config"
	"github.com/novahq/nova/monitor"
	"github.com/novahq/nova/store"
	"github.com/novahq/nova/telemetry"
	"github.com/novahq/nova/toolbox"
	"github.com/novahq/nova/ui"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// telemetryLogName is the durable event log inside the data dir.
const telemetryLogName = "dev-telemetry.log"

func printUsage() {
	fmt.Fprintf(os.Stderr, `nova v%s — telemetry-aware system admin companion

Usage:
  nova [OPTIONS]

Modes:
  (default)         Interactive chat TUI with live telemetry status bar
  -daemon           Headless sampler + health monitor (no TUI)
  -telemetry        Print telemetry snapshots as JSON to stdout
  -stats            Replay the event log and print aggregate stats, then exit
  -tool NAME        Run one toolbox tool and print its report, then exit
                    Tools: ProcessInspector, EventLogTriage, NetworkCheck
  -seed             Seed a first conversation and welcome notification
  -version          Print version and exit

Options:
  -datadir PATH     Data directory (default: ~/.nova)
  -interval N       Telemetry sample interval in seconds (default: from config)
  -model NAME       Override the default language model

Environment:
  OPENAI_API_KEY    API key for the language model (required for chat)
  OPENAI_MODEL      Overrides the configured default model

Examples:
  nova                          Chat TUI
  nova -daemon                  Background monitoring only
  nova -telemetry | jq .status
  nova -stats
  nova -tool NetworkCheck
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	cfg := config.Load()

	var (
		daemonMode    bool
		telemetryMode bool
		statsMode     bool
		seedMode      bool
		showVersion   bool
		toolName      string
		dataDir       string
		intervalSec   int
		modelName     string
	)

	flag.BoolVar(&daemonMode, "daemon", false, "Run headless sampler and health monitor")
	flag.BoolVar(&telemetryMode, "telemetry", false, "Print telemetry snapshots as JSON")
	flag.BoolVar(&statsMode, "stats", false, "Replay the event log and print stats")
	flag.BoolVar(&seedMode, "seed", false, "Seed a first conversation")
	flag.StringVar(&toolName, "tool", "", "Run one toolbox tool and exit")
	flag.StringVar(&dataDir, "datadir", "", "Data directory (default: ~/.nova)")
	flag.IntVar(&intervalSec, "interval", 0, "Telemetry sample interval in seconds")
	flag.StringVar(&modelName, "model", "", "Override the default language model")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("nova v%s\n", Version)
		return nil
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if intervalSec > 0 {
		cfg.SampleIntervalSec = intervalSec
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/tmp"
		}
		cfg.DataDir = filepath.Join(home, ".nova")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("cannot create data dir: %w", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if statsMode {
		return runStats(app)
	}
	if seedMode {
		return app.DB.Seed(cfg.Model)
	}
	if toolName != "" {
		return runTool(app, toolName)
	}
	if telemetryMode {
		return runTelemetry(app)
	}
	if daemonMode {
		return runDaemon(app)
	}
	return runTUI(app, cfg)
}

// app holds the wired application graph.
type app struct {
	Config   config.Config
	DB       *store.Store
	Recorder *telemetry.Recorder
	Sampler  *telemetry.Sampler
	Alerts   *alerts.Store
	Monitor  *monitor.HealthMonitor
	Orch     *chat.Orchestrator
	Toolbox  *toolbox.Service
}

// newApp wires the full graph: store, recorder, sampler, alert store, health
// monitor, language model client, orchestrator, toolbox.
func newApp(cfg config.Config) (*app, error) {
	db, err := store.Open(filepath.Join(cfg.DataDir, "nova.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	recorder := telemetry.NewRecorder(filepath.Join(cfg.DataDir, telemetryLogName))
	sampler := telemetry.NewSampler(telemetry.HostProbes(),
		time.Duration(cfg.SampleIntervalSec)*time.Second)
	alertStore := alerts.New()
	mon := monitor.New(sampler, alertStore, db)

	llm := ai.NewClient(config.APIKey())
	orch := chat.NewOrchestrator(db, llm, sampler, alertStore, recorder, cfg.Model)
	tb := toolbox.NewService(db, recorder)

	return &app{
		Config:   cfg,
		DB:       db,
		Recorder: recorder,
		Sampler:  sampler,
		Alerts:   alertStore,
		Monitor:  mon,
		Orch:     orch,
		Toolbox:  tb,
	}, nil
}

func (a *app) Close() {
	a.Monitor.Stop()
	a.Sampler.Stop()
	a.DB.Close()
}

// runTUI starts the sampler and monitor in the background and runs the chat
// console fullscreen.
func runTUI(a *app, cfg config.Config) error {
	if err := a.DB.Seed(cfg.Model); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	a.Sampler.Start()
	a.Monitor.Start(time.Duration(cfg.MonitorIntervalSec) * time.Second)

	m := ui.NewModel(a.DB, a.Orch, a.Sampler, a.Recorder)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// runDaemon runs the sampler and monitor headless until SIGINT/SIGTERM.
func runDaemon(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Sampler.Start()
		<-ctx.Done()
		a.Sampler.Stop()
		return nil
	})
	g.Go(func() error {
		a.Monitor.Start(time.Duration(a.Config.MonitorIntervalSec) * time.Second)
		<-ctx.Done()
		a.Monitor.Stop()
		return nil
	})
	return g.Wait()
}

// runTelemetry starts the sampler and prints each snapshot as one JSON line.
func runTelemetry(a *app) error {
	a.Sampler.Start()
	defer a.Sampler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if snap := a.Sampler.Snapshot(); snap != nil {
				if err := enc.Encode(snap); err != nil {
					return err
				}
			}
		}
	}
}

// runStats replays the durable event log into a fresh recorder and prints the
// aggregate stats as indented JSON.
func runStats(a *app) error {
	events, err := telemetry.ReadEventLog(filepath.Join(a.Config.DataDir, telemetryLogName))
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	rec := telemetry.NewRecorder("")
	rec.Load(events)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec.Stats())
}

// runTool executes one toolbox tool and prints its report.
func runTool(a *app, name string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		report any
		err    error
	)
	switch name {
	case toolbox.ToolProcessInspector:
		report, err = a.Toolbox.RunProcessInspector(ctx)
	case toolbox.ToolEventLogTriage:
		report, err = a.Toolbox.RunEventLogTriage(ctx)
	case toolbox.ToolNetworkCheck:
		report, err = a.Toolbox.RunNetworkCheck(ctx)
	default:
		return fmt.Errorf("unknown tool %q", name)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
