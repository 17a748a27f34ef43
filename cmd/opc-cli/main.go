// Command opc-cli is an interactive shell for an OPC tag session.
//
// Usage:
//
//	opc-cli [flags]
//
// Flags:
//
//	-config string   Configuration file path (YAML)
//	-server string   OPC server program ID
//	-host string     Server host (default from config)
//	-simulate        Use the built-in simulated server
//	-trace string    Write a protocol trace to this file (.olog)
//	-announce        Announce the session on the local network via mDNS
//	-verbose         Mirror the protocol trace to the log output
//
// Interactive Commands:
//
//	read <tag> [tag...]       - Read tags
//	write <tag>=<value> [...] - Write values
//	groups                    - List active tag groups
//	remove <group> [...]      - Remove tag groups
//	tags                      - List the simulated server's tags
//	health                    - Read the system health tags
//	discover                  - Browse for gateway sessions on the LAN
//	info                      - Show session information
//	quit                      - Exit
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openda-project/openda-go/cmd/opc-cli/interactive"
	"github.com/openda-project/openda-go/pkg/config"
	"github.com/openda-project/openda-go/pkg/discovery"
	"github.com/openda-project/openda-go/pkg/health"
	"github.com/openda-project/openda-go/pkg/opc"
	"github.com/openda-project/openda-go/pkg/sim"
	"github.com/openda-project/openda-go/pkg/trace"
)

const version = "0.3.0"

var flags struct {
	configFile string
	server     string
	host       string
	simulate   bool
	tracePath  string
	announce   bool
	verbose    bool
}

func init() {
	flag.StringVar(&flags.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.server, "server", "", "OPC server program ID")
	flag.StringVar(&flags.host, "host", "", "Server host")
	flag.BoolVar(&flags.simulate, "simulate", false, "Use the built-in simulated server")
	flag.StringVar(&flags.tracePath, "trace", "", "Write a protocol trace to this file")
	flag.BoolVar(&flags.announce, "announce", false, "Announce the session via mDNS")
	flag.BoolVar(&flags.verbose, "verbose", false, "Mirror the protocol trace to the log output")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	cfg, err := config.Load(flags.configFile)
	if err != nil {
		log.Fatalf("Configuration: %v", err)
	}
	if flags.server != "" {
		cfg.Server = flags.server
	}
	if flags.host != "" {
		cfg.Host = flags.host
	}
	if flags.simulate {
		cfg.Simulate = true
	}

	// The shell currently speaks to the simulator only; a DCOM-capable
	// source plugs in through the same remote.Source surface.
	if !cfg.Simulate {
		log.Fatal("No remote source available: run with -simulate (or OPC_SIMU=1)")
	}
	if cfg.Server == "" {
		cfg.Server = "Simulation.OPCServer.1"
	}

	src := sim.New(demoTags())

	tracer, closeTracer, err := buildTracer()
	if err != nil {
		log.Fatalf("Trace: %v", err)
	}
	defer closeTracer()

	client := opc.NewClient(src,
		opc.WithTraceLogger(tracer),
		opc.WithHealthReader(health.NewReader()),
		opc.WithClientName(cfg.ClientName),
	)
	if err := client.Connect(cfg.Server, cfg.Host); err != nil {
		log.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to %s (session %s)", cfg.Server, client.GUID())

	var advertiser *discovery.Advertiser
	if flags.announce {
		advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		err := advertiser.Advertise(&discovery.GatewayInfo{
			Server:    cfg.Server,
			SessionID: client.GUID(),
			Version:   version,
		})
		if err != nil {
			log.Printf("Announce failed: %v", err)
		} else {
			defer advertiser.Stop()
			log.Printf("Announced as %s on the local network", discovery.ServiceType)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shell, err := interactive.New(client, src, interactive.Config{
		Server:  cfg.Server,
		Host:    cfg.Host,
		Timeout: cfg.Timeout,
		Version: version,
	})
	if err != nil {
		log.Fatalf("Shell: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input.
	log.SetOutput(shell.Stdout())
	go shell.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Goodbye!")
}

// buildTracer assembles the trace logger from the -trace and -verbose
// flags. The returned func closes any file logger.
func buildTracer() (trace.Logger, func(), error) {
	var loggers []trace.Logger
	closeTracer := func() {}

	if flags.tracePath != "" {
		fl, err := trace.NewFileLogger(flags.tracePath)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeTracer = func() { _ = fl.Close() }
	}
	if flags.verbose {
		loggers = append(loggers, trace.NewSlogAdapter(slog.Default()))
	}

	switch len(loggers) {
	case 0:
		return trace.NoopLogger{}, closeTracer, nil
	case 1:
		return loggers[0], closeTracer, nil
	default:
		return trace.NewMultiLogger(loggers...), closeTracer, nil
	}
}

// demoTags populates the simulator with a small plant model.
func demoTags() map[string]any {
	return map[string]any{
		"Pump.Speed":       1450,
		"Pump.Running":     true,
		"Tank.Level":       72.4,
		"Tank.Temperature": 21.5,
		"Valve.Position":   0.35,
		"Line.Pressure":    4.82,
	}
}
