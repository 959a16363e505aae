package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tinyrange/vplic"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the device configuration on disk.
type fileConfig struct {
	Base     uint64 `yaml:"base"`
	Size     uint64 `yaml:"size"`
	HostBase uint64 `yaml:"hostBase,omitempty"`
	Contexts int    `yaml:"contexts"`

	ClaimFiltering bool `yaml:"claimFiltering,omitempty"`

	// Sources to inject before running the claim loop.
	Inject []uint32 `yaml:"inject,omitempty"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		Base:     0x0C000000,
		Size:     0x00400000,
		Contexts: 2,
	}
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func parseSources(list string) ([]uint32, error) {
	if list == "" {
		return nil, nil
	}
	var out []uint32
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseUint(field, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad source %q: %w", field, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func run() error {
	configPath := flag.String("config", "", "YAML device config (see flags for defaults)")
	contexts := flag.Int("contexts", 0, "override the context count")
	context := flag.Int("context", 0, "context id used by the claim loop")
	inject := flag.String("inject", "", "comma-separated source ids to inject")
	devmem := flag.Bool("devmem", false, "pass through to the real controller via /dev/mem (linux, requires root)")
	verbose := flag.Bool("v", false, "debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `plicdbg - exercise a virtual RISC-V PLIC

USAGE:
  plicdbg [flags]

FLAGS:
  -config FILE   YAML config: base, size, hostBase, contexts, claimFiltering, inject
  -contexts N    Override the context count
  -context N     Context id used by the claim loop (default: 0)
  -inject LIST   Source ids to inject, e.g. "5,9,0x40"
  -devmem        Map the real controller from /dev/mem instead of simulating it
  -v             Debug logging

Without -devmem the hardware side is an in-memory register window, so
the passthrough traffic is observable but harmless.

EXAMPLES:
  plicdbg -inject 5,9                  Inject two sources and drain them
  plicdbg -config plic.yaml -v         Run a scripted scenario
`)
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return err
		}
	}
	if *contexts > 0 {
		cfg.Contexts = *contexts
	}
	if *inject != "" {
		sources, err := parseSources(*inject)
		if err != nil {
			return err
		}
		cfg.Inject = sources
	}

	hostBase := cfg.HostBase
	if hostBase == 0 {
		hostBase = cfg.Base
	}

	var host vplic.HostController
	if *devmem {
		opened, closeHost, err := vplic.OpenHostController(hostBase, cfg.Size)
		if err != nil {
			return fmt.Errorf("open host controller: %w", err)
		}
		defer closeHost()
		host = opened
	} else {
		host = vplic.NewMemController(hostBase, cfg.Size)
	}

	dev, err := vplic.New(vplic.Config{
		Base:           cfg.Base,
		Size:           cfg.Size,
		HostBase:       cfg.HostBase,
		Contexts:       cfg.Contexts,
		Host:           host,
		ClaimFiltering: cfg.ClaimFiltering,
		Line: vplic.LineFromFunc(func(high bool) {
			slog.Debug("guest line", "high", high)
		}),
	})
	if err != nil {
		return err
	}

	slog.Info("device ready",
		"base", fmt.Sprintf("0x%x", cfg.Base),
		"size", fmt.Sprintf("0x%x", cfg.Size),
		"contexts", cfg.Contexts,
		"filtering", cfg.ClaimFiltering)

	for _, source := range cfg.Inject {
		dev.Inject(source)
		slog.Info("injected", "source", source, "pending", dev.IsPending(source))
	}

	if *context < 0 || *context >= cfg.Contexts {
		return fmt.Errorf("claim context %d out of range [0, %d)", *context, cfg.Contexts)
	}

	claimAddr := cfg.Base + vplic.ContextBase +
		uint64(*context)*vplic.ContextStride + vplic.ClaimCompleteOffset
	buf := make([]byte, 4)

	for {
		if err := dev.ReadMMIO(claimAddr, buf); err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		source := binary.LittleEndian.Uint32(buf)
		if source == 0 {
			break
		}
		slog.Info("claimed", "source", source, "context", *context)

		binary.LittleEndian.PutUint32(buf, source)
		if err := dev.WriteMMIO(claimAddr, buf); err != nil {
			return fmt.Errorf("complete: %w", err)
		}
		slog.Info("completed", "source", source)
	}

	stats := dev.Stats()
	slog.Info("done",
		"injected", stats.Injected,
		"claimed", stats.Claimed,
		"completed", stats.Completed,
		"faults", stats.Faults)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "plicdbg: %v\n", err)
		os.Exit(1)
	}
}
