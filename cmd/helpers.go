package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/drift/internal/config"
	"github.com/ziadkadry99/drift/internal/llm"
	"github.com/ziadkadry99/drift/internal/metricsserver"
	"github.com/ziadkadry99/drift/pkg/drift"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `drift init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w\nRun `drift init` or edit %s", err, cfgFile)
	}
	return cfg, nil
}

// newDriftClient creates a client from config. Its metrics are registered
// on reg when reg is non-nil.
func newDriftClient(cfg *config.Config, reg prometheus.Registerer) (*drift.Client, error) {
	opts := []drift.Option{
		drift.WithLogger(logger),
		drift.WithUserAgent("drift-cli/" + Version),
	}
	if reg != nil {
		metrics, err := drift.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		opts = append(opts, drift.WithMetrics(metrics))
	}
	return drift.NewClient(cfg.DriftConfig(), opts...)
}

// listenMetrics binds the metrics address from --metrics-addr or config.
// It returns a nil listener and registry when metrics are off.
func listenMetrics(cmd *cobra.Command, cfg *config.Config) (net.Listener, *prometheus.Registry, error) {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	if addr == "" {
		return nil, nil, nil
	}
	ln, err := metricsserver.Listen(addr)
	if err != nil {
		return nil, nil, err
	}
	return ln, prometheus.NewRegistry(), nil
}

// registerer avoids handing a typed nil registry to the client.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

// newProvider creates the language model provider used by chat.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return nil, fmt.Errorf("%w\nRun `drift init` to choose a provider", err)
	}
	return llm.NewProvider(pc)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
