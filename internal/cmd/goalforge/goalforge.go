// Package goalforge parses server command flags and composes the service
// entrypoint.
package goalforge

import (
	"context"
	"flag"
	"fmt"

	server "github.com/shxuryaaz/agilow-goal-forge/internal/app/server"
	entrypoint "github.com/shxuryaaz/agilow-goal-forge/internal/platform/cmd"
)

// Config holds goalforge command configuration.
type Config struct {
	HTTPAddr       string `env:"GOALFORGE_HTTP_ADDR"           envDefault:":8080"`
	GRPCAddr       string `env:"GOALFORGE_GRPC_ADDR"           envDefault:""`
	DBPath         string `env:"GOALFORGE_DB_PATH"             envDefault:"goalforge.db"`
	BoardAPIKey    string `env:"GOALFORGE_BOARD_API_KEY"`
	OpenAIAPIKey   string `env:"GOALFORGE_OPENAI_API_KEY"`
	LedgerEndpoint string `env:"GOALFORGE_LEDGER_ENDPOINT"`
	LedgerAPIKey   string `env:"GOALFORGE_LEDGER_API_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.BoardAPIKey, "board-api-key", cfg.BoardAPIKey, "board provider API key")
	fs.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", cfg.OpenAIAPIKey, "OpenAI API key (empty uses the deterministic planner)")
	fs.StringVar(&cfg.LedgerEndpoint, "ledger-endpoint", cfg.LedgerEndpoint, "credential ledger relay endpoint (empty skips minting)")
	fs.StringVar(&cfg.LedgerAPIKey, "ledger-api-key", cfg.LedgerAPIKey, "credential ledger relay API key")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the goalforge app and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGoalForge, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:       cfg.HTTPAddr,
			GRPCAddr:       cfg.GRPCAddr,
			DBPath:         cfg.DBPath,
			BoardAPIKey:    cfg.BoardAPIKey,
			OpenAIAPIKey:   cfg.OpenAIAPIKey,
			LedgerEndpoint: cfg.LedgerEndpoint,
			LedgerAPIKey:   cfg.LedgerAPIKey,
		}); err != nil {
			return fmt.Errorf("serve goalforge: %w", err)
		}
		return nil
	})
}
