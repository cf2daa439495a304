package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
	"github.com/m3rciful/unilinkup/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error

	// Storage is handed to every seeder; seeders run in order and the first failure aborts.
	Storage Storage
	Seeders []Seeder
}

// Result exposes what the bootstrap pipeline did.
type Result struct {
	Seeded int
}

// Run initializes the logger and then runs the configured seeders against storage.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	for i, s := range opts.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Seed(ctx, opts.Storage); err != nil {
			return res, fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
		res.Seeded++
		logger.Debug(ctx, "app", "bootstrap.seed",
			slog.Int("count", i+1),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return res, nil
}
