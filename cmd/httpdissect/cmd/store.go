package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/file"
	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/sqlite"
	"github.com/Sentinel-Gate/httpdissect/internal/config"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

// openStore creates the capture store selected by store.driver.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (capture.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("capture store opened", "driver", "sqlite", "path", cfg.Store.Path)
		return st, nil
	case "file":
		st, err := file.NewCaptureStore(cfg.Store.Path, cfg.Store.BufferSize, logger)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		logger.Info("capture store opened", "driver", "file", "path", cfg.Store.Path, "max_records", cfg.Store.BufferSize)
		return st, nil
	case "memory", "":
		logger.Info("capture store opened", "driver", "memory", "capacity", cfg.Store.BufferSize)
		return memory.NewCaptureStore(cfg.Store.BufferSize), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
