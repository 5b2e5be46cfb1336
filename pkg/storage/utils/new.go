package storageutils

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/askbase/pkg/storage"
	"github.com/papercomputeco/askbase/pkg/storage/inmemory"
	"github.com/papercomputeco/askbase/pkg/storage/postgres"
	"github.com/papercomputeco/askbase/pkg/storage/sqlite"
)

type NewStorageDriverOpts struct {
	// PostgresDSN takes precedence over SQLitePath when both are set.
	PostgresDSN string
	SQLitePath  string
	Logger      *slog.Logger
}

// NewStorageDriver picks postgres, then sqlite, then the in-memory driver.
func NewStorageDriver(ctx context.Context, o *NewStorageDriverOpts) (storage.Driver, error) {
	switch {
	case o.PostgresDSN != "":
		d, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, err
		}
		o.Logger.Info("using PostgreSQL storage")
		return d, nil
	case o.SQLitePath != "":
		d, err := sqlite.NewDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, err
		}
		o.Logger.Info("using SQLite storage", "path", o.SQLitePath)
		return d, nil
	default:
		o.Logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}
