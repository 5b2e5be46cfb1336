package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/askbase/pkg/vector"
	"github.com/papercomputeco/askbase/pkg/vector/chroma"
	"github.com/papercomputeco/askbase/pkg/vector/inmemory"
	"github.com/papercomputeco/askbase/pkg/vector/qdrant"
	"github.com/papercomputeco/askbase/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderQdrant = "qdrant"
	ProviderChroma = "chroma"
	ProviderSQLite = "sqlite"
	ProviderMemory = "memory"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is a URL for qdrant and chroma, or a database path for sqlite.
	Target     string
	Collection string
	APIKey     string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			URL:            o.Target,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderMemory:
		return inmemory.NewDriver(o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
