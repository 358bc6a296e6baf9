package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/persistence/memory"
	"github.com/hirezen/stageflow/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"postgres", "postgresql", "memory"}

// NewPersistence opens the store selected by the URL scheme.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	case "memory":
		return memory.NewPersistence(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q (supported: %s)",
			provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
