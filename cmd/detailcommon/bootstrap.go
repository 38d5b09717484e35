package detailcommon

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/storage-config-detail/cmd/flags"
	"github.com/ruteri/storage-config-detail/credentials"
	"github.com/ruteri/storage-config-detail/detail"
	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/ruteri/storage-config-detail/storage"
)

// SetupDependencies opens the stores named by the store flags, applies the
// optional seed fixture and returns the assembler dependencies built on them.
// The returned factory owns the open databases; close it on exit.
func SetupDependencies(cCtx *cli.Context, logger *slog.Logger, notifier interfaces.Notifier) (detail.Dependencies, *storage.StoreFactory, error) {
	ctx := cCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}

	factory := storage.NewStoreFactory(logger)

	uris := flags.StoreURIs(cCtx)
	logger.Info("Opening stores",
		slog.String("database", uris.Database),
		slog.String("providers", uris.Providers),
		slog.String("system_credentials", uris.SystemCredentials),
		slog.String("tenant_credentials", uris.TenantCredentials))

	stores, err := factory.Open(ctx, uris)
	if err != nil {
		factory.Close()
		return detail.Dependencies{}, nil, fmt.Errorf("failed to open stores: %w", err)
	}

	for _, name := range stores.Unavailable(ctx) {
		logger.Warn("Credential store is not available, credential sections will degrade", slog.String("store", name))
	}

	if seedFile := cCtx.String(flags.SeedFlag.Name); seedFile != "" {
		if err := seed(ctx, stores, seedFile); err != nil {
			factory.Close()
			return detail.Dependencies{}, nil, err
		}
		logger.Info("Database seeded", slog.String("file", seedFile))
	}

	deps := detail.Dependencies{
		Configurations: stores.Configurations,
		Providers:      stores.Providers,
		Credentials:    credentials.NewResolver(stores.SystemCredentials, stores.TenantCredentials, logger),
		Tenants:        stores.Tenants,
		Modules:        stores.Modules,
		Recorder:       stores.Configurations,
		Notifier:       notifier,
		Log:            logger,
		DefaultQuota:   cCtx.Int64(flags.DefaultQuotaFlag.Name),
	}
	return deps, factory, nil
}

func seed(ctx context.Context, stores *storage.Stores, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	fixture, err := storage.LoadFixture(f)
	if err != nil {
		return err
	}
	return storage.Seed(ctx, stores.Configurations.Database, fixture)
}
