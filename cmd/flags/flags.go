package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/storage-config-detail/common"
	"github.com/ruteri/storage-config-detail/httpserver"
	"github.com/ruteri/storage-config-detail/storage"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// StoreURIs collects the store location flags.
func StoreURIs(cCtx *cli.Context) storage.StoreURIs {
	return storage.StoreURIs{
		Database:          cCtx.String(DatabaseFlag.Name),
		Providers:         cCtx.String(ProvidersFlag.Name),
		SystemCredentials: cCtx.String(SystemCredentialsFlag.Name),
		TenantCredentials: cCtx.String(TenantCredentialsFlag.Name),
	}
}

var DatabaseFlag = &cli.StringFlag{
	Name:    "database",
	Value:   "sqlite://storage-config.db",
	EnvVars: []string{"STORAGECFG_DATABASE"},
	Usage:   "sqlite database holding configurations, tenants, modules and counters (sqlite://<path> or sqlite://memory)",
}
var ProvidersFlag = &cli.StringFlag{
	Name:    "providers",
	EnvVars: []string{"STORAGECFG_PROVIDERS"},
	Usage:   "provider catalog location (sqlite:// or file://); defaults to the database",
}
var SystemCredentialsFlag = &cli.StringFlag{
	Name:    "system-credentials",
	EnvVars: []string{"STORAGECFG_SYSTEM_CREDENTIALS"},
	Usage:   "system credential store location (sqlite:// or vault://); defaults to the database",
}
var TenantCredentialsFlag = &cli.StringFlag{
	Name:    "tenant-credentials",
	EnvVars: []string{"STORAGECFG_TENANT_CREDENTIALS"},
	Usage:   "tenant credential store location (sqlite:// or vault://); defaults to the database",
}
var SeedFlag = &cli.StringFlag{
	Name:  "seed",
	Usage: "JSON fixture to load into the database on startup",
}
var DefaultQuotaFlag = &cli.Int64Flag{
	Name:    "default-quota",
	Value:   0,
	EnvVars: []string{"STORAGECFG_DEFAULT_QUOTA"},
	Usage:   "quota in bytes for configurations without one (0 disables)",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var StoreFlags = []cli.Flag{
	DatabaseFlag,
	ProvidersFlag,
	SystemCredentialsFlag,
	TenantCredentialsFlag,
	SeedFlag,
	DefaultQuotaFlag,
}

var CommonFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
