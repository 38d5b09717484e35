package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/storage-config-detail/cmd/detailcommon"
	"github.com/ruteri/storage-config-detail/cmd/flags"
	"github.com/ruteri/storage-config-detail/httpserver"
	"github.com/ruteri/storage-config-detail/notify"
)

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	EnvVars: []string{"STORAGECFG_LISTEN_ADDR"},
	Usage:   "address to listen on for API",
}

var NotificationBufferFlag = &cli.IntFlag{
	Name:  "notification-buffer",
	Value: 100,
	Usage: "number of recent notifications kept for /api/notifications",
}

func main() {
	var appFlags []cli.Flag
	appFlags = append(appFlags, ListenAddrFlag, NotificationBufferFlag)
	appFlags = append(appFlags, flags.StoreFlags...)
	appFlags = append(appFlags, flags.CommonFlags...)
	appFlags = append(appFlags, flags.LogFlags...)

	app := &cli.App{
		Name:  "storage-config-server",
		Usage: "Serve storage configuration details",
		Flags: appFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			notes := notify.NewBuffer(cCtx.Int(NotificationBufferFlag.Name))
			notifier := notify.Multi{notes, notify.NewLogNotifier(logger)}

			deps, factory, err := detailcommon.SetupDependencies(cCtx, logger, notifier)
			if err != nil {
				logger.Error("Failed to set up stores", "err", err)
				return err
			}
			defer factory.Close()

			handler := httpserver.NewHandler(deps, notes, logger)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(ListenAddrFlag.Name))
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
