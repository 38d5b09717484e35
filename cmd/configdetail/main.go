package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/storage-config-detail/cmd/detailcommon"
	"github.com/ruteri/storage-config-detail/cmd/flags"
	"github.com/ruteri/storage-config-detail/detail"
	"github.com/ruteri/storage-config-detail/notify"
)

var flagConfigID *cli.StringFlag = &cli.StringFlag{
	Name:     "config",
	Aliases:  []string{"c"},
	Required: true,
	Usage:    "storage configuration id",
}
var flagFormattedOnly *cli.BoolFlag = &cli.BoolFlag{
	Name:  "formatted",
	Usage: "print only the display strings of the usage summary",
}

const usage string = `Inspect storage configurations directly against the stores.

Notifications raised while loading are written to the log.`

func main() {
	var appFlags []cli.Flag
	appFlags = append(appFlags, flagConfigID, flagFormattedOnly)
	appFlags = append(appFlags, flags.StoreFlags...)
	appFlags = append(appFlags, flags.LogFlags...)

	app := &cli.App{
		Name:  "configdetail",
		Usage: usage,
		Flags: appFlags,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "load a configuration and print its detail snapshot",
				Action: func(cCtx *cli.Context) error {
					return run(cCtx, false)
				},
			},
			{
				Name:  "resync",
				Usage: "load a configuration, recompute its usage and persist the result",
				Action: func(cCtx *cli.Context) error {
					return run(cCtx, true)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context, resync bool) error {
	logger := flags.SetupLogger(cCtx)

	deps, factory, err := detailcommon.SetupDependencies(cCtx, logger, notify.NewLogNotifier(logger))
	if err != nil {
		return err
	}
	defer factory.Close()

	a := detail.New(deps)
	defer a.Close()

	id := cCtx.String(flagConfigID.Name)
	if err := a.Load(cCtx.Context, id); err != nil {
		return fmt.Errorf("failed to load %s: %w", id, err)
	}

	if resync {
		if err := a.Resync(cCtx.Context); err != nil {
			return fmt.Errorf("failed to resync %s: %w", id, err)
		}
	}

	snapshot := a.Snapshot()

	var out any = snapshot
	if cCtx.Bool(flagFormattedOnly.Name) {
		if snapshot.Formatted == nil {
			return errors.New("no usage summary available")
		}
		out = snapshot.Formatted
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
