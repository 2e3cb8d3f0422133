// Command plantar-web serves the plantar analysis API, the playback push
// channel and Prometheus metrics. Recordings named on the command line are
// loaded before the server starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"plantarcli/internal/app"
	"plantarcli/internal/infrastructure"
	"plantarcli/pkg/contracts"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: plantar-web [recording|dir ...]")
		fmt.Fprintln(flag.CommandLine.Output(), "relative paths resolve against paths.data_dir; configure with PLANTAR_* or PLANTAR_CONFIG")
		flag.PrintDefaults()
	}
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()
	if *version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if files := flag.Args(); len(files) > 0 {
		loaded, err := application.Preload(context.Background(), files)
		if err != nil {
			application.Logger.Error("Failed to preload recordings", slog.String("error", err.Error()))
			os.Exit(1)
		}
		application.Logger.Info("Recordings preloaded", slog.Int("count", len(loaded)))
	}

	if err := application.Run(); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
