// Command lumen-flow runs the flow analysis engine over fixture files and
// reports its findings. It is a development tool around the library
// packages; the compiler front end drives the same engine directly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/urfave/cli/v2"

	"github.com/lumen-lang/lumen/internal/config"
	"github.com/lumen-lang/lumen/internal/fixture"
	"github.com/lumen-lang/lumen/internal/flow"
	"github.com/lumen-lang/lumen/internal/watch"
)

const (
	flagConfig = "config"
	flagWatch  = "watch"
	flagStats  = "stats"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:  "lumen-flow",
		Usage: "flow analysis checker for Lumen fixture files",
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Analyze fixture files and print findings",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagConfig,
						Usage: "Path to the YAML analyzer configuration.",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "Whether to keep running and re-analyze files on change.",
					},
					&cli.BoolFlag{
						Name:  flagStats,
						Usage: "Whether to dump analysis counters after each run.",
					},
				},
				Action: func(c *cli.Context) error {
					return runCheck(ctx, c)
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCheck(ctx context.Context, c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("no fixture files given")
	}

	opts := &flow.Options{}

	if cfgPath := c.String(flagConfig); cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		opts.LanguageVersion = cfg.Version()
		opts.Suppress = cfg.Suppressed()
	}

	run := func() bool {
		failed := false
		for _, path := range paths {
			if !checkFile(path, opts) {
				failed = true
			}
		}

		if c.Bool(flagStats) {
			metrics.WritePrometheus(os.Stderr, false)
		}

		return failed
	}

	failed := run()

	if !c.Bool(flagWatch) {
		if failed {
			return cli.Exit("", 1)
		}

		return nil
	}

	w, err := watch.New(paths, 0)
	if err != nil {
		return fmt.Errorf("cannot watch fixtures: %w", err)
	}

	go w.Run(ctx)

	log.Printf("watching %d file(s); press Ctrl-C to stop", len(paths))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			log.Printf("watch error: %s", err)
		case path, ok := <-w.Changed():
			if !ok {
				return nil
			}

			log.Printf("%s changed, re-analyzing", path)
			run()
		}
	}
}

// checkFile analyzes one fixture and prints its findings. It reports
// whether the file is clean of error-level findings.
func checkFile(path string, opts *flow.Options) bool {
	fx, err := fixture.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)

		return false
	}

	res := flow.AnalyzeFunc(fx.Hierarchy, fx.Function, opts)

	for _, d := range res.Diagnostics() {
		fmt.Println(d)
	}

	return !res.HasErrors()
}
