package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"reduction.dev/lineingest/logging"
)

func main() {
	app := &cli.App{
		Name:  "lineingest",
		Usage: "Split appliance log streams into records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "one of debug, info, warn or error",
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := logging.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			logging.SetLevel(level)
			slog.SetDefault(slog.New(logging.NewTextHandler(os.Stderr)))
			return nil
		},
		Commands: []*cli.Command{{
			Name:      "listen",
			Usage:     "Accept appliance connections and forward their records to a sink",
			ArgsUsage: "<config-file or s3://bucket/key>",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:  "param",
					Usage: "a NAME=VALUE pair substituted for {\"$param\": \"NAME\"} in the config",
				},
			},
			Action: func(ctx *cli.Context) error {
				configPath := ctx.Args().First()
				if configPath == "" {
					return cli.Exit("config file path is required", 1)
				}
				sigCtx, stop := signalContext(ctx.Context)
				defer stop()
				return runListen(sigCtx, configPath, ctx.StringSlice("param"), ctx.IsSet("log-level"))
			},
		}, {
			Name:  "split",
			Usage: "Split records read from stdin and write them to stdout",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "mode",
					Value: "bytes",
					Usage: "count record sizes in bytes or chars",
				},
				&cli.StringFlag{
					Name:  "policy",
					Value: "ring",
					Usage: "overload policy, ring or drop",
				},
				&cli.IntFlag{
					Name:  "max-record-size",
					Usage: "records longer than this are split (default 16384)",
				},
				&cli.IntFlag{
					Name:  "max-pending-bytes",
					Usage: "bytes queued before the overload policy applies",
				},
				&cli.BoolFlag{
					Name:  "features",
					Usage: "collect key-value and category hints",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: "raw",
					Usage: "output format, raw or json",
				},
				&cli.StringFlag{
					Name:  "encoding",
					Usage: "IANA charset of the input, such as ISO-8859-1",
				},
			},
			Action: func(ctx *cli.Context) error {
				sigCtx, stop := signalContext(ctx.Context)
				defer stop()
				return runSplit(sigCtx, splitParams{
					mode:            ctx.String("mode"),
					policy:          ctx.String("policy"),
					maxRecordSize:   ctx.Int("max-record-size"),
					maxPendingBytes: ctx.Int("max-pending-bytes"),
					features:        ctx.Bool("features"),
					format:          ctx.String("format"),
					encoding:        ctx.String("encoding"),
					in:              os.Stdin,
					out:             os.Stdout,
				})
			},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
