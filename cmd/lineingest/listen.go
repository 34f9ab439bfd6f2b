package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	cfg "reduction.dev/lineingest/config"
	"reduction.dev/lineingest/config/jsontemplate"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/connectors/kinesis"
	"reduction.dev/lineingest/connectors/stdio"
	"reduction.dev/lineingest/connectors/tcp"
	"reduction.dev/lineingest/logging"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/util/fileu"
	"reduction.dev/lineingest/util/httpu"
)

func runListen(ctx context.Context, configPath string, paramFlags []string, levelFromFlag bool) error {
	data, err := fileu.ReadFile(ctx, configPath)
	if err != nil {
		return err
	}
	params, err := jsontemplate.ParseFlags(paramFlags)
	if err != nil {
		return err
	}
	c, err := cfg.Unmarshal(data, params)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config validation error: %v", err)
	}

	if c.LogLevel != "" && !levelFromFlag {
		level, err := logging.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
	}

	sink, err := newSink(c.Sink)
	if err != nil {
		return err
	}
	formatter, err := records.NewFormatter(c.Sink.Format)
	if err != nil {
		return err
	}
	enc, err := cfg.LookupEncoding(c.Listener.Encoding)
	if err != nil {
		return err
	}

	server := tcp.NewServer(tcp.ServerParams{
		Name:             c.Listener.Name,
		Tokenizer:        c.TokenizerParams(),
		Ingest:           c.IngestParams(),
		Encoding:         enc,
		Formatter:        formatter,
		Sink:             sink,
		MaxAssembledSize: c.Listener.MaxAssembledSize,
		ReadSize:         c.Listener.ReadSize,
		ProcessInterval:  time.Duration(c.Listener.ProcessInterval),
		ProcessBudget:    time.Duration(c.Listener.ProcessBudget),
		IdleFlush:        time.Duration(c.Listener.IdleFlush),
		StallAfter:       time.Duration(c.Listener.StallAfter),
		StatsInterval:    time.Duration(c.Listener.StatsInterval),
	})

	l, err := net.Listen("tcp", c.Listener.Addr)
	if err != nil {
		return err
	}
	var adminListener net.Listener
	if c.AdminAddr != "" {
		adminListener, err = net.Listen("tcp", c.AdminAddr)
		if err != nil {
			l.Close()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, l)
	})
	if adminListener != nil {
		slog.Info("admin server listening", "addr", adminListener.Addr().String())
		admin := httpu.NewServer(httpu.NewAdminHandler(slog.With("instanceID", "admin")))
		g.Go(func() error {
			return admin.Serve(gctx, adminListener)
		})
	}

	err = g.Wait()
	if f, ok := sink.(connectors.SinkFlusher); ok {
		err = errors.Join(err, f.Flush())
	}
	if err != nil {
		slog.Error("terminated with error", "err", err)
	}
	return err
}

func newSink(c cfg.SinkConfig) (connectors.SinkWriter, error) {
	switch c.Type {
	case "kinesis":
		client, err := kinesis.NewClient(&kinesis.NewClientParams{
			Endpoint: c.Kinesis.Endpoint,
			Region:   c.Kinesis.Region,
			Profile:  c.Kinesis.Profile,
		})
		if err != nil {
			return nil, err
		}
		return kinesis.NewSink(kinesis.SinkConfig{
			StreamARN: c.Kinesis.StreamARN,
			Client:    client,
			BatchSize: c.Kinesis.BatchSize,
			MaxDelay:  time.Duration(c.Kinesis.MaxDelay),
		}), nil
	default:
		return stdio.NewSink(stdio.SinkConfig{Out: os.Stdout}), nil
	}
}
