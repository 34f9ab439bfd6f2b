package main

import (
	"context"
	"io"

	cfg "reduction.dev/lineingest/config"
	"reduction.dev/lineingest/connectors"
	"reduction.dev/lineingest/connectors/stdio"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/tokenizer"
)

type splitParams struct {
	mode            string
	policy          string
	maxRecordSize   int
	maxPendingBytes int
	features        bool
	format          string
	encoding        string
	in              io.Reader
	out             io.Writer
}

func runSplit(ctx context.Context, p splitParams) error {
	mode, err := tokenizer.ParseMode(p.mode)
	if err != nil {
		return err
	}
	policy, err := ingest.ParsePolicy(p.policy)
	if err != nil {
		return err
	}
	formatter, err := records.NewFormatter(p.format)
	if err != nil {
		return err
	}
	enc, err := cfg.LookupEncoding(p.encoding)
	if err != nil {
		return err
	}
	features := tokenizer.NoFeatures
	if p.features {
		features = tokenizer.AllFeatures
	}

	src := stdio.NewSourceReader(stdio.SourceConfig{
		In: p.in,
		Tokenizer: tokenizer.Params{
			Mode:          mode,
			MaxRecordSize: p.maxRecordSize,
			Features:      features,
		},
		Ingest:    ingest.Params{Policy: policy, MaxPendingBytes: p.maxPendingBytes},
		Encoding:  enc,
		Formatter: formatter,
	})
	return connectors.Copy(ctx, stdio.NewSink(stdio.SinkConfig{Out: p.out}), src)
}
