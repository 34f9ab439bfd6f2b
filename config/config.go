package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/tokenizer"
)

// The object representing the ingestion service configuration.
type Config struct {
	Listener  ListenerConfig  `json:"listener"`
	Tokenizer TokenizerConfig `json:"tokenizer"`
	Ingest    IngestConfig    `json:"ingest"`
	Sink      SinkConfig      `json:"sink"`
	// Address of the HTTP server exposing /metrics. Empty disables it.
	AdminAddr string `json:"adminAddr"`
	// One of debug, info, warn or error.
	LogLevel string `json:"logLevel"`
}

type ListenerConfig struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
	// IANA charset name of the appliance stream, such as "ISO-8859-1".
	Encoding         string   `json:"encoding"`
	ReadSize         int      `json:"readSize"`
	MaxAssembledSize int      `json:"maxAssembledSize"`
	ProcessInterval  Duration `json:"processInterval"`
	ProcessBudget    Duration `json:"processBudget"`
	IdleFlush        Duration `json:"idleFlush"`
	StallAfter       Duration `json:"stallAfter"`
	StatsInterval    Duration `json:"statsInterval"`
}

type TokenizerConfig struct {
	Mode           string `json:"mode"`
	PoolCapacity   int    `json:"poolCapacity"`
	SlotBudget     int    `json:"slotBudget"`
	MaxRecordSize  int    `json:"maxRecordSize"`
	KeyValue       bool   `json:"keyValue"`
	CategoryMarker bool   `json:"categoryMarker"`
	MaxKVPairs     int    `json:"maxKVPairs"`
}

type IngestConfig struct {
	Policy          string `json:"policy"`
	MaxPendingBytes int    `json:"maxPendingBytes"`
}

type SinkConfig struct {
	// stdio or kinesis
	Type string `json:"type"`
	// raw or json
	Format  string            `json:"format"`
	Kinesis KinesisSinkConfig `json:"kinesis"`
}

type KinesisSinkConfig struct {
	StreamARN string   `json:"streamARN"`
	Endpoint  string   `json:"endpoint"`
	Region    string   `json:"region"`
	Profile   string   `json:"profile"`
	BatchSize int      `json:"batchSize"`
	MaxDelay  Duration `json:"maxDelay"`
}

// Duration is a time.Duration written as a string like "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (c *Config) Validate() (err error) {
	if c.Listener.Addr == "" {
		err = errors.Join(err, fmt.Errorf("listener.addr is required"))
	}
	if _, encErr := LookupEncoding(c.Listener.Encoding); encErr != nil {
		err = errors.Join(err, encErr)
	}
	for name, v := range map[string]int{
		"listener.readSize":         c.Listener.ReadSize,
		"listener.maxAssembledSize": c.Listener.MaxAssembledSize,
		"tokenizer.poolCapacity":    c.Tokenizer.PoolCapacity,
		"tokenizer.slotBudget":      c.Tokenizer.SlotBudget,
		"tokenizer.maxRecordSize":   c.Tokenizer.MaxRecordSize,
		"tokenizer.maxKVPairs":      c.Tokenizer.MaxKVPairs,
		"ingest.maxPendingBytes":    c.Ingest.MaxPendingBytes,
	} {
		if v < 0 {
			err = errors.Join(err, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if _, modeErr := tokenizer.ParseMode(c.Tokenizer.Mode); modeErr != nil {
		err = errors.Join(err, modeErr)
	}
	if _, policyErr := ingest.ParsePolicy(c.Ingest.Policy); policyErr != nil {
		err = errors.Join(err, policyErr)
	}
	if _, formatErr := records.NewFormatter(c.Sink.Format); formatErr != nil {
		err = errors.Join(err, formatErr)
	}

	switch c.Sink.Type {
	case "", "stdio":
	case "kinesis":
		if c.Sink.Kinesis.StreamARN == "" {
			err = errors.Join(err, fmt.Errorf("sink.kinesis.streamARN is required"))
		}
		if c.Sink.Kinesis.BatchSize < 0 || c.Sink.Kinesis.BatchSize > 500 {
			err = errors.Join(err, fmt.Errorf("sink.kinesis.batchSize must be between 0 and 500, got %d", c.Sink.Kinesis.BatchSize))
		}
	default:
		err = errors.Join(err, fmt.Errorf("unknown sink type %q (want stdio or kinesis)", c.Sink.Type))
	}

	return err
}

// TokenizerParams converts the tokenizer section. Call Validate first.
func (c *Config) TokenizerParams() tokenizer.Params {
	mode, _ := tokenizer.ParseMode(c.Tokenizer.Mode)
	return tokenizer.Params{
		Mode:          mode,
		PoolCapacity:  c.Tokenizer.PoolCapacity,
		SlotBudget:    c.Tokenizer.SlotBudget,
		MaxRecordSize: c.Tokenizer.MaxRecordSize,
		Features: tokenizer.Features{
			KeyValue:       c.Tokenizer.KeyValue,
			CategoryMarker: c.Tokenizer.CategoryMarker,
		},
		MaxKVPairs: c.Tokenizer.MaxKVPairs,
	}
}

// IngestParams converts the ingest section. Call Validate first.
func (c *Config) IngestParams() ingest.Params {
	policy, _ := ingest.ParsePolicy(c.Ingest.Policy)
	return ingest.Params{
		Policy:          policy,
		MaxPendingBytes: c.Ingest.MaxPendingBytes,
	}
}

// LookupEncoding finds a charset by IANA name. UTF-8 and the empty name need
// no decoding and return nil.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
