package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	cfg "reduction.dev/lineingest/config"
	"reduction.dev/lineingest/config/jsontemplate"
	"reduction.dev/lineingest/ingest"
	"reduction.dev/lineingest/tokenizer"
)

const document = `{
	"listener": {
		"addr": { "$param": "ADDR" },
		"encoding": "ISO-8859-1",
		"idleFlush": "1500ms",
		"processBudget": { "$param": "BUDGET" }
	},
	"tokenizer": {
		"mode": "chars",
		"maxRecordSize": { "$param": "MAX_RECORD" },
		"keyValue": true,
		"categoryMarker": { "$param": "MARKER" }
	},
	"ingest": { "policy": "drop", "maxPendingBytes": 4096 },
	"sink": {
		"type": "kinesis",
		"format": "json",
		"kinesis": { "streamARN": "arn:aws:kinesis:us-east-2:123456789012:stream/logs" }
	}
}`

func TestUnmarshal(t *testing.T) {
	params := jsontemplate.NewParams()
	params.Set("ADDR", ":5140")
	params.Set("BUDGET", "2ms")
	params.Set("MAX_RECORD", "8192")
	params.Set("MARKER", "true")

	config, err := cfg.Unmarshal([]byte(document), params)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, ":5140", config.Listener.Addr)
	assert.Equal(t, cfg.Duration(1500*time.Millisecond), config.Listener.IdleFlush)
	assert.Equal(t, cfg.Duration(2*time.Millisecond), config.Listener.ProcessBudget)
	assert.Equal(t, "kinesis", config.Sink.Type)

	assert.Equal(t, tokenizer.Params{
		Mode:          tokenizer.Chars,
		MaxRecordSize: 8192,
		Features:      tokenizer.AllFeatures,
	}, config.TokenizerParams())
	assert.Equal(t, ingest.Params{Policy: ingest.Drop, MaxPendingBytes: 4096}, config.IngestParams())
}

func TestUnmarshal_ParamsFromEnvironment(t *testing.T) {
	t.Setenv(jsontemplate.EnvPrefix+"ADDR", "127.0.0.1:9000")

	config, err := cfg.Unmarshal([]byte(`{"listener": {"addr": {"$param": "ADDR"}}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", config.Listener.Addr)
}

func TestUnmarshal_RejectsUnknownFields(t *testing.T) {
	_, err := cfg.Unmarshal([]byte(`{"listener": {"adr": ":5140"}}`), nil)
	assert.ErrorContains(t, err, "invalid config document format")
}

func TestUnmarshal_MissingParam(t *testing.T) {
	_, err := cfg.Unmarshal([]byte(`{"listener": {"addr": {"$param": "NOPE"}}}`), nil)
	assert.ErrorContains(t, err, "NOPE")
}

func TestValidate_JoinsErrors(t *testing.T) {
	config := &cfg.Config{
		Listener:  cfg.ListenerConfig{Encoding: "no-such-charset"},
		Tokenizer: cfg.TokenizerConfig{Mode: "runes", MaxRecordSize: -1},
		Ingest:    cfg.IngestConfig{Policy: "block"},
		Sink:      cfg.SinkConfig{Type: "kinesis", Format: "xml"},
	}

	err := config.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"listener.addr is required",
		"no-such-charset",
		"tokenizer.maxRecordSize must not be negative",
		"unknown tokenizer mode",
		"unknown overload policy",
		"unknown record format",
		"sink.kinesis.streamARN is required",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLookupEncoding(t *testing.T) {
	enc, err := cfg.LookupEncoding("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = cfg.LookupEncoding("UTF-8")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = cfg.LookupEncoding("ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, charmap.ISO8859_1, enc)

	_, err = cfg.LookupEncoding("klingon")
	assert.Error(t, err)
}
