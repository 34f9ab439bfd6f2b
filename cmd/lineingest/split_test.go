package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSplit(t *testing.T) {
	var out bytes.Buffer
	err := runSplit(context.Background(), splitParams{
		mode:          "bytes",
		policy:        "ring",
		maxRecordSize: 64,
		format:        "raw",
		in:            strings.NewReader("a=1,b=\"x\ny\"\r\nsecond\nlast"),
		out:           &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "a=1,b=\"x\ny\"\nsecond\nlast\n", out.String())
}

func TestRunSplit_InvalidFlags(t *testing.T) {
	for name, p := range map[string]splitParams{
		"mode":     {mode: "runes"},
		"policy":   {policy: "block"},
		"format":   {format: "xml"},
		"encoding": {encoding: "klingon"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, runSplit(context.Background(), p))
		})
	}
}
