package jsontemplate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/config/jsontemplate"
)

func TestParams_SetOverridesEnvironment(t *testing.T) {
	t.Setenv(jsontemplate.EnvPrefix+"STREAM_ARN", "arn:from-env")
	params := jsontemplate.NewParams()

	value, ok := params.Get("STREAM_ARN")
	assert.True(t, ok)
	assert.Equal(t, "arn:from-env", value)

	params.Set("STREAM_ARN", "arn:from-flag")
	value, ok = params.Get("STREAM_ARN")
	assert.True(t, ok)
	assert.Equal(t, "arn:from-flag", value)

	_, ok = params.Get("UNSET")
	assert.False(t, ok)
}

func TestParseFlags(t *testing.T) {
	params, err := jsontemplate.ParseFlags([]string{"ADDR=:5140", "EMPTY=", "ADDR=:6000", "URL=http://h/?a=b"})
	require.NoError(t, err)

	value, _ := params.Get("ADDR")
	assert.Equal(t, ":6000", value, "later values win")
	value, ok := params.Get("EMPTY")
	assert.True(t, ok)
	assert.Equal(t, "", value)
	value, _ = params.Get("URL")
	assert.Equal(t, "http://h/?a=b", value, "only the first = separates the name")

	for _, bad := range []string{"novalue", "=value"} {
		_, err := jsontemplate.ParseFlags([]string{bad})
		assert.ErrorContains(t, err, "want NAME=VALUE", bad)
	}
}
