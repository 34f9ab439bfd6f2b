package jsontemplate_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reduction.dev/lineingest/config/jsontemplate"
)

type nestedObject struct {
	NestedInteger int  `json:"nestedInteger"`
	NestedBoolean bool `json:"nestedBoolean"`
}

type textDuration time.Duration

func (d *textDuration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	*d = textDuration(v)
	return err
}

type paramsTestMessage struct {
	IntegerField int               `json:"integerField"`
	Boolean      bool              `json:"boolean"`
	String       string            `json:"string"`
	Ratio        float64           `json:"ratio"`
	StringArray  []string          `json:"stringArray"`
	Object       *nestedObject     `json:"object"`
	Objects      []nestedObject    `json:"objects"`
	Labels       map[string]string `json:"labels"`
	Timeout      textDuration      `json:"timeout"`
	Untagged     int
}

var messageType = reflect.TypeFor[paramsTestMessage]()

func resolve(t *testing.T, doc string, values map[string]string) map[string]any {
	params := jsontemplate.NewParams()
	for k, v := range values {
		params.Set(k, v)
	}
	result, err := jsontemplate.Resolve([]byte(doc), messageType, params)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(result, &parsed))
	return parsed
}

func TestResolveIntegerParameter(t *testing.T) {
	parsed := resolve(t, `{
		"integerField": { "$param": "INTEGER_PARAM" }
	}`, map[string]string{"INTEGER_PARAM": "5"})

	// JSON numbers are parsed as float64 by the json package
	assert.Equal(t, float64(5), parsed["integerField"], "integer parameter should be converted to a number")
}

func TestResolveScalarParameters(t *testing.T) {
	parsed := resolve(t, `{
		"boolean": { "$param": "BOOLEAN_PARAM" },
		"string": { "$param": "STRING_PARAM" },
		"ratio": { "$param": "RATIO_PARAM" },
		"untagged": { "$param": "UNTAGGED_PARAM" }
	}`, map[string]string{
		"BOOLEAN_PARAM":  "true",
		"STRING_PARAM":   "test-value",
		"RATIO_PARAM":    "0.5",
		"UNTAGGED_PARAM": "7",
	})

	assert.Equal(t, true, parsed["boolean"])
	assert.Equal(t, "test-value", parsed["string"])
	assert.Equal(t, 0.5, parsed["ratio"])
	assert.Equal(t, float64(7), parsed["untagged"], "untagged fields match case-insensitively")
}

func TestResolveNestedParameters(t *testing.T) {
	parsed := resolve(t, `{
		"object": {
			"nestedInteger": { "$param": "NESTED_INTEGER_PARAM" },
			"nestedBoolean": { "$param": "NESTED_BOOLEAN_PARAM" }
		},
		"objects": [{ "nestedInteger": { "$param": "NESTED_INTEGER_PARAM" } }],
		"labels": { "team": { "$param": "TEAM" } }
	}`, map[string]string{"NESTED_INTEGER_PARAM": "3", "NESTED_BOOLEAN_PARAM": "true", "TEAM": "infra"})

	nestedObject := parsed["object"].(map[string]any)
	assert.Equal(t, float64(3), nestedObject["nestedInteger"], "nested integer parameter should be converted to number")
	assert.Equal(t, true, nestedObject["nestedBoolean"], "nested boolean parameter should be converted to boolean")

	objects := parsed["objects"].([]any)
	assert.Equal(t, float64(3), objects[0].(map[string]any)["nestedInteger"])
	assert.Equal(t, "infra", parsed["labels"].(map[string]any)["team"])
}

func TestResolveTextUnmarshalerKeepsString(t *testing.T) {
	parsed := resolve(t, `{"timeout": { "$param": "TIMEOUT" }}`, map[string]string{"TIMEOUT": "250ms"})
	assert.Equal(t, "250ms", parsed["timeout"])
}

func TestResolveArrayParameter(t *testing.T) {
	params := jsontemplate.NewParams()
	params.Set("STRING_ARRAY_PARAM", "value1,value2,value3")
	_, err := jsontemplate.Resolve([]byte(`{"stringArray": { "$param": "STRING_ARRAY_PARAM" }}`), messageType, params)
	require.ErrorContains(t, err, "cannot use $param for repeated (array) field")
}

func TestResolveErrors(t *testing.T) {
	params := jsontemplate.NewParams()
	params.Set("NOT_A_NUMBER", "five")

	for name, doc := range map[string]string{
		"missing parameter":   `{"integerField": { "$param": "MISSING_PARAM" }}`,
		"invalid json":        `{ invalid json }`,
		"non-string name":     `{"integerField": { "$param": 123 }}`,
		"unknown field":       `{"nope": { "$param": "NOT_A_NUMBER" }}`,
		"unconvertible value": `{"integerField": { "$param": "NOT_A_NUMBER" }}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := jsontemplate.Resolve([]byte(doc), messageType, params)
			assert.Error(t, err)
		})
	}
}

func TestResolveMissingParameterNamesIt(t *testing.T) {
	_, err := jsontemplate.Resolve([]byte(`{"integerField": { "$param": "MISSING_PARAM" }}`), messageType, jsontemplate.NewParams())
	assert.ErrorContains(t, err, "MISSING_PARAM", "error message should mention the missing parameter")
}
