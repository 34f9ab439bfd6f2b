package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"reduction.dev/lineingest/config/jsontemplate"
)

// Unmarshal parses a configuration document after substituting
// `{"$param": "NAME"}` references from params. Unknown fields are rejected.
func Unmarshal(data []byte, params *jsontemplate.Params) (*Config, error) {
	if params == nil {
		params = jsontemplate.NewParams()
	}

	resolved, err := jsontemplate.Resolve(data, reflect.TypeFor[Config](), params)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve variables: %w", err)
	}

	var config Config
	dec := json.NewDecoder(bytes.NewReader(resolved))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("invalid config document format: %w", err)
	}

	slog.Debug("resolved config", "config", string(resolved))
	return &config, nil
}
