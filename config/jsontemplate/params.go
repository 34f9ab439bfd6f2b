package jsontemplate

import (
	"fmt"
	"os"
	"strings"
)

// EnvPrefix is prepended to a param name to find its environment variable.
const EnvPrefix = "LINEINGEST_PARAM_"

// Params are values for `{"$param": "NAME"}` references in a config document.
// Names not set explicitly are looked up in the environment with EnvPrefix.
type Params struct {
	params map[string]string
}

func NewParams() *Params {
	return &Params{
		params: make(map[string]string),
	}
}

func (pl *Params) Set(key, value string) {
	pl.params[key] = value
}

// ParseFlags builds Params from NAME=VALUE command line values. Later values
// for the same name win.
func ParseFlags(flags []string) (*Params, error) {
	pl := NewParams()
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, want NAME=VALUE", f)
		}
		pl.Set(key, value)
	}
	return pl, nil
}

// Get retrieves key's value from the params map, falling back to an
// environment variable.
func (pl *Params) Get(key string) (string, bool) {
	value, exists := pl.params[key]
	if exists {
		return value, true
	}

	value = os.Getenv(EnvPrefix + key)
	if value != "" {
		return value, true
	}

	return "", false
}
