package records

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Formatter encodes a record for a sink.
type Formatter interface {
	Format(r Record) ([]byte, error)
}

// RawFormatter writes the record content unchanged.
type RawFormatter struct{}

func (RawFormatter) Format(r Record) ([]byte, error) {
	return r.Data, nil
}

// JSONFormatter writes a JSON object with the raw record, its category and
// the extracted key-value fields.
type JSONFormatter struct{}

func (JSONFormatter) Format(r Record) ([]byte, error) {
	fields := make(map[string]any)
	for _, p := range r.Pairs() {
		if p.Key == "" {
			continue
		}
		if _, dup := fields[p.Key]; !dup {
			fields[p.Key] = p.Value
		}
	}

	doc := map[string]any{
		"raw":    string(r.Data),
		"fields": fields,
	}
	if c := r.Category(); c != "" {
		doc["category"] = c
	}
	if r.Source != "" {
		doc["source"] = r.Source
	}
	if r.Truncated {
		doc["truncated"] = true
	}

	s, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, fmt.Errorf("record to struct: %w", err)
	}
	return protojson.MarshalOptions{Multiline: false}.Marshal(s)
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "raw", "":
		return RawFormatter{}, nil
	case "json":
		return JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown record format %q (want raw or json)", name)
	}
}
