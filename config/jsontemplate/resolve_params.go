package jsontemplate

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Resolve replaces all `{ "$param": "param_name" }` references in the JSON with
// values from params and returns new JSON data. Param values are always
// provided as strings and then converted to JSON types according to the field
// of target (a struct type) the reference stands in for.
func Resolve(data []byte, target reflect.Type, params *Params) ([]byte, error) {
	var jsonObj any
	if err := json.Unmarshal(data, &jsonObj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	processedObj, err := processNode(jsonObj, params, target, "")
	if err != nil {
		return nil, fmt.Errorf("parameter resolution failed: %w", err)
	}

	return json.Marshal(processedObj)
}

// processNode traverses the JSON structure alongside t, replacing parameter
// references.
func processNode(node any, params *Params, t reflect.Type, path string) (any, error) {
	t = deref(t)

	switch nodeValue := node.(type) {

	// JSON object
	case map[string]any:
		// Check if this is a $param reference node
		if paramName, isParam := nodeValue["$param"]; isParam && len(nodeValue) == 1 {
			paramNameStr, isNameString := paramName.(string)
			if !isNameString {
				return nil, fmt.Errorf("param name at %q must be a string", path)
			}

			paramValue, exists := params.Get(paramNameStr)
			if !exists {
				return nil, fmt.Errorf("missing parameter %q", paramNameStr)
			}

			if t == nil {
				return nil, fmt.Errorf("no config field at %q", path)
			}
			return toJSONType(paramValue, t, path)
		}

		// Regular object (no $param), process each field
		result := make(map[string]any, len(nodeValue))
		for k, v := range nodeValue {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}

			processed, err := processNode(v, params, childType(t, k), childPath)
			if err != nil {
				return nil, err
			}
			result[k] = processed
		}
		return result, nil

	// JSON array, process each item
	case []any:
		var elem reflect.Type
		if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
			elem = t.Elem()
		}
		result := make([]any, len(nodeValue))
		for i, item := range nodeValue {
			processed, err := processNode(item, params, elem, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			result[i] = processed
		}
		return result, nil

	// Primitive value, done
	default:
		return nodeValue, nil
	}
}

// childType finds the type stored under key in a struct or map type, matching
// struct fields the way encoding/json does. Unknown keys have a nil type.
func childType(t reflect.Type, key string) reflect.Type {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case reflect.Map:
		return t.Elem()
	case reflect.Struct:
		var folded reflect.Type
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			if name == key {
				return f.Type
			}
			if folded == nil && strings.EqualFold(name, key) {
				folded = f.Type
			}
		}
		return folded
	}
	return nil
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// toJSONType converts a string value to the JSON form of type t
func toJSONType(value string, t reflect.Type, path string) (any, error) {
	// Types with their own decoding take the raw string
	ptr := reflect.PointerTo(t)
	if ptr.Implements(jsonUnmarshalerType) || ptr.Implements(textUnmarshalerType) {
		return value, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(value, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(value, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(value, t.Bits())
	case reflect.Bool:
		return strconv.ParseBool(value)
	case reflect.String:
		return value, nil
	case reflect.Slice, reflect.Array:
		return nil, fmt.Errorf("cannot use $param for repeated (array) field %q", path)
	default:
		return nil, fmt.Errorf("unsupported field type %v at %q", t, path)
	}
}
