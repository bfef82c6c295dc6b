// Package pbu converts between plain JSON value trees and google.protobuf.Struct
package pbu

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"exchanges_gateway/internal/core"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"
)

// Plain round-trips v through JSON so structs, ordered params and
// pointers become map[string]any / []any / float64 / string / bool / nil.
func Plain(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return out, nil
}

// ToValue converts any JSON-serializable value into a structpb.Value
func ToValue(v any) (*structpb.Value, error) {
	plain, err := Plain(v)
	if err != nil {
		return nil, err
	}
	return structpb.NewValue(plain)
}

// ToStruct converts an object-shaped value into a structpb.Struct
func ToStruct(v any) (*structpb.Struct, error) {
	plain, err := Plain(v)
	if err != nil {
		return nil, err
	}
	obj, ok := plain.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not an object", plain)
	}
	return structpb.NewStruct(obj)
}

// ResultToStruct renders {status, ok, data} with data as a tagged value tree
func ResultToStruct(res *core.Result) (*structpb.Struct, error) {
	data, err := ToValue(res.Data)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewNumberValue(float64(res.Status)),
		"ok":     structpb.NewBoolValue(res.OK),
		"data":   data,
	}}, nil
}

// String reads a string field, accepting numbers and bools as text
func String(s *structpb.Struct, key, def string) string {
	v := field(s, key)
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		if k.StringValue != "" {
			return k.StringValue
		}
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return def
}

// Int reads an integer field from a number or numeric string
func Int(s *structpb.Struct, key string, def int) (int, error) {
	v := field(s, key)
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		if math.Abs(k.NumberValue) > math.MaxInt32 {
			return 0, fmt.Errorf("%s is out of range", key)
		}
		return int(k.NumberValue), nil
	case *structpb.Value_StringValue:
		if k.StringValue == "" {
			return def, nil
		}
		n, err := strconv.Atoi(k.StringValue)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	}
	return def, nil
}

// Strings reads a list of strings or a comma-separated string
func Strings(s *structpb.Struct, key string) []string {
	v := field(s, key)
	var out []string
	switch k := v.GetKind().(type) {
	case *structpb.Value_ListValue:
		for _, item := range k.ListValue.GetValues() {
			if str := strings.TrimSpace(item.GetStringValue()); str != "" {
				out = append(out, str)
			}
		}
	case *structpb.Value_StringValue:
		for _, part := range strings.Split(k.StringValue, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Body reads a request body field: strings are kept literally and
// objects are returned as map[string]any.
func Body(s *structpb.Struct, key string) any {
	v := field(s, key)
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		if k.StringValue == "" {
			return nil
		}
		return k.StringValue
	case *structpb.Value_StructValue:
		return k.StructValue.AsMap()
	}
	return nil
}

func field(s *structpb.Struct, key string) *structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()[key]
}
