package pbu

import (
	"testing"

	"exchanges_gateway/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type record struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

func TestToValue(t *testing.T) {
	v, err := ToValue([]record{{Name: "BTC"}})
	require.NoError(t, err)

	list := v.GetListValue().GetValues()
	require.Len(t, list, 1)
	fields := list[0].GetStructValue().GetFields()
	assert.Equal(t, "BTC", fields["name"].GetStringValue())
	_, isNull := fields["price"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)

	text, err := ToValue("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", text.GetStringValue())

	null, err := ToValue(nil)
	require.NoError(t, err)
	assert.NotNil(t, null.GetKind())
}

func TestToStruct(t *testing.T) {
	s, err := ToStruct(core.NewParams("b", "2", "a", "1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, s.AsMap())

	_, err = ToStruct([]any{1})
	assert.Error(t, err)
}

func TestResultToStruct(t *testing.T) {
	s, err := ResultToStruct(&core.Result{Status: 200, OK: true, Data: map[string]any{"list": []any{"x"}}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"status": float64(200),
		"ok":     true,
		"data":   map[string]any{"list": []any{"x"}},
	}, s.AsMap())
}

func TestFieldReaders(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"symbol":     "btcusdt",
		"page":       float64(3),
		"size":       "20",
		"fraction":   1.5,
		"huge":       1e300,
		"list":       []any{"BTC", " ETH ", ""},
		"csv":        "BTC, ETH,,",
		"flag":       true,
		"emptyText":  "",
		"bodyObject": map[string]any{"a": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "btcusdt", String(s, "symbol", "def"))
	assert.Equal(t, "def", String(s, "missing", "def"))
	assert.Equal(t, "def", String(s, "emptyText", "def"))
	assert.Equal(t, "3", String(s, "page", ""))
	assert.Equal(t, "true", String(s, "flag", ""))

	n, err := Int(s, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = Int(s, "size", 1)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	n, err = Int(s, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = Int(s, "fraction", 0)
	assert.Error(t, err)
	_, err = Int(s, "huge", 0)
	assert.Error(t, err)
	_, err = Int(s, "symbol", 0)
	assert.Error(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, Strings(s, "list"))
	assert.Equal(t, []string{"BTC", "ETH"}, Strings(s, "csv"))
	assert.Nil(t, Strings(s, "missing"))

	assert.Equal(t, "btcusdt", Body(s, "symbol"))
	assert.Equal(t, map[string]any{"a": "1"}, Body(s, "bodyObject"))
	assert.Nil(t, Body(s, "emptyText"))
	assert.Nil(t, Body(nil, "x"))
}
