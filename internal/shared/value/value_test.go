package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNative(t *testing.T) {
	m := Map{
		"name":   String("Ada"),
		"age":    Int(36),
		"pro":    Bool(true),
		"topics": Strings("math", "engines"),
		"none":   {},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","age":36,"pro":true,"topics":["math","engines"],"none":null}`, string(data))

	var back Map
	require.NoError(t, json.Unmarshal(data, &back))
	for k, v := range m {
		assert.True(t, v.Equal(back[k]), "key %s: %v != %v", k, v, back[k])
	}
}

func TestFromAnyRejectsNested(t *testing.T) {
	_, err := FromAny(map[string]any{"a": 1})
	assert.Error(t, err)

	_, err = FromAny([]any{"a", 2.0})
	assert.Error(t, err)
}

func TestNumberRejectsNonFinite(t *testing.T) {
	assert.True(t, Number(math.NaN()).IsNull())
	assert.True(t, Number(math.Inf(1)).IsNull())
}

func TestCompareAndContains(t *testing.T) {
	cmp, ok := Int(3).Compare(String("10"))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	_, ok = Bool(true).Compare(Int(1))
	assert.False(t, ok)

	assert.True(t, Strings("a", "b").Contains(String("b")))
	assert.True(t, String("hello world").Contains(String("world")))
	assert.False(t, Int(1).Contains(Int(1)))
}

func TestScalarsOnly(t *testing.T) {
	assert.NoError(t, Map{"plan": String("free"), "age": Int(3)}.ScalarsOnly())
	assert.EqualError(t, Map{"tags": Strings("x")}.ScalarsOnly(),
		`property "tags" must be string, number or boolean, got list`)
}
