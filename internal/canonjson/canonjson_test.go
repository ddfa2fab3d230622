package canonjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeysAtEveryDepth(t *testing.T) {
	in := map[string]interface{}{
		"b": 1,
		"a": map[string]interface{}{
			"z": 1,
			"y": 2,
		},
	}
	out, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":2,"z":1},"b":1}`, string(out))
}

func TestMarshalPreservesArrayOrder(t *testing.T) {
	in := map[string]interface{}{
		"items": []interface{}{3, 1, 2},
	}
	out, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[3,1,2]}`, string(out))
}

func TestMarshalIsIdempotent(t *testing.T) {
	in := map[string]interface{}{"b": 1, "a": []interface{}{1, 2}}
	once, err := Marshal(in)
	require.NoError(t, err)

	var decoded interface{}
	require.NoError(t, json.Unmarshal(once, &decoded))
	twice, err := MarshalRaw(decoded)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMarshalScalars(t *testing.T) {
	out, err := Marshal("hello")
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(out))

	out, err = Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}
