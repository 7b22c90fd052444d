package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct{ A int }

type sampleConf struct {
	A     int           `json:"a"`
	Every time.Duration `json:"every"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	require.NoError(t, reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, inst.A)
	assert.True(t, reg.Has("s"))
	assert.False(t, reg.Has("t"))
}

// Test duplicate registration, nil factories and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("z", nil))
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"b", "c", "a"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}

func TestDecode_WeakTypes(t *testing.T) {
	var c sampleConf
	require.NoError(t, Decode(map[string]any{"a": "7", "every": "30s"}, &c))
	assert.Equal(t, 7, c.A)
	assert.Equal(t, 30*time.Second, c.Every)
}
