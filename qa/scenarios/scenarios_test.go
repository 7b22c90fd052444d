package scenarios

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestRequestDefaults(t *testing.T) {
	r := RequestDef{ID: 4, AtSec: 90, From: Point{1, 0}, To: Point{0, 1}, Persons: 3}.ToInput()
	assert.Equal(t, "u4", r.UserID)
	assert.Equal(t, 2, r.ExtraPassengers)
	assert.Equal(t, Start.Add(90*time.Second), r.RequestedStart)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("policy: greedy\n"), 0o644))
	_, err = Load(unnamed)
	assert.Error(t, err)
}
