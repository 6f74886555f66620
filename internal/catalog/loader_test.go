package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `model: luftwerk-300
name: LuftWerk 300
firmware: "1.4.2"
commands:
  - type: POWER
    description: on/off
  - type: FAN_SPEED
    description: fan speed 1-5
`

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "luftwerk-300.yaml"), []byte(sampleModel), 0o644))

	loader := NewLoader([]string{dir})

	model, err := loader.Load("luftwerk-300")
	require.NoError(t, err)
	assert.Equal(t, "LuftWerk 300", model.Name)
	assert.Equal(t, "1.4.2", model.Firmware)
	require.Len(t, model.Commands, 2)
	assert.Equal(t, "POWER", model.Commands[0].Type)

	// second load comes from cache
	again, err := loader.Load("luftwerk-300")
	require.NoError(t, err)
	assert.Same(t, model, again)
}

func TestLoaderUnknownModel(t *testing.T) {
	loader := NewLoader([]string{t.TempDir()})

	_, err := loader.Load("luftwerk-900")
	assert.Error(t, err)
}

func TestLoaderLoadAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "luftwerk-300.yaml"), []byte(sampleModel), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	loader := NewLoader([]string{dir})

	models, err := loader.LoadAll()
	require.NoError(t, err)
	assert.Len(t, models, 1)
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(":\n  - ["), 0o644))

	loader := NewLoader([]string{dir})

	_, err := loader.Load("broken")
	assert.Error(t, err)
}
