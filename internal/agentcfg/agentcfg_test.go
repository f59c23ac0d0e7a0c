package agentcfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Defaults().BackendURL, cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.PollingInterval)
	assert.Equal(t, 30*time.Second, cfg.ReportingInterval)
	assert.False(t, cfg.Paired())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := Config{
		BackendURL:        "https://family.example.com",
		DeviceID:          "dev-42",
		APIKey:            "key-42",
		PollingInterval:   2 * time.Second,
		ReportingInterval: time.Minute,
		ClassifierConfig:  "/etc/screentime/classifier.yaml",
	}
	require.NoError(t, Save(dir, want))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Paired())
}

func TestSave_Overwrite(t *testing.T) {
	dir := t.TempDir()

	first := Defaults()
	first.DeviceID = "dev-1"
	first.APIKey = "key-1"
	require.NoError(t, Save(dir, first))

	// re-pairing rotates the key
	second := first
	second.APIKey = "key-2"
	require.NoError(t, Save(dir, second))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "key-2", got.APIKey)
	assert.Equal(t, "dev-1", got.DeviceID)
}
