package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDefault(t *testing.T) *Classifier {
	t.Helper()
	return New("", zap.NewNop())
}

func TestIsTrackable_UnknownAppsDefaultTrackable(t *testing.T) {
	c := newDefault(t)

	assert.True(t, c.IsTrackable("some-brand-new-app"))
	assert.True(t, c.IsTrackable("chrome"))
}

func TestIsTrackable_BlacklistMatching(t *testing.T) {
	c := newDefault(t)

	tests := []struct {
		name      string
		trackable bool
	}{
		{"launchd", false},            // exact
		{"LAUNCHD", false},            // case-insensitive
		{"svchost.exe", false},        // suffix stripped
		{"com.apple.cfprefsd", false}, // prefix match
		{"kworker/0:1", false},        // prefix match
		{"chrome.exe", true},
		{"", false}, // empty name is never a trackable app
	}

	for _, tt := range tests {
		assert.Equal(t, tt.trackable, c.IsTrackable(tt.name), "name=%q", tt.name)
	}
}

func TestFriendlyName(t *testing.T) {
	c := newDefault(t)

	assert.Equal(t, "Google Chrome", c.FriendlyName("chrome.exe"))
	assert.Equal(t, "Dota 2", c.FriendlyName("Dota2"))
	// unknown names get a title-cased fallback
	assert.Equal(t, "Blender", c.FriendlyName("blender"))
}

func TestCategory_UnknownResolvesEmpty(t *testing.T) {
	c := newDefault(t)

	assert.Equal(t, "browsers", c.Category("Chrome.exe"))
	assert.Equal(t, "games", c.Category("steam"))
	assert.Equal(t, "", c.Category("blender"))
}

func TestIconClass_Resolution(t *testing.T) {
	c := newDefault(t)

	// direct app icon wins over category icon
	assert.Equal(t, "steam", c.IconClass("steam"))
	// app without its own icon falls back to category icon
	assert.Equal(t, "globe", c.IconClass("firefox"))
	// unknown app resolves to the default
	assert.Equal(t, DefaultIconClass, c.IconClass("blender"))
}

func TestReload_ExtendsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.yaml")
	cfg := `
blacklist:
  - helperd
categories:
  blender: creative
icons:
  creative: palette
friendly_names:
  blender: Blender 3D
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))

	c := New(path, zap.NewNop())

	assert.False(t, c.IsTrackable("helperd"))
	assert.Equal(t, "creative", c.Category("blender"))
	assert.Equal(t, "palette", c.IconClass("blender"))
	assert.Equal(t, "Blender 3D", c.FriendlyName("blender"))
	// defaults survive alongside the file entries
	assert.False(t, c.IsTrackable("launchd"))
}

func TestReload_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blacklist: [helperd]\n"), 0600))

	c := New(path, zap.NewNop())
	require.NoError(t, c.Reload())
	require.NoError(t, c.Reload())

	assert.False(t, c.IsTrackable("helperd"))
}

func TestReload_PicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blacklist: [helperd]\n"), 0600))

	c := New(path, zap.NewNop())
	require.False(t, c.IsTrackable("helperd"))

	require.NoError(t, os.WriteFile(path, []byte("blacklist: [otherd]\n"), 0600))
	require.NoError(t, c.Reload())

	assert.True(t, c.IsTrackable("helperd"), "dropped from the reloaded table")
	assert.False(t, c.IsTrackable("otherd"))
}

func TestReload_MissingFileErrorsButKeepsServing(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())

	assert.Error(t, c.Reload())
	// defaults still in effect
	assert.False(t, c.IsTrackable("launchd"))
	assert.True(t, c.IsTrackable("chrome"))
}
