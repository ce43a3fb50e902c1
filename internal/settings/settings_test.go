package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDefaultsWhenFileMissing(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.NoError(t, m.Load())

	s := m.Current()
	assert.Equal(t, "192.168.117.1", s.DeviceIP)
	assert.Equal(t, "", s.DisplayName)
	assert.Equal(t, "Binjai,id", s.City)
}

func TestManagerLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device-ip: 10.0.0.5\ndisplay-name: Ayu\n"), 0o644))

	m := NewManager(path, nil)
	require.NoError(t, m.Load())

	s := m.Current()
	assert.Equal(t, "10.0.0.5", s.DeviceIP)
	assert.Equal(t, "Ayu", s.DisplayName)
	// Unset keys fall back to defaults.
	assert.Equal(t, "Binjai,id", s.City)
}

func TestManagerSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	var seen []Settings
	m := NewManager(path, func(s Settings) { seen = append(seen, s) })
	require.NoError(t, m.Load())

	want := Settings{DeviceIP: "10.1.2.3", DisplayName: "Budi", City: "Medan,id"}
	require.NoError(t, m.Save(want))
	assert.Equal(t, want, m.Current())
	require.NotEmpty(t, seen)
	assert.Equal(t, want, seen[len(seen)-1])

	// A freshly constructed manager reads the persisted values back.
	again := NewManager(path, nil)
	require.NoError(t, again.Load())
	assert.Equal(t, want, again.Current())
}

func TestManagerWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device-ip: 10.0.0.1\n"), 0o644))

	m := NewManager(path, nil)
	require.NoError(t, m.Load())
	m.Watch()

	require.NoError(t, os.WriteFile(path, []byte("device-ip: 10.0.0.2\n"), 0o644))
	assert.Eventually(t, func() bool {
		return m.Current().DeviceIP == "10.0.0.2"
	}, 3*time.Second, 20*time.Millisecond)
}
