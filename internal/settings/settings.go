package settings

import (
	"errors"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/luxsync-io/luxsync/pkg/log"
)

// Settings are the user-editable preferences persisted between runs:
// the lamp controller's address, the greeting name on the dashboard and
// the weather city.
type Settings struct {
	DeviceIP    string `mapstructure:"device-ip" json:"device-ip"`
	DisplayName string `mapstructure:"display-name" json:"display-name"`
	City        string `mapstructure:"city" json:"city"`
}

// Manager loads, persists and hot-reloads Settings from one YAML file.
// A missing file is not an error; defaults apply until the first Save.
type Manager struct {
	path     string
	v        *viper.Viper
	onChange func(Settings)

	mu      sync.Mutex
	current Settings
}

func NewManager(path string, onChange func(Settings)) *Manager {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("device-ip", "192.168.117.1")
	v.SetDefault("display-name", "")
	v.SetDefault("city", "Binjai,id")

	return &Manager{path: path, v: v, onChange: onChange}
}

// Load reads the file and caches the result.
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return err
		}
	}
	return m.refresh()
}

// Watch hot-reloads the file on every change until the process exits.
// Call after Load.
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("settings file changed, reloading", "file", e.Name)
		if err := m.refresh(); err != nil {
			log.Warn("failed to reload settings", "error", err)
		}
	})
	m.v.WatchConfig()
}

// Current returns the cached settings.
func (m *Manager) Current() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Save persists s and makes it current.
func (m *Manager) Save(s Settings) error {
	m.v.Set("device-ip", s.DeviceIP)
	m.v.Set("display-name", s.DisplayName)
	m.v.Set("city", s.City)
	if err := m.v.WriteConfigAs(m.path); err != nil {
		return err
	}
	return m.refresh()
}

func (m *Manager) refresh() error {
	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		return err
	}

	m.mu.Lock()
	changed := s != m.current
	m.current = s
	m.mu.Unlock()

	if changed && m.onChange != nil {
		m.onChange(s)
	}
	return nil
}
