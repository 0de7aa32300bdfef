// Package config loads and saves the admin tool's settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// DefaultFile is the settings file name looked up next to the database.
const DefaultFile = "settings.toml"

// EnvPrefix prefixes environment overrides, e.g. SQLITEADMIN_ROWS_PER_PAGE.
const EnvPrefix = "SQLITEADMIN"

// ErrInvalid is returned by Validate and by updates it rejects.
var ErrInvalid = errors.New("invalid settings")

// Settings holds user preferences and server options.
type Settings struct {
	DarkMode          bool   `mapstructure:"dark_mode" toml:"dark_mode" json:"darkMode"`
	ConfirmDelete     bool   `mapstructure:"confirm_delete" toml:"confirm_delete" json:"confirmDelete"`
	RowsPerPage       int    `mapstructure:"rows_per_page" toml:"rows_per_page" json:"rowsPerPage"`
	Listen            string `mapstructure:"listen" toml:"listen" json:"listen"`
	OpenBrowser       bool   `mapstructure:"open_browser" toml:"open_browser" json:"openBrowser"`
	StrictIdentifiers bool   `mapstructure:"strict_identifiers" toml:"strict_identifiers" json:"strictIdentifiers"`
	Log               Log    `mapstructure:"log" toml:"log" json:"log"`
}

// Log selects the logger level and output format.
type Log struct {
	Level  string `mapstructure:"level" toml:"level" json:"level"`
	Format string `mapstructure:"format" toml:"format" json:"format"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		DarkMode:      false,
		ConfirmDelete: true,
		RowsPerPage:   50,
		Listen:        "127.0.0.1:8080",
		OpenBrowser:   true,
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Validate rejects settings the server cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if s.RowsPerPage <= 0 {
		errs = append(errs, fmt.Errorf("rows_per_page must be positive, got %d", s.RowsPerPage))
	}
	if strings.TrimSpace(s.Listen) == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Load reads settings from path, applying defaults and SQLITEADMIN_* environment
// overrides. A missing file is not an error. An empty path skips the file.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil && !isMissing(err) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return s, nil
}

// Save writes s to path as TOML, replacing the previous file atomically.
func Save(path string, s Settings) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("dark_mode", d.DarkMode)
	v.SetDefault("confirm_delete", d.ConfirmDelete)
	v.SetDefault("rows_per_page", d.RowsPerPage)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("open_browser", d.OpenBrowser)
	v.SetDefault("strict_identifiers", d.StrictIdentifiers)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Store holds the live settings of a running server. Reads and updates are safe
// for concurrent use; updates are persisted before they become visible.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewStore returns a Store holding s. An empty path keeps updates in memory only.
func NewStore(path string, s Settings) *Store {
	return &Store{path: path, settings: s}
}

// Path returns the file updates are written to.
func (st *Store) Path() string {
	return st.path
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Update applies fn to a copy of the current settings, validates and saves the
// result, and only then makes it current.
func (st *Store) Update(fn func(*Settings)) (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return st.settings, err
	}
	if st.path != "" {
		if err := Save(st.path, next); err != nil {
			return st.settings, err
		}
	}
	st.settings = next
	return next, nil
}
