// Package config resolves process-wide settings once at startup. The
// resulting Config is treated as immutable and passed explicitly to the
// components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

const (
	xdgAppName = "roadmap"
	configName = "config"
	configType = "yaml"
	envPrefix  = "ROADMAP"

	BackendHTTP   = "http"
	BackendSheets = "sheets"
)

// DefaultLanes is used when no lanes are configured.
var DefaultLanes = []string{
	"Data / ETL",
	"Model / Analytics",
	"Platform / Infra",
	"Product / UX",
	"Ops / Enablement",
}

// Config holds every setting the application reads.
type Config struct {
	Dir  string
	File string

	Backend      string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	SaveAction   string

	Window   timeline.Window
	Lanes    []string
	Geometry timeline.Geometry

	SheetID    string
	SheetRange string

	AuthEnabled bool
	AuthScopes  []string

	CachePath  string
	DraftsPath string

	LogLevel  string
	ServeAddr string
}

// DefaultDir is ~/.config/roadmap.
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// configPath resolves the config file and its directory. An empty file means
// config.yaml in DefaultDir.
func configPath(file string) (path, dir string, err error) {
	if file != "" {
		if path, err = homedir.Expand(file); err != nil {
			return "", "", err
		}
		return path, filepath.Dir(path), nil
	}
	if dir, err = DefaultDir(); err != nil {
		return "", "", err
	}
	return filepath.Join(dir, configName+"."+configType), dir, nil
}

func newViper(file string) (*viper.Viper, string, error) {
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, dir, err := configPath(file)
	if err != nil {
		return nil, "", err
	}
	if file != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(dir)
	}

	v.SetDefault("backend", BackendHTTP)
	v.SetDefault("base_url", "")
	v.SetDefault("poll_ms", 15000)
	v.SetDefault("timeout_ms", 30000)
	v.SetDefault("save_action", "saveticks")
	v.SetDefault("window.start", "2025-11-17")
	v.SetDefault("window.weeks", 26)
	v.SetDefault("timezone", "")
	v.SetDefault("lanes", DefaultLanes)
	v.SetDefault("geometry.row_height", timeline.DefaultGeometry.RowHeight)
	v.SetDefault("geometry.min_height", timeline.DefaultGeometry.MinHeight)
	v.SetDefault("geometry.padding", timeline.DefaultGeometry.Padding)
	v.SetDefault("sheet.id", "")
	v.SetDefault("sheet.range", "Tasks")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.scopes", []string{})
	v.SetDefault("cache.path", filepath.Join(dir, "snapshot.db"))
	v.SetDefault("drafts.path", filepath.Join(dir, "drafts"))
	v.SetDefault("log.level", "info")
	v.SetDefault("serve.addr", "127.0.0.1:8080")
	return v, dir, nil
}

// Load reads the config file (file, or config.yaml in DefaultDir when file is
// empty) and the ROADMAP_* environment. A missing file yields defaults.
func Load(file string) (*Config, error) {
	v, dir, err := newViper(file)
	if err != nil {
		return nil, fmt.Errorf("could not find path to configuration file: %w", err)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asNotFound(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Dir:          dir,
		File:         v.ConfigFileUsed(),
		Backend:      strings.ToLower(v.GetString("backend")),
		BaseURL:      strings.TrimSpace(v.GetString("base_url")),
		PollInterval: time.Duration(v.GetInt64("poll_ms")) * time.Millisecond,
		Timeout:      time.Duration(v.GetInt64("timeout_ms")) * time.Millisecond,
		SaveAction:   v.GetString("save_action"),
		Lanes:        listValue(v, "lanes"),
		Geometry: timeline.Geometry{
			RowHeight: v.GetInt("geometry.row_height"),
			MinHeight: v.GetInt("geometry.min_height"),
			Padding:   v.GetInt("geometry.padding"),
		},
		SheetID:     v.GetString("sheet.id"),
		SheetRange:  v.GetString("sheet.range"),
		AuthEnabled: v.GetBool("auth.enabled"),
		AuthScopes:  listValue(v, "auth.scopes"),
		LogLevel:    v.GetString("log.level"),
		ServeAddr:   v.GetString("serve.addr"),
	}

	if cfg.CachePath, err = homedir.Expand(v.GetString("cache.path")); err != nil {
		return nil, fmt.Errorf("cache.path: %w", err)
	}
	if cfg.DraftsPath, err = homedir.Expand(v.GetString("drafts.path")); err != nil {
		return nil, fmt.Errorf("drafts.path: %w", err)
	}

	loc := time.Local
	if tz := v.GetString("timezone"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
	}
	start, err := model.ParseDate(v.GetString("window.start"))
	if err != nil || start.IsZero() {
		return nil, fmt.Errorf("window.start: invalid date %q", v.GetString("window.start"))
	}
	cfg.Window = timeline.Window{Start: start.Civil(loc), Weeks: v.GetInt("window.weeks"), Location: loc}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// listValue reads a list key. A plain string, as set through the environment,
// is split on commas.
func listValue(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice(key)
}

func splitList(value string) []string {
	list := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if errors.As(err, target) {
		return true
	}
	// An explicit config file that does not exist surfaces as a path error.
	return errors.Is(err, fs.ErrNotExist)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendHTTP, BackendSheets:
	default:
		return fmt.Errorf("backend: unknown backend %q (want %s or %s)", c.Backend, BackendHTTP, BackendSheets)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_ms: must be positive, got %s", c.PollInterval)
	}
	if c.Window.Weeks <= 0 {
		return fmt.Errorf("window.weeks: must be positive, got %d", c.Window.Weeks)
	}
	if c.Geometry.RowHeight <= 0 {
		return fmt.Errorf("geometry.row_height: must be positive, got %d", c.Geometry.RowHeight)
	}
	return nil
}

// Set writes a single key to the config file, creating it when needed. Only
// keys already in the file and the new one are written; defaults and the
// environment are left out. "lanes" and "auth.scopes" take a comma-separated
// list.
func Set(file, key, value string) (string, error) {
	path, _, err := configPath(file)
	if err != nil {
		return "", err
	}
	v := viper.New()
	v.SetConfigType(configType)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asNotFound(err, &notFound) {
			return "", fmt.Errorf("reading config: %w", err)
		}
	}

	switch key {
	case "lanes", "auth.scopes":
		v.Set(key, splitList(value))
	default:
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
