/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type ProjectsConfig struct {
	Root string `yaml:"root"` // directory holding the *项目 folders
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string, without password
	// The postgres password is not stored on disk; it lives in the OS keychain.
}

type MarkdownConfig struct {
	DefaultDialect string `yaml:"default_dialect"` // "inline" | "quoted"
}

type ExportConfig struct {
	FontPath string `yaml:"font_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Projects      ProjectsConfig `yaml:"projects"`
	Database      DatabaseConfig `yaml:"database"`
	Markdown      MarkdownConfig `yaml:"markdown"`
	Export        ExportConfig   `yaml:"export"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Projects:      ProjectsConfig{Root: "."},
		Database:      DatabaseConfig{Driver: "sqlite", Path: filepath.Join("data", "seedance.db")},
		Markdown:      MarkdownConfig{DefaultDialect: "inline"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "SEEDANCE_CONFIG"
	EnvProjectsRoot   = "SEEDANCE_PROJECTS_ROOT"
	EnvDBDriver       = "SEEDANCE_DB_DRIVER"
	EnvDBPath         = "SEEDANCE_DB_PATH"
	EnvDBDSN          = "SEEDANCE_DB_DSN"
	EnvDefaultDialect = "SEEDANCE_DEFAULT_DIALECT"
	EnvPDFFont        = "SEEDANCE_PDF_FONT"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SEEDANCE_LOG_LEVEL"
	EnvLogFormat = "SEEDANCE_LOG_FORMAT"
	EnvLogSource = "SEEDANCE_LOG_SOURCE"
	EnvLogFile   = "SEEDANCE_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "Seedance"
	keyringPassword = "database_password"
)

// secretStore abstracts the keyring, so tests can swap it.
var secretStore SecretStore = osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. SEEDANCE_CONFIG wins.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Seedance")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Seedance")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "seedance")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "seedance")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file from ConfigPath.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path (if present), applies defaults, and merges
// environment overrides. The database password comes from the keyring and is
// returned separately. A missing file is not an error; a malformed one is.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	pw, _ := secretStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(path string, cfg AppConfig, password string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secretStore.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// ForgetPassword removes the stored database password.
func ForgetPassword() error {
	err := secretStore.Delete(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Projects.Root); v != "" {
		dst.Projects.Root = v
	}
	if v := strings.TrimSpace(src.Database.Driver); v != "" {
		dst.Database.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Database.Path); v != "" {
		dst.Database.Path = v
	}
	if v := strings.TrimSpace(src.Database.DSN); v != "" {
		dst.Database.DSN = v
	}
	if v := strings.TrimSpace(src.Markdown.DefaultDialect); v != "" {
		dst.Markdown.DefaultDialect = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Export.FontPath); v != "" {
		dst.Export.FontPath = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvProjectsRoot)); v != "" {
		cfg.Projects.Root = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBDriver)); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBDSN)); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultDialect)); v != "" {
		cfg.Markdown.DefaultDialect = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPDFFont)); v != "" {
		cfg.Export.FontPath = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"projects.root":            EnvProjectsRoot,
	"database.driver":          EnvDBDriver,
	"database.path":            EnvDBPath,
	"database.dsn":             EnvDBDSN,
	"markdown.default_dialect": EnvDefaultDialect,
	"export.font_path":         EnvPDFFont,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// DSNWithPassword returns the postgres DSN with password filled in. Both the
// URL form and the key=value form are handled; a DSN that already carries a
// password is returned unchanged.
func (d DatabaseConfig) DSNWithPassword(password string) (string, error) {
	dsn := strings.TrimSpace(d.DSN)
	if password == "" || dsn == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		if u.User == nil {
			return "", errors.New("dsn has no user to attach the password to")
		}
		if _, set := u.User.Password(); set {
			return dsn, nil
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String(), nil
	}
	for _, f := range strings.Fields(dsn) {
		if strings.HasPrefix(f, "password=") {
			return dsn, nil
		}
	}
	return dsn + " password='" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password) + "'", nil
}
