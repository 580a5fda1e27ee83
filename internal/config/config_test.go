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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func init() {
	// Keep tests away from the real OS keychain.
	keyring.MockInit()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, pw, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if pw != "" {
		t.Fatalf("unexpected password %q", pw)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Markdown.DefaultDialect != "inline" || cfg.Projects.Root != "." {
		t.Fatalf("defaults not applied: %#v", cfg)
	}
}

func TestLoadFrom_FileMergedOverDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "projects:\n  root: /srv/storyboards\ndatabase:\n  driver: Postgres\n  dsn: postgres://seed@db/seedance\nmarkdown:\n  default_dialect: quoted\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Projects.Root != "/srv/storyboards" || cfg.Database.Driver != "postgres" || cfg.Markdown.DefaultDialect != "quoted" {
		t.Fatalf("file values not merged: %#v", cfg)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.Path != filepath.Join("data", "seedance.db") || cfg.Logging.Level != "info" {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("projects: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFrom(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProjectsRoot, "/tmp/projects")
	t.Setenv(EnvDBDriver, "POSTGRES")
	t.Setenv(EnvDBDSN, "host=db user=seed")
	t.Setenv(EnvDefaultDialect, "quoted")
	t.Setenv(EnvPDFFont, "/fonts/NotoSansSC.ttf")
	cfg, _, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Projects.Root != "/tmp/projects" || cfg.Database.Driver != "postgres" || cfg.Database.DSN != "host=db user=seed" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if cfg.Markdown.DefaultDialect != "quoted" || cfg.Export.FontPath != "/fonts/NotoSansSC.ttf" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if env, ok := EnvOverrideFor("database.driver"); !ok || env != EnvDBDriver {
		t.Fatalf("EnvOverrideFor(database.driver) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file is not overridden")
	}
	if _, ok := EnvOverrideFor("no.such.key"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/var/log/seedance.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/var/log/seedance.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/seedance.log")
	cfg, _, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/seedance.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveKeepsPasswordInKeyring(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Database.Driver = "postgres"
	if err := Save(path, cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Fatalf("password leaked into the config file")
	}
	got, pw, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if got.Database.Driver != "postgres" || pw != "s3cret" {
		t.Fatalf("round trip mismatch: driver=%q pw=%q", got.Database.Driver, pw)
	}
	if err := ForgetPassword(); err != nil {
		t.Fatalf("ForgetPassword() error: %v", err)
	}
	if err := ForgetPassword(); err != nil {
		t.Fatalf("second ForgetPassword() error: %v", err)
	}
	if _, pw, _ := LoadFrom(path); pw != "" {
		t.Fatalf("password still present: %q", pw)
	}
}

func TestConfigPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigFile, "/etc/seedance.yaml")
	if p, err := ConfigPath(); err != nil || p != "/etc/seedance.yaml" {
		t.Fatalf("ConfigPath() = %q, %v", p, err)
	}
	t.Setenv(EnvConfigFile, "")
	p, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() error: %v", err)
	}
	if filepath.Base(p) != "config.yaml" {
		t.Fatalf("unexpected config path %q", p)
	}
}

func TestDSNWithPassword(t *testing.T) {
	cases := []struct {
		dsn, pw, want string
	}{
		{"postgres://seed@db:5432/seedance?sslmode=disable", "p@ss", "postgres://seed:p%40ss@db:5432/seedance?sslmode=disable"},
		{"postgres://seed:kept@db/seedance", "other", "postgres://seed:kept@db/seedance"},
		{"host=db user=seed", "it's", `host=db user=seed password='it\'s'`},
		{"host=db password=x", "y", "host=db password=x"},
		{"host=db", "", "host=db"},
	}
	for _, c := range cases {
		got, err := DatabaseConfig{DSN: c.dsn}.DSNWithPassword(c.pw)
		if err != nil {
			t.Fatalf("DSNWithPassword(%q): %v", c.dsn, err)
		}
		if got != c.want {
			t.Fatalf("DSNWithPassword(%q) = %q, want %q", c.dsn, got, c.want)
		}
	}
	if _, err := (DatabaseConfig{DSN: "postgres://db/seedance"}).DSNWithPassword("x"); err == nil {
		t.Fatalf("expected an error for a DSN without user")
	}
}
