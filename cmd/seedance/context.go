/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/config"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

type commandContext struct {
	configFlag  *string
	crashFolder *storage.Folder

	configOnce sync.Once
	config     config.AppConfig
	password   string
	configErr  error
}

func newCommandContext(configFlag *string, crashFolder *storage.Folder) *commandContext {
	if crashFolder == nil {
		crashFolder = &storage.Folder{}
	}
	return &commandContext{
		configFlag:  configFlag,
		crashFolder: crashFolder,
	}
}

func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		var (
			cfg config.AppConfig
			pw  string
			err error
		)
		if path != "" {
			cfg, pw, err = config.LoadFrom(path)
		} else {
			cfg, pw, err = config.Load()
		}
		if err != nil {
			c.configErr = err
			return
		}
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
		c.config = cfg
		c.password = pw
	})
	return c.config, c.configErr
}

// defaultDialect is the dialect new projects get unless a flag says otherwise.
func (c *commandContext) defaultDialect() (markdown.Dialect, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return markdown.DialectAuto, err
	}
	d, err := markdown.ParseDialect(cfg.Markdown.DefaultDialect)
	if err != nil {
		return markdown.DialectAuto, fmt.Errorf("markdown.default_dialect: %w", err)
	}
	return d.Resolve(), nil
}

func (c *commandContext) storeOptions() (storage.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return storage.Options{}, err
	}
	drv, err := storage.ParseDriver(cfg.Database.Driver)
	if err != nil {
		return storage.Options{}, err
	}
	opts := storage.Options{Driver: drv, Path: cfg.Database.Path}
	if drv == storage.DriverPostgres {
		dsn, err := cfg.Database.DSNWithPassword(c.password)
		if err != nil {
			return storage.Options{}, err
		}
		opts.DSN = dsn
	}
	return opts, nil
}

// withService opens the store for the duration of fn.
func (c *commandContext) withService(cmd *cobra.Command, fn func(context.Context, *reconcile.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := c.storeOptions()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := storage.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(ctx, reconcile.New(st, cfg.Projects.Root))
}

// resolveProject accepts a numeric id, a folder name or a project name.
func (c *commandContext) resolveProject(ctx context.Context, svc *reconcile.Service, ref string) (domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Project{}, errors.New("project reference is required")
	}
	var (
		p   domain.Project
		err error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		p, err = svc.Store().GetProject(ctx, id)
	} else {
		p, err = svc.Store().GetProjectByFolder(ctx, filepath.Base(ref))
		if errors.Is(err, storage.ErrNotFound) {
			p, err = svc.Store().GetProjectByFolder(ctx, domain.FolderNameFor(ref))
		}
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("project %q: %w", ref, err)
	}
	*c.crashFolder = svc.Folder(p)
	return p, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

var skipConfigAnnotation = map[string]string{"skipConfigLoad": "true"}

func dialectFlag(cmd *cobra.Command, name string) (markdown.Dialect, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return markdown.DialectAuto, err
	}
	d, err := markdown.ParseDialect(v)
	if err != nil {
		return markdown.DialectAuto, fmt.Errorf("--%s %q: %w", name, v, err)
	}
	return d, nil
}

func parseEpisodeList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err1 := strconv.Atoi(strings.TrimSpace(lo))
			b, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || a <= 0 || b < a {
				return nil, fmt.Errorf("invalid episode range %q", part)
			}
			for n := a; n <= b; n++ {
				out = append(out, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid episode number %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
