/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reconcile keeps the structured store and the markdown mirror files of
// every project in agreement. Two writers exist: AI output arriving as markdown
// (parsed, then stored) and structured edits (stored, then serialized). In both
// cases the store is the source of truth and the mirror file is regenerated as
// a whole, never diffed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

// ErrProjectFolderMissing is returned when an import names a folder that does not exist.
var ErrProjectFolderMissing = errors.New("project folder does not exist")

// DefaultKeepSnapshots is how many raw-markdown snapshots are kept per document.
const DefaultKeepSnapshots = 20

// Service ties a store to the projects root holding the "*项目" folders.
type Service struct {
	store *storage.Store
	root  string
	log   *slog.Logger

	// KeepSnapshots bounds the snapshot history per document; <= 0 keeps everything.
	KeepSnapshots int
}

// New returns a Service writing project folders under projectsRoot.
func New(store *storage.Store, projectsRoot string) *Service {
	return &Service{
		store:         store,
		root:          projectsRoot,
		log:           applog.WithComponent("reconcile"),
		KeepSnapshots: DefaultKeepSnapshots,
	}
}

// Store exposes the underlying store for read-only callers such as the CLI.
func (s *Service) Store() *storage.Store { return s.store }

// Root is the projects root directory.
func (s *Service) Root() string { return s.root }

// Folder returns the mirror folder of p.
func (s *Service) Folder(p domain.Project) storage.Folder {
	return storage.NewFolder(s.root, p.FolderName)
}

func (s *Service) op(name string, projectID int64) *slog.Logger {
	return applog.WithProject(applog.WithOperation(s.log, name), projectID, "")
}

// CreateProject inserts a draft project, creates its folder with the asset
// subfolder and project.json, and seeds the pipeline stages.
func (s *Service) CreateProject(ctx context.Context, name string, dialect markdown.Dialect) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, errors.New("project name is required")
	}
	p := domain.NewProject(name, dialect)
	if err := s.store.CreateProject(ctx, &p); err != nil {
		return domain.Project{}, err
	}
	l := s.op("create_project", p.ID)

	f := s.Folder(p)
	err := f.Ensure()
	if err == nil {
		err = storage.WriteManifest(ctx, f, storage.NewManifest(p.Name, p.Format))
	}
	if err == nil {
		err = s.store.InitStages(ctx, p.ID)
	}
	if err != nil {
		if derr := s.store.DeleteProject(ctx, p.ID); derr != nil {
			l.Warn("rollback of project row failed", slog.Any("err", derr))
		}
		return domain.Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	l.Info("project created", slog.String("folder", f.Root), slog.String("format", p.Format.String()))
	return p, nil
}

// EpisodePrompt returns the stored video-generation prompt of one episode.
func (s *Service) EpisodePrompt(ctx context.Context, projectID int64, episodeNumber int) (string, error) {
	e, err := s.store.GetEpisode(ctx, projectID, episodeNumber)
	if err != nil {
		return "", err
	}
	return e.RawPrompt, nil
}

// snapshot records md and trims the history of its document.
func (s *Service) snapshot(ctx context.Context, projectID int64, kind storage.SnapshotKind, episodeNumber int, md string) error {
	if _, err := s.store.SaveSnapshot(ctx, projectID, kind, episodeNumber, md); err != nil {
		return err
	}
	if s.KeepSnapshots > 0 {
		if _, err := s.store.PruneSnapshots(ctx, projectID, s.KeepSnapshots); err != nil {
			return err
		}
	}
	return nil
}
