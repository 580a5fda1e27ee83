/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

// SyncScriptFile regenerates <name>_剧本.md from the store and returns its path.
// The parameter table is rebuilt from the project columns.
func (s *Service) SyncScriptFile(ctx context.Context, projectID int64) (string, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return s.syncScript(ctx, p)
}

func (s *Service) syncScript(ctx context.Context, p domain.Project) (string, error) {
	sc, eps, err := s.store.GetScript(ctx, p.ID)
	if err != nil {
		return "", err
	}
	md := markdown.SerializeScript(domain.ScriptDocument(p, sc, eps))
	path, err := s.Folder(p).WriteFile(ctx, storage.ScriptFileName(p.Name), []byte(md))
	if err != nil {
		return "", fmt.Errorf("sync script file: %w", err)
	}
	if err := s.store.SetScriptMirror(ctx, p.ID, md, path); err != nil {
		return "", err
	}
	return path, nil
}

// SyncAssetListFile regenerates <name>_素材清单.md in the project's dialect.
// A project without assets has no asset list; "" is returned and nothing is written.
func (s *Service) SyncAssetListFile(ctx context.Context, projectID int64) (string, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return s.syncAssetList(ctx, p)
}

func (s *Service) syncAssetList(ctx context.Context, p domain.Project) (string, error) {
	assets, err := s.store.ListAssets(ctx, p.ID)
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return "", nil
	}
	md := markdown.SerializeAssetList(domain.AssetListDocument(p, assets), p.Format)
	path, err := s.Folder(p).WriteFile(ctx, storage.AssetListFileName(p.Name), []byte(md))
	if err != nil {
		return "", fmt.Errorf("sync asset list file: %w", err)
	}
	return path, nil
}

// SyncEpisodeFile regenerates <name>_E<NN>_分镜.md for one episode.
func (s *Service) SyncEpisodeFile(ctx context.Context, projectID int64, episodeNumber int) (string, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	e, err := s.store.GetEpisode(ctx, projectID, episodeNumber)
	if err != nil {
		return "", err
	}
	return s.syncEpisode(ctx, p, &e)
}

func (s *Service) syncEpisode(ctx context.Context, p domain.Project, e *domain.Episode) (string, error) {
	md := markdown.SerializeEpisode(e.Document(), p.Format)
	path, err := s.Folder(p).WriteFile(ctx, storage.EpisodeFileName(p.Name, e.EpisodeNumber), []byte(md))
	if err != nil {
		return "", fmt.Errorf("sync episode %d file: %w", e.EpisodeNumber, err)
	}
	if err := s.store.SetEpisodeMirror(ctx, e.ID, md, path); err != nil {
		return "", err
	}
	e.RawMarkdown, e.FilePath = md, path
	return path, nil
}

// SyncAll regenerates every mirror file of a project and returns the written paths.
// Documents the project does not have yet are skipped.
func (s *Service) SyncAll(ctx context.Context, projectID int64) ([]string, error) {
	l := s.op("sync_all", projectID)
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var written []string
	path, err := s.syncScript(ctx, p)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return written, err
	default:
		written = append(written, path)
	}

	path, err = s.syncAssetList(ctx, p)
	if err != nil {
		return written, err
	}
	if path != "" {
		written = append(written, path)
	}

	eps, err := s.store.ListEpisodes(ctx, p.ID)
	if err != nil {
		return written, err
	}
	for i := range eps {
		path, err := s.syncEpisode(ctx, p, &eps[i])
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	l.Info("project synced", slog.Int("files", len(written)))
	return written, nil
}
