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
	"fmt"
	"log/slog"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

// SaveGeneratedScript stores an AI-generated script: the parameter table is
// copied onto the project, the episode summaries replace the previous ones,
// the script file is rewritten and the script stage is completed.
func (s *Service) SaveGeneratedScript(ctx context.Context, projectID int64, md string) (domain.Script, error) {
	l := s.op("save_script", projectID)
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Script{}, err
	}
	doc := markdown.ParseScript(md)
	p.ApplyParams(doc.Parameters)

	sc := domain.Script{
		ProjectID:    p.ID,
		RawMarkdown:  md,
		EmotionalArc: doc.EmotionalArc,
		ColorPlan:    doc.ColorPlan,
	}
	eps := domain.ScriptEpisodesFrom(doc)
	if err := s.store.ReplaceScript(ctx, &sc, eps, &p); err != nil {
		return domain.Script{}, fmt.Errorf("save script: %w", err)
	}
	if err := s.snapshot(ctx, p.ID, storage.SnapshotScript, 0, md); err != nil {
		return domain.Script{}, fmt.Errorf("snapshot script: %w", err)
	}
	path, err := s.syncScript(ctx, p)
	if err != nil {
		return domain.Script{}, err
	}
	sc.FilePath = path
	if err := s.store.SetStage(ctx, p.ID, domain.StageScript, domain.StatusCompleted); err != nil {
		return domain.Script{}, err
	}
	l.Info("script saved", slog.Int("episodes", len(eps)), slog.String("file", path))
	return sc, nil
}

// SaveGeneratedAssets stores an AI-generated asset list. All asset rows of the
// project are replaced; a style prefix in the document becomes the project's.
func (s *Service) SaveGeneratedAssets(ctx context.Context, projectID int64, md string) ([]domain.Asset, error) {
	l := s.op("save_assets", projectID)
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// AI output may come back in either dialect; the project's only governs the mirror file.
	doc := markdown.ParseAssetList(md)
	assets := domain.AssetsFrom(doc)

	var project *domain.Project
	if doc.StylePrefix != "" {
		p.StylePrefix = doc.StylePrefix
		if p.Style == "" {
			p.Style = doc.StylePrefix
		}
		project = &p
	}
	if err := s.store.ReplaceAssets(ctx, p.ID, assets, project); err != nil {
		return nil, fmt.Errorf("save assets: %w", err)
	}
	if err := s.snapshot(ctx, p.ID, storage.SnapshotAssets, 0, md); err != nil {
		return nil, fmt.Errorf("snapshot assets: %w", err)
	}
	path, err := s.syncAssetList(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetStage(ctx, p.ID, domain.StageAssets, domain.StatusCompleted); err != nil {
		return nil, err
	}
	s.reindex(ctx, l, p.ID)
	l.Info("assets saved", slog.Int("assets", len(assets)), slog.String("file", path))
	return s.store.ListAssets(ctx, p.ID)
}

// SaveGeneratedEpisode stores an AI-generated storyboard under episodeNumber,
// whatever number the document itself carries.
func (s *Service) SaveGeneratedEpisode(ctx context.Context, projectID int64, episodeNumber int, md string) (domain.Episode, error) {
	l := s.op("save_episode", projectID).With(slog.Int("episode", episodeNumber))
	if episodeNumber <= 0 {
		return domain.Episode{}, fmt.Errorf("invalid episode number %d", episodeNumber)
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Episode{}, err
	}
	doc := markdown.ParseEpisode(md)
	if len(doc.TimeSlots) == 0 {
		l.Debug("no time slots recognized")
	}
	e := domain.EpisodeFrom(doc, md)
	e.ProjectID = p.ID
	e.EpisodeNumber = episodeNumber
	if err := s.store.SaveEpisode(ctx, &e); err != nil {
		return domain.Episode{}, fmt.Errorf("save episode: %w", err)
	}
	if err := s.snapshot(ctx, p.ID, storage.SnapshotEpisode, episodeNumber, md); err != nil {
		return domain.Episode{}, fmt.Errorf("snapshot episode: %w", err)
	}
	path, err := s.syncEpisode(ctx, p, &e)
	if err != nil {
		return domain.Episode{}, err
	}
	if err := s.store.SetStage(ctx, p.ID, domain.StageStoryboard, domain.StatusInProgress); err != nil {
		return domain.Episode{}, err
	}
	s.reindex(ctx, l, p.ID)
	l.Info("episode saved", slog.Int("time_slots", len(e.TimeSlots)), slog.Int("asset_slots", len(e.AssetSlots)), slog.String("file", path))
	return e, nil
}

// UpdateScriptEpisode writes an edited episode summary and rewrites the script file.
func (s *Service) UpdateScriptEpisode(ctx context.Context, projectID int64, ep domain.ScriptEpisode) error {
	if err := s.store.UpdateScriptEpisode(ctx, projectID, ep); err != nil {
		return err
	}
	_, err := s.SyncScriptFile(ctx, projectID)
	return err
}

// UpdateAsset writes an edited asset and rewrites the asset list.
func (s *Service) UpdateAsset(ctx context.Context, a *domain.Asset) error {
	if err := s.store.UpdateAsset(ctx, a); err != nil {
		return err
	}
	if _, err := s.SyncAssetListFile(ctx, a.ProjectID); err != nil {
		return err
	}
	s.reindex(ctx, s.op("update_asset", a.ProjectID), a.ProjectID)
	return nil
}

// DeleteAsset removes one asset and rewrites the asset list.
func (s *Service) DeleteAsset(ctx context.Context, projectID, assetID int64) error {
	if err := s.store.DeleteAsset(ctx, projectID, assetID); err != nil {
		return err
	}
	if _, err := s.SyncAssetListFile(ctx, projectID); err != nil {
		return err
	}
	s.reindex(ctx, s.op("delete_asset", projectID), projectID)
	return nil
}

// UpdateEpisode writes an edited episode. Camera tags and the raw prompt are
// recomputed from the slots before the row and the mirror file are written.
func (s *Service) UpdateEpisode(ctx context.Context, e *domain.Episode) error {
	p, err := s.store.GetProject(ctx, e.ProjectID)
	if err != nil {
		return err
	}
	e.RetagTimeSlots()
	// The exported prompt has to follow the edited slots.
	e.RawPrompt = markdown.ParseEpisodeAs(markdown.SerializeEpisode(e.Document(), p.Format), p.Format).RawPrompt
	if err := s.store.UpdateEpisode(ctx, e); err != nil {
		return err
	}
	if _, err := s.syncEpisode(ctx, p, e); err != nil {
		return err
	}
	s.reindex(ctx, s.op("update_episode", p.ID), p.ID)
	return nil
}

// reindex refreshes the search rows. A failure only degrades search, so it is logged.
func (s *Service) reindex(ctx context.Context, l *slog.Logger, projectID int64) {
	n, err := s.store.Reindex(ctx, projectID)
	if err != nil {
		l.Warn("reindex failed", slog.Any("err", err))
		return
	}
	l.Debug("reindexed", slog.Int64("rows", n))
}
