/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
)

// language=SQL
const upsertStageSQL = `INSERT INTO pipeline_stages (project_id, stage, status, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (project_id, stage) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`

// language=SQL
const seedStageSQL = `INSERT INTO pipeline_stages (project_id, stage, status, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (project_id, stage) DO NOTHING`

// SetStage upserts the status of one stage.
func (s *Store) SetStage(ctx context.Context, projectID int64, stage domain.Stage, status domain.StageStatus) error {
	if _, err := domain.ParseStage(string(stage)); err != nil {
		return err
	}
	if _, err := domain.ParseStageStatus(string(status)); err != nil {
		return err
	}
	if _, err := s.exec(ctx, upsertStageSQL, projectID, string(stage), string(status), now()); err != nil {
		return fmt.Errorf("set stage %s: %w", stage, err)
	}
	return nil
}

// InitStages creates a row for every stage that has none yet. Stages listed in
// done start completed, the rest pending. Existing rows are left untouched.
func (s *Store) InitStages(ctx context.Context, projectID int64, done ...domain.Stage) error {
	completed := make(map[domain.Stage]bool, len(done))
	for _, st := range done {
		completed[st] = true
	}
	return s.inTx(ctx, func(c conn) error {
		ts := now()
		for _, st := range domain.Stages {
			status := domain.StatusPending
			if completed[st] {
				status = domain.StatusCompleted
			}
			if _, err := c.exec(ctx, seedStageSQL, projectID, string(st), string(status), ts); err != nil {
				return fmt.Errorf("init stage %s: %w", st, err)
			}
		}
		return nil
	})
}

// ListStages returns the stored stages of a project in pipeline order.
func (s *Store) ListStages(ctx context.Context, projectID int64) ([]domain.PipelineStage, error) {
	rows, err := s.query(ctx, `SELECT id, project_id, stage, status, updated_at FROM pipeline_stages WHERE project_id=?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	byStage := map[domain.Stage]domain.PipelineStage{}
	for rows.Next() {
		var (
			ps                 domain.PipelineStage
			stage, status, upd string
		)
		if err := rows.Scan(&ps.ID, &ps.ProjectID, &stage, &status, &upd); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		ps.Stage = domain.Stage(stage)
		ps.Status = domain.StageStatus(status)
		ps.UpdatedAt = parseTS(upd)
		byStage[ps.Stage] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.PipelineStage, 0, len(byStage))
	for _, st := range domain.Stages {
		if ps, ok := byStage[st]; ok {
			out = append(out, ps)
		}
	}
	return out, nil
}
