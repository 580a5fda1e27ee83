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
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

const assetColumns = `id, project_id, code, type, name, prompt, description, image_path, used_in_episodes`

// language=SQL
// dialect=SQLite
const insertAssetSQL = `INSERT INTO assets (project_id, code, type, name, prompt, description, image_path, used_in_episodes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// ListAssets returns the assets of a project in insertion order.
func (s *Store) ListAssets(ctx context.Context, projectID int64) ([]domain.Asset, error) {
	rows, err := s.query(ctx, `SELECT `+assetColumns+` FROM assets WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAsset loads one asset by id.
func (s *Store) GetAsset(ctx context.Context, id int64) (domain.Asset, error) {
	a, err := scanAsset(s.queryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=?`, id))
	if err != nil {
		return domain.Asset{}, notFound(err, fmt.Sprintf("asset %d", id))
	}
	return a, nil
}

// ReplaceAssets deletes every asset of projectID and inserts assets, in one transaction.
// Codes are normalized and types re-derived before writing. When project is
// non-nil its columns are written in the same transaction.
func (s *Store) ReplaceAssets(ctx context.Context, projectID int64, assets []domain.Asset, project *domain.Project) error {
	return s.inTx(ctx, func(c conn) error {
		if project != nil {
			if err := updateProject(ctx, c, project); err != nil {
				return err
			}
		} else if err := touchProject(ctx, c, projectID); err != nil {
			return err
		}
		if _, err := c.exec(ctx, `DELETE FROM assets WHERE project_id=?`, projectID); err != nil {
			return fmt.Errorf("clear assets: %w", err)
		}
		for i := range assets {
			a := &assets[i]
			a.ProjectID = projectID
			a.Normalize()
			id, err := insertAsset(ctx, c, *a)
			if err != nil {
				return err
			}
			a.ID = id
		}
		return nil
	})
}

func insertAsset(ctx context.Context, c conn, a domain.Asset) (int64, error) {
	used, err := encodeJSON(a.UsedInEpisodes)
	if err != nil {
		return 0, err
	}
	id, err := c.insert(ctx, insertAssetSQL, a.ProjectID, a.Code, string(a.Type), a.Name, a.Prompt, a.Description, a.ImagePath, used)
	if err != nil {
		return 0, fmt.Errorf("insert asset %s: %w", a.Code, err)
	}
	return id, nil
}

// UpdateAsset overwrites one asset of a.ProjectID; the type is re-derived from the code.
// An id owned by another project is reported as ErrNotFound.
func (s *Store) UpdateAsset(ctx context.Context, a *domain.Asset) error {
	a.Normalize()
	used, err := encodeJSON(a.UsedInEpisodes)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE assets SET code=?, type=?, name=?, prompt=?, description=?, image_path=?, used_in_episodes=? WHERE id=? AND project_id=?`,
			a.Code, string(a.Type), a.Name, a.Prompt, a.Description, a.ImagePath, used, a.ID, a.ProjectID)
		if err != nil {
			return fmt.Errorf("update asset %d: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update asset %d: %w", a.ID, ErrNotFound)
		}
		return touchProject(ctx, c, a.ProjectID)
	})
}

// DeleteAsset removes one asset of a project.
func (s *Store) DeleteAsset(ctx context.Context, projectID, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM assets WHERE id=? AND project_id=?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete asset %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete asset %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanAsset(r scanner) (domain.Asset, error) {
	var (
		a         domain.Asset
		typ, used string
	)
	if err := r.Scan(&a.ID, &a.ProjectID, &a.Code, &typ, &a.Name, &a.Prompt, &a.Description, &a.ImagePath, &used); err != nil {
		return domain.Asset{}, err
	}
	a.Type = markdown.AssetType(typ)
	if err := decodeJSON(used, &a.UsedInEpisodes); err != nil {
		return domain.Asset{}, fmt.Errorf("decode used episodes: %w", err)
	}
	return a, nil
}
