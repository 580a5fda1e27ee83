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
	"database/sql"
	"fmt"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

const projectColumns = `id, name, folder_name, style, style_prefix, aspect_ratio, emotional_tone,
	episode_duration, total_episodes, status, markdown_format, created_at, updated_at`

// language=SQL
// dialect=SQLite
const insertProjectSQL = `INSERT INTO projects (name, folder_name, style, style_prefix, aspect_ratio, emotional_tone,
	episode_duration, total_episodes, status, markdown_format, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const updateProjectSQL = `UPDATE projects SET name=?, folder_name=?, style=?, style_prefix=?, aspect_ratio=?,
	emotional_tone=?, episode_duration=?, total_episodes=?, status=?, markdown_format=?, updated_at=?
	WHERE id=?`

// CreateProject inserts p and sets its ID and timestamps.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	ts := now()
	if p.Status == "" {
		p.Status = domain.ProjectDraft
	}
	if p.Format == markdown.DialectAuto {
		p.Format = markdown.DialectInline
	}
	id, err := s.insert(ctx, insertProjectSQL,
		p.Name, p.FolderName, p.Style, p.StylePrefix, p.AspectRatio, p.EmotionalTone,
		p.EpisodeDuration, p.TotalEpisodes, string(p.Status), string(p.Format), ts, ts)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	p.ID = id
	p.CreatedAt = parseTS(ts)
	p.UpdatedAt = p.CreatedAt
	return nil
}

// UpdateProject writes every column of p and bumps updated_at.
func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	return updateProject(ctx, s.conn, p)
}

func updateProject(ctx context.Context, c conn, p *domain.Project) error {
	ts := now()
	res, err := c.exec(ctx, updateProjectSQL,
		p.Name, p.FolderName, p.Style, p.StylePrefix, p.AspectRatio, p.EmotionalTone,
		p.EpisodeDuration, p.TotalEpisodes, string(p.Status), string(p.Format), ts, p.ID)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update project %d: %w", p.ID, ErrNotFound)
	}
	p.UpdatedAt = parseTS(ts)
	return nil
}

// touchProject bumps updated_at after a child document changed.
func touchProject(ctx context.Context, c conn, projectID int64) error {
	if _, err := c.exec(ctx, `UPDATE projects SET updated_at=? WHERE id=?`, now(), projectID); err != nil {
		return fmt.Errorf("touch project %d: %w", projectID, err)
	}
	return nil
}

// GetProject loads one project.
func (s *Store) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	row := s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, notFound(err, fmt.Sprintf("project %d", id))
	}
	return p, nil
}

// GetProjectByFolder looks a project up by its folder name.
func (s *Store) GetProjectByFolder(ctx context.Context, folder string) (domain.Project, error) {
	row := s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE folder_name=?`, folder)
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, notFound(err, fmt.Sprintf("project folder %q", folder))
	}
	return p, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and, through cascades, all of its rows.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete project %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(r scanner) (domain.Project, error) {
	var (
		p                  domain.Project
		status, format     string
		createdAt, updated string
	)
	err := r.Scan(&p.ID, &p.Name, &p.FolderName, &p.Style, &p.StylePrefix, &p.AspectRatio, &p.EmotionalTone,
		&p.EpisodeDuration, &p.TotalEpisodes, &status, &format, &createdAt, &updated)
	if err != nil {
		return domain.Project{}, err
	}
	p.Status = domain.ProjectStatus(status)
	if d, err := markdown.ParseDialect(format); err == nil && d != markdown.DialectAuto {
		p.Format = d
	} else {
		p.Format = markdown.DialectInline
	}
	p.CreatedAt = parseTS(createdAt)
	p.UpdatedAt = parseTS(updated)
	return p, nil
}

var _ scanner = (*sql.Row)(nil)
