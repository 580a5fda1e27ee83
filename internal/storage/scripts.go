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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

// language=SQL
// dialect=SQLite
const insertScriptEpisodeSQL = `INSERT INTO script_episodes
	(script_id, episode_number, title, emotional_tone, key_plots, opening_frame, closing_frame)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

const scriptEpisodeColumns = `id, script_id, episode_number, title, emotional_tone, key_plots, opening_frame, closing_frame`

// GetScript returns the script of a project and its episode summaries ordered by number.
func (s *Store) GetScript(ctx context.Context, projectID int64) (domain.Script, []domain.ScriptEpisode, error) {
	sc, err := getScript(ctx, s.conn, projectID)
	if err != nil {
		return domain.Script{}, nil, err
	}
	rows, err := s.query(ctx, `SELECT `+scriptEpisodeColumns+` FROM script_episodes WHERE script_id=? ORDER BY episode_number, id`, sc.ID)
	if err != nil {
		return domain.Script{}, nil, fmt.Errorf("list script episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var eps []domain.ScriptEpisode
	for rows.Next() {
		ep, err := scanScriptEpisode(rows)
		if err != nil {
			return domain.Script{}, nil, fmt.Errorf("scan script episode: %w", err)
		}
		eps = append(eps, ep)
	}
	return sc, eps, rows.Err()
}

func getScript(ctx context.Context, c conn, projectID int64) (domain.Script, error) {
	var (
		sc        domain.Script
		colorPlan string
	)
	err := c.queryRow(ctx, `SELECT id, project_id, raw_markdown, file_path, emotional_arc, color_plan FROM scripts WHERE project_id=?`, projectID).
		Scan(&sc.ID, &sc.ProjectID, &sc.RawMarkdown, &sc.FilePath, &sc.EmotionalArc, &colorPlan)
	if err != nil {
		return domain.Script{}, notFound(err, fmt.Sprintf("script of project %d", projectID))
	}
	if err := decodeJSON(colorPlan, &sc.ColorPlan); err != nil {
		return domain.Script{}, fmt.Errorf("decode color plan: %w", err)
	}
	return sc, nil
}

// ReplaceScript finds or creates the script row of sc.ProjectID, overwrites its
// columns and replaces all episode summaries, in one transaction.
// When project is non-nil its columns are written in the same transaction.
func (s *Store) ReplaceScript(ctx context.Context, sc *domain.Script, eps []domain.ScriptEpisode, project *domain.Project) error {
	return s.inTx(ctx, func(c conn) error {
		if project != nil {
			if err := updateProject(ctx, c, project); err != nil {
				return err
			}
		} else if err := touchProject(ctx, c, sc.ProjectID); err != nil {
			return err
		}

		colorPlan, err := encodeJSON(sc.ColorPlan)
		if err != nil {
			return err
		}
		ts := now()
		cur, err := getScript(ctx, c, sc.ProjectID)
		switch {
		case errors.Is(err, ErrNotFound):
			id, err := c.insert(ctx, `INSERT INTO scripts (project_id, raw_markdown, file_path, emotional_arc, color_plan, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, sc.ProjectID, sc.RawMarkdown, sc.FilePath, sc.EmotionalArc, colorPlan, ts, ts)
			if err != nil {
				return fmt.Errorf("insert script: %w", err)
			}
			sc.ID = id
		case err != nil:
			return err
		default:
			sc.ID = cur.ID
			if _, err := c.exec(ctx, `UPDATE scripts SET raw_markdown=?, file_path=?, emotional_arc=?, color_plan=?, updated_at=? WHERE id=?`,
				sc.RawMarkdown, sc.FilePath, sc.EmotionalArc, colorPlan, ts, sc.ID); err != nil {
				return fmt.Errorf("update script: %w", err)
			}
			if _, err := c.exec(ctx, `DELETE FROM script_episodes WHERE script_id=?`, sc.ID); err != nil {
				return fmt.Errorf("clear script episodes: %w", err)
			}
		}

		for i := range eps {
			ep := &eps[i]
			plots, err := encodeJSON(ep.KeyPlots)
			if err != nil {
				return err
			}
			id, err := c.insert(ctx, insertScriptEpisodeSQL, sc.ID, ep.EpisodeNumber, ep.Title, ep.EmotionalTone, plots, ep.OpeningFrame, ep.ClosingFrame)
			if err != nil {
				return fmt.Errorf("insert script episode %d: %w", ep.EpisodeNumber, err)
			}
			ep.ID = id
			ep.ScriptID = sc.ID
		}
		return nil
	})
}

// UpdateScriptEpisode overwrites one episode summary of the project's script.
func (s *Store) UpdateScriptEpisode(ctx context.Context, projectID int64, ep domain.ScriptEpisode) error {
	plots, err := encodeJSON(ep.KeyPlots)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE script_episodes SET episode_number=?, title=?, emotional_tone=?, key_plots=?, opening_frame=?, closing_frame=?
			WHERE id=? AND script_id IN (SELECT id FROM scripts WHERE project_id=?)`,
			ep.EpisodeNumber, ep.Title, ep.EmotionalTone, plots, ep.OpeningFrame, ep.ClosingFrame, ep.ID, projectID)
		if err != nil {
			return fmt.Errorf("update script episode %d: %w", ep.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update script episode %d: %w", ep.ID, ErrNotFound)
		}
		if _, err := c.exec(ctx, `UPDATE scripts SET updated_at=? WHERE id=(SELECT script_id FROM script_episodes WHERE id=?)`, now(), ep.ID); err != nil {
			return fmt.Errorf("touch script: %w", err)
		}
		return nil
	})
}

// GetScriptEpisode loads one episode summary by id.
func (s *Store) GetScriptEpisode(ctx context.Context, id int64) (domain.ScriptEpisode, error) {
	row := s.queryRow(ctx, `SELECT `+scriptEpisodeColumns+` FROM script_episodes WHERE id=?`, id)
	ep, err := scanScriptEpisode(row)
	if err != nil {
		return domain.ScriptEpisode{}, notFound(err, fmt.Sprintf("script episode %d", id))
	}
	return ep, nil
}

// SetScriptMirror records the markdown last written to the script file.
func (s *Store) SetScriptMirror(ctx context.Context, projectID int64, raw, filePath string) error {
	res, err := s.exec(ctx, `UPDATE scripts SET raw_markdown=?, file_path=?, updated_at=? WHERE project_id=?`, raw, filePath, now(), projectID)
	if err != nil {
		return fmt.Errorf("update script mirror: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("script of project %d: %w", projectID, ErrNotFound)
	}
	return nil
}

func scanScriptEpisode(r scanner) (domain.ScriptEpisode, error) {
	var (
		ep    domain.ScriptEpisode
		plots string
	)
	if err := r.Scan(&ep.ID, &ep.ScriptID, &ep.EpisodeNumber, &ep.Title, &ep.EmotionalTone, &plots, &ep.OpeningFrame, &ep.ClosingFrame); err != nil {
		return domain.ScriptEpisode{}, err
	}
	if err := decodeJSON(plots, &ep.KeyPlots); err != nil {
		return domain.ScriptEpisode{}, fmt.Errorf("decode key plots: %w", err)
	}
	return ep, nil
}

// encodeJSON stores list columns as JSON text; nil encodes as "[]".
func encodeJSON(v any) (string, error) {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return "[]", nil
		}
	case []markdown.ColorPlanRow:
		if t == nil {
			return "[]", nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
