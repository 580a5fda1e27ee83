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
	"errors"
	"fmt"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

const episodeColumns = `id, project_id, episode_number, title, raw_markdown, file_path, style_line,
	sound_design, reference_list, end_frame_description, raw_prompt`

// language=SQL
// dialect=SQLite
const insertEpisodeSQL = `INSERT INTO episodes (project_id, episode_number, title, raw_markdown, file_path, style_line,
	sound_design, reference_list, end_frame_description, raw_prompt, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const updateEpisodeSQL = `UPDATE episodes SET episode_number=?, title=?, raw_markdown=?, file_path=?, style_line=?,
	sound_design=?, reference_list=?, end_frame_description=?, raw_prompt=?, updated_at=?
	WHERE id=? AND project_id=?`

// GetEpisode loads one episode of a project by number, with its slots.
func (s *Store) GetEpisode(ctx context.Context, projectID int64, number int) (domain.Episode, error) {
	e, err := scanEpisode(s.queryRow(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE project_id=? AND episode_number=?`, projectID, number))
	if err != nil {
		return domain.Episode{}, notFound(err, fmt.Sprintf("episode %d of project %d", number, projectID))
	}
	if err := loadSlots(ctx, s.conn, &e); err != nil {
		return domain.Episode{}, err
	}
	return e, nil
}

// ListEpisodes returns all episodes of a project ordered by number, with their slots.
func (s *Store) ListEpisodes(ctx context.Context, projectID int64) ([]domain.Episode, error) {
	rows, err := s.query(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE project_id=? ORDER BY episode_number`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	var out []domain.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, e)
	}
	// Close before loading children: the SQLite pool has one connection.
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := loadSlots(ctx, s.conn, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveEpisode finds or creates the episode (ProjectID, EpisodeNumber), overwrites
// its columns and replaces its time and asset slots, in one transaction.
func (s *Store) SaveEpisode(ctx context.Context, e *domain.Episode) error {
	return s.inTx(ctx, func(c conn) error {
		if err := touchProject(ctx, c, e.ProjectID); err != nil {
			return err
		}
		ts := now()
		var id int64
		err := c.queryRow(ctx, `SELECT id FROM episodes WHERE project_id=? AND episode_number=?`, e.ProjectID, e.EpisodeNumber).Scan(&id)
		switch {
		case err == nil:
			e.ID = id
			if err := updateEpisode(ctx, c, e, ts); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			id, err := c.insert(ctx, insertEpisodeSQL, e.ProjectID, e.EpisodeNumber, e.Title, e.RawMarkdown, e.FilePath, e.StyleLine,
				e.SoundDesign, e.ReferenceList, e.EndFrameDescription, e.RawPrompt, ts, ts)
			if err != nil {
				return fmt.Errorf("insert episode %d: %w", e.EpisodeNumber, err)
			}
			e.ID = id
		default:
			return fmt.Errorf("find episode %d: %w", e.EpisodeNumber, err)
		}
		return replaceSlots(ctx, c, e)
	})
}

// UpdateEpisode overwrites an existing episode by id and replaces its slots.
func (s *Store) UpdateEpisode(ctx context.Context, e *domain.Episode) error {
	return s.inTx(ctx, func(c conn) error {
		if err := updateEpisode(ctx, c, e, now()); err != nil {
			return err
		}
		if err := touchProject(ctx, c, e.ProjectID); err != nil {
			return err
		}
		return replaceSlots(ctx, c, e)
	})
}

func updateEpisode(ctx context.Context, c conn, e *domain.Episode, ts string) error {
	res, err := c.exec(ctx, updateEpisodeSQL, e.EpisodeNumber, e.Title, e.RawMarkdown, e.FilePath, e.StyleLine,
		e.SoundDesign, e.ReferenceList, e.EndFrameDescription, e.RawPrompt, ts, e.ID, e.ProjectID)
	if err != nil {
		return fmt.Errorf("update episode %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update episode %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// SetEpisodeMirror records the markdown last written to the episode file.
func (s *Store) SetEpisodeMirror(ctx context.Context, episodeID int64, raw, filePath string) error {
	res, err := s.exec(ctx, `UPDATE episodes SET raw_markdown=?, file_path=?, updated_at=? WHERE id=?`, raw, filePath, now(), episodeID)
	if err != nil {
		return fmt.Errorf("update episode mirror: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("episode %d: %w", episodeID, ErrNotFound)
	}
	return nil
}

// DeleteEpisode removes one episode and its slots.
func (s *Store) DeleteEpisode(ctx context.Context, projectID int64, number int) error {
	res, err := s.exec(ctx, `DELETE FROM episodes WHERE project_id=? AND episode_number=?`, projectID, number)
	if err != nil {
		return fmt.Errorf("delete episode %d: %w", number, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete episode %d: %w", number, ErrNotFound)
	}
	return nil
}

func replaceSlots(ctx context.Context, c conn, e *domain.Episode) error {
	if _, err := c.exec(ctx, `DELETE FROM time_slots WHERE episode_id=?`, e.ID); err != nil {
		return fmt.Errorf("clear time slots: %w", err)
	}
	if _, err := c.exec(ctx, `DELETE FROM asset_slots WHERE episode_id=?`, e.ID); err != nil {
		return fmt.Errorf("clear asset slots: %w", err)
	}
	for i := range e.TimeSlots {
		ts := &e.TimeSlots[i]
		id, err := c.insert(ctx, `INSERT INTO time_slots (episode_id, start_second, end_second, camera_movement, description) VALUES (?, ?, ?, ?, ?)`,
			e.ID, ts.StartSecond, ts.EndSecond, ts.CameraMovement, ts.Description)
		if err != nil {
			return fmt.Errorf("insert time slot %d-%d: %w", ts.StartSecond, ts.EndSecond, err)
		}
		ts.ID, ts.EpisodeID = id, e.ID
	}
	for i := range e.AssetSlots {
		as := &e.AssetSlots[i]
		if as.SlotType == "" {
			as.SlotType = markdown.SlotImage
		}
		id, err := c.insert(ctx, `INSERT INTO asset_slots (episode_id, slot_number, slot_type, asset_code, description) VALUES (?, ?, ?, ?, ?)`,
			e.ID, as.SlotNumber, string(as.SlotType), as.AssetCode, as.Description)
		if err != nil {
			return fmt.Errorf("insert asset slot %d: %w", as.SlotNumber, err)
		}
		as.ID, as.EpisodeID = id, e.ID
	}
	return nil
}

func loadSlots(ctx context.Context, c conn, e *domain.Episode) error {
	rows, err := c.query(ctx, `SELECT id, episode_id, start_second, end_second, camera_movement, description
		FROM time_slots WHERE episode_id=? ORDER BY start_second, id`, e.ID)
	if err != nil {
		return fmt.Errorf("list time slots: %w", err)
	}
	for rows.Next() {
		var ts domain.TimeSlot
		if err := rows.Scan(&ts.ID, &ts.EpisodeID, &ts.StartSecond, &ts.EndSecond, &ts.CameraMovement, &ts.Description); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan time slot: %w", err)
		}
		e.TimeSlots = append(e.TimeSlots, ts)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = c.query(ctx, `SELECT id, episode_id, slot_number, slot_type, asset_code, description
		FROM asset_slots WHERE episode_id=? ORDER BY slot_number, id`, e.ID)
	if err != nil {
		return fmt.Errorf("list asset slots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			as  domain.AssetSlot
			typ string
		)
		if err := rows.Scan(&as.ID, &as.EpisodeID, &as.SlotNumber, &typ, &as.AssetCode, &as.Description); err != nil {
			return fmt.Errorf("scan asset slot: %w", err)
		}
		as.SlotType = markdown.SlotType(typ)
		e.AssetSlots = append(e.AssetSlots, as)
	}
	return rows.Err()
}

func scanEpisode(r scanner) (domain.Episode, error) {
	var e domain.Episode
	err := r.Scan(&e.ID, &e.ProjectID, &e.EpisodeNumber, &e.Title, &e.RawMarkdown, &e.FilePath, &e.StyleLine,
		&e.SoundDesign, &e.ReferenceList, &e.EndFrameDescription, &e.RawPrompt)
	return e, err
}
