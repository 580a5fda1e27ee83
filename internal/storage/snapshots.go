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
	"time"

	"github.com/google/uuid"
)

// SnapshotKind names the document a snapshot was taken of.
type SnapshotKind string

const (
	SnapshotScript  SnapshotKind = "script"
	SnapshotAssets  SnapshotKind = "assets"
	SnapshotEpisode SnapshotKind = "episode"
)

// Snapshot is one stored copy of incoming raw markdown.
// EpisodeNumber is 0 for script and asset snapshots.
type Snapshot struct {
	UID           string
	ProjectID     int64
	Kind          SnapshotKind
	EpisodeNumber int
	TS            time.Time
	Content       string
}

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO document_snapshots (uid, project_id, kind, episode_number, ts, content)
	VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const pruneSnapshotsSQL = `DELETE FROM document_snapshots
	WHERE project_id = ? AND kind = ? AND episode_number = ? AND id NOT IN (
		SELECT id FROM document_snapshots
		WHERE project_id = ? AND kind = ? AND episode_number = ?
		ORDER BY id DESC LIMIT ?
	)`

// SaveSnapshot stores content as the newest snapshot of (kind, episodeNumber).
func (s *Store) SaveSnapshot(ctx context.Context, projectID int64, kind SnapshotKind, episodeNumber int, content string) (Snapshot, error) {
	snap := Snapshot{
		UID:           uuid.NewString(),
		ProjectID:     projectID,
		Kind:          kind,
		EpisodeNumber: episodeNumber,
		Content:       content,
	}
	ts := now()
	if _, err := s.exec(ctx, insertSnapshotSQL, snap.UID, projectID, string(kind), episodeNumber, ts, content); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	snap.TS = parseTS(ts)
	return snap, nil
}

// LatestSnapshot returns the newest snapshot of (kind, episodeNumber) or ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, projectID int64, kind SnapshotKind, episodeNumber int) (Snapshot, error) {
	row := s.queryRow(ctx, `SELECT uid, project_id, kind, episode_number, ts, content FROM document_snapshots
		WHERE project_id = ? AND kind = ? AND episode_number = ? ORDER BY id DESC LIMIT 1`, projectID, string(kind), episodeNumber)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, notFound(err, fmt.Sprintf("%s snapshot", kind))
	}
	return snap, nil
}

// ListSnapshots returns up to limit snapshots of a project, newest first.
// An empty kind lists every kind.
func (s *Store) ListSnapshots(ctx context.Context, projectID int64, kind SnapshotKind, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT uid, project_id, kind, episode_number, ts, content FROM document_snapshots WHERE project_id = ?`
	args := []any{projectID}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the keepLast newest snapshots of every document of a
// project and deletes the rest. It returns the number of deleted rows.
func (s *Store) PruneSnapshots(ctx context.Context, projectID int64, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	type group struct {
		kind string
		ep   int
	}
	rows, err := s.query(ctx, `SELECT DISTINCT kind, episode_number FROM document_snapshots WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("list snapshot groups: %w", err)
	}
	var groups []group
	for rows.Next() {
		var g group
		if err := rows.Scan(&g.kind, &g.ep); err != nil {
			_ = rows.Close()
			return 0, err
		}
		groups = append(groups, g)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var deleted int64
	err = s.inTx(ctx, func(c conn) error {
		for _, g := range groups {
			res, err := c.exec(ctx, pruneSnapshotsSQL, projectID, g.kind, g.ep, projectID, g.kind, g.ep, keepLast)
			if err != nil {
				return fmt.Errorf("prune %s snapshots: %w", g.kind, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func scanSnapshot(r scanner) (Snapshot, error) {
	var (
		snap     Snapshot
		kind, ts string
	)
	if err := r.Scan(&snap.UID, &snap.ProjectID, &kind, &snap.EpisodeNumber, &ts, &snap.Content); err != nil {
		return Snapshot{}, err
	}
	snap.Kind = SnapshotKind(kind)
	snap.TS = parseTS(ts)
	return snap, nil
}
