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
	"strings"
	"unicode/utf8"
)

// SearchKind is the kind of row held in search_documents.
type SearchKind string

const (
	SearchAsset    SearchKind = "asset"
	SearchTimeSlot SearchKind = "time_slot"
	SearchEndFrame SearchKind = "end_frame"
)

// SearchQuery describes a project search.
// Text is matched as a literal substring. Kinds and Episode are optional filters;
// Episode 0 means any. Limit/Offset paginate with a default limit of 50.
type SearchQuery struct {
	Text    string
	Kinds   []SearchKind
	Episode int
	Limit   int
	Offset  int
}

// SearchResult is one matching row. Ref is the asset code or the time window
// ("0-3s"); Snippet marks the match with [ ].
type SearchResult struct {
	Kind          SearchKind
	Ref           string
	EpisodeNumber int
	Snippet       string
}

// minTrigram is the shortest query the trigram index can answer.
const minTrigram = 3

// language=SQL
const reindexAssetsSQL = `INSERT INTO search_documents (project_id, kind, ref, episode_number, body)
	SELECT project_id, 'asset', code, 0, name || ' ' || description || ' ' || prompt
	FROM assets WHERE project_id = ?`

// language=SQL
const reindexTimeSlotsSQL = `INSERT INTO search_documents (project_id, kind, ref, episode_number, body)
	SELECT e.project_id, 'time_slot', t.start_second || '-' || t.end_second || 's', e.episode_number, t.description
	FROM time_slots t JOIN episodes e ON e.id = t.episode_id
	WHERE e.project_id = ? AND t.description <> ''`

// language=SQL
const reindexEndFramesSQL = `INSERT INTO search_documents (project_id, kind, ref, episode_number, body)
	SELECT project_id, 'end_frame', 'E' || episode_number, episode_number, end_frame_description
	FROM episodes WHERE project_id = ? AND end_frame_description <> ''`

// Reindex rebuilds the search rows of one project from its assets and episodes.
// It returns the number of indexed rows.
func (s *Store) Reindex(ctx context.Context, projectID int64) (int64, error) {
	var total int64
	err := s.inTx(ctx, func(c conn) error {
		if _, err := c.exec(ctx, `DELETE FROM search_documents WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("clear search rows: %w", err)
		}
		for _, q := range []string{reindexAssetsSQL, reindexTimeSlotsSQL, reindexEndFramesSQL} {
			res, err := c.exec(ctx, q, projectID)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Search finds rows of a project whose text contains q.Text.
// SQLite answers through the FTS5 trigram index when the text is long enough,
// otherwise (and on PostgreSQL) through a LIKE/ILIKE scan.
func (s *Store) Search(ctx context.Context, projectID int64, q SearchQuery) ([]SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		args []any
		sb   strings.Builder
	)
	useFTS := s.driver == DriverSQLite && utf8.RuneCountInString(text) >= minTrigram
	if useFTS {
		sb.WriteString("SELECT d.kind, d.ref, d.episode_number, snippet(fts_search, 0, '[', ']', '…', 16), d.body\n")
		sb.WriteString("FROM fts_search JOIN search_documents d ON fts_search.rowid = d.id\n")
		sb.WriteString("WHERE fts_search MATCH ? AND d.project_id = ?\n")
		args = append(args, ftsPhrase(text), projectID)
	} else {
		like := "LIKE"
		if s.driver == DriverPostgres {
			like = "ILIKE"
		}
		sb.WriteString("SELECT d.kind, d.ref, d.episode_number, '', d.body\n")
		sb.WriteString("FROM search_documents d\n")
		sb.WriteString("WHERE d.body " + like + " ? ESCAPE '\\' AND d.project_id = ?\n")
		args = append(args, likeContains(escapeLike(text)), projectID)
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND d.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, string(k))
		}
	}
	if q.Episode > 0 {
		sb.WriteString(" AND d.episode_number = ?\n")
		args = append(args, q.Episode)
	}
	if useFTS {
		sb.WriteString("ORDER BY rank, d.id\n")
	} else {
		sb.WriteString("ORDER BY d.episode_number, d.id\n")
	}
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := s.query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchResult
	for rows.Next() {
		var (
			r          SearchResult
			kind, body string
		)
		if err := rows.Scan(&kind, &r.Ref, &r.EpisodeNumber, &r.Snippet, &body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Kind = SearchKind(kind)
		if r.Snippet == "" {
			r.Snippet = snippetAround(body, text, 16)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsPhrase quotes text as a single FTS5 phrase so operators in user input stay literal.
func ftsPhrase(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// snippetAround returns up to span runes either side of the first
// case-insensitive match of needle in body, with the match wrapped in [ ].
func snippetAround(body, needle string, span int) string {
	rb := []rune(body)
	lower := []rune(strings.ToLower(body))
	rn := []rune(strings.ToLower(needle))
	if len(lower) != len(rb) {
		return body
	}
	at := -1
	for i := 0; i+len(rn) <= len(lower); i++ {
		if string(lower[i:i+len(rn)]) == string(rn) {
			at = i
			break
		}
	}
	if at < 0 {
		return body
	}
	start := max(0, at-span)
	end := min(len(rb), at+len(rn)+span)
	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(rb[start:at]))
	b.WriteString("[" + string(rb[at:at+len(rn)]) + "]")
	b.WriteString(string(rb[at+len(rn) : end]))
	if end < len(rb) {
		b.WriteString("…")
	}
	return b.String()
}
