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
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

var (
	reEpisodeFile = regexp.MustCompile(`(?:_E\d{2}_分镜|分镜脚本|分镜全集)\.md$`)
	reEpisodeCut  = regexp.MustCompile(`^#\s+E\d{2}`)
)

// ImportResult lists the outcome of ImportAll per folder name.
type ImportResult struct {
	Batch    string // tags the log lines of this run
	Imported []string
	Skipped  []string
	Failed   map[string]error
}

// ScanProjectFolders lists the "*项目" folders under the projects root.
func (s *Service) ScanProjectFolders() ([]string, error) {
	folders, err := storage.ListProjectFolders(s.root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.Name())
	}
	return out, nil
}

// folderFiles are the documents found in one project folder.
type folderFiles struct {
	script   string
	assets   string
	episodes []string
}

func classify(names []string) folderFiles {
	var ff folderFiles
	for _, n := range names {
		switch {
		case reEpisodeFile.MatchString(n):
			ff.episodes = append(ff.episodes, n)
		case ff.script == "" && strings.HasSuffix(n, "剧本.md"):
			ff.script = n
		case ff.assets == "" && strings.HasSuffix(n, "素材清单.md"):
			ff.assets = n
		}
	}
	return ff
}

// ImportProject creates a completed project from the hand-authored files in
// folderName. The script supplies the name and parameters, the asset list the
// dialect (unless project.json names one) and every episode file one or more
// storyboards. A failed import leaves no project row behind.
func (s *Service) ImportProject(ctx context.Context, folderName string) (domain.Project, error) {
	f := storage.NewFolder(s.root, folderName)
	if !f.Exists() {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectFolderMissing, folderName)
	}
	names, err := f.MarkdownFiles()
	if err != nil {
		return domain.Project{}, err
	}
	ff := classify(names)

	p := domain.NewProject(strings.TrimSuffix(folderName, domain.ProjectFolderSuffix), markdown.DialectInline)
	p.FolderName = folderName
	p.Status = domain.ProjectCompleted
	p.TotalEpisodes = len(ff.episodes)

	var (
		scriptMD  string
		scriptDoc markdown.ScriptDocument
	)
	if ff.script != "" {
		b, err := f.ReadFile(ff.script)
		if err != nil {
			return domain.Project{}, err
		}
		scriptMD = string(b)
		scriptDoc = markdown.ParseScript(scriptMD)
		if scriptDoc.Title != "" {
			p.Name = scriptDoc.Title
		}
		p.ApplyParams(scriptDoc.Parameters)
	}

	m, merr := storage.ReadManifest(f)
	hasManifest := merr == nil
	if hasManifest {
		p.Format = m.Format.Resolve()
	}

	var assetDoc markdown.AssetListDocument
	if ff.assets != "" {
		b, err := f.ReadFile(ff.assets)
		if err != nil {
			return domain.Project{}, err
		}
		if !hasManifest {
			p.Format = markdown.SniffDialect(string(b))
		}
		assetDoc = markdown.ParseAssetListAs(string(b), p.Format)
		p.StylePrefix = assetDoc.StylePrefix
		if p.Style == "" {
			p.Style = assetDoc.StylePrefix
		}
	}

	if !hasManifest && ff.assets == "" && len(ff.episodes) > 0 {
		if b, err := f.ReadFile(ff.episodes[0]); err == nil {
			p.Format = markdown.SniffEpisodeDialect(string(b))
		}
	}

	if err := s.store.CreateProject(ctx, &p); err != nil {
		return domain.Project{}, err
	}
	l := s.op("import", p.ID).With(slog.String("folder", folderName))
	if err := s.importDocuments(ctx, l, f, p, ff, scriptMD, scriptDoc, assetDoc); err != nil {
		if derr := s.store.DeleteProject(ctx, p.ID); derr != nil {
			l.WarnContext(ctx, "rollback of imported project failed", slog.Any("err", derr))
		}
		return domain.Project{}, fmt.Errorf("import %s: %w", folderName, err)
	}

	if !hasManifest && !errors.Is(merr, os.ErrNotExist) {
		l.WarnContext(ctx, "project.json unreadable, rewriting", slog.Any("err", merr))
	}
	if !hasManifest {
		if err := storage.WriteManifest(ctx, f, storage.NewManifest(p.Name, p.Format)); err != nil {
			l.WarnContext(ctx, "write project.json failed", slog.Any("err", err))
		}
	}
	s.reindex(ctx, l, p.ID)
	l.InfoContext(ctx, "project imported",
		slog.Bool("script", ff.script != ""),
		slog.Int("assets", len(assetDoc.Assets)),
		slog.Int("episode_files", len(ff.episodes)),
		slog.String("format", p.Format.String()),
	)
	return p, nil
}

func (s *Service) importDocuments(ctx context.Context, l *slog.Logger, f storage.Folder, p domain.Project, ff folderFiles,
	scriptMD string, scriptDoc markdown.ScriptDocument, assetDoc markdown.AssetListDocument) error {
	var done []domain.Stage
	if ff.script != "" {
		sc := domain.Script{
			ProjectID:    p.ID,
			RawMarkdown:  scriptMD,
			FilePath:     f.Path(ff.script),
			EmotionalArc: scriptDoc.EmotionalArc,
			ColorPlan:    scriptDoc.ColorPlan,
		}
		if err := s.store.ReplaceScript(ctx, &sc, domain.ScriptEpisodesFrom(scriptDoc), nil); err != nil {
			return err
		}
		done = append(done, domain.StageScript)
	}
	if ff.assets != "" {
		if err := s.store.ReplaceAssets(ctx, p.ID, domain.AssetsFrom(assetDoc), nil); err != nil {
			return err
		}
		done = append(done, domain.StageAssets)
	}

	for _, name := range ff.episodes {
		b, err := f.ReadFile(name)
		if err != nil {
			return err
		}
		fragments := []string{string(b)}
		if strings.Contains(name, "全集") || strings.Contains(name, "分镜脚本") {
			fragments = SplitEpisodes(string(b))
		}
		for _, frag := range fragments {
			doc := markdown.ParseEpisode(frag)
			if doc.EpisodeNumber == 0 && doc.Title == "" {
				l.DebugContext(ctx, "fragment without episode heading dropped", slog.String("file", name))
				continue
			}
			e := domain.EpisodeFrom(doc, frag)
			e.ProjectID = p.ID
			e.FilePath = f.Path(name)
			if err := s.store.SaveEpisode(ctx, &e); err != nil {
				return err
			}
		}
	}
	if len(ff.episodes) > 0 {
		done = append(done, domain.StageStoryboard)
	}
	return s.store.InitStages(ctx, p.ID, done...)
}

// ImportAll imports every project folder not yet known to the store.
// A failing folder is recorded and the remaining folders are still imported.
func (s *Service) ImportAll(ctx context.Context) (ImportResult, error) {
	res := ImportResult{Batch: uuid.NewString(), Failed: map[string]error{}}
	ctx = applog.WithBatch(ctx, res.Batch)
	l := applog.WithOperation(s.log, "import_all")
	folders, err := s.ScanProjectFolders()
	if err != nil {
		return res, err
	}
	for _, name := range folders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := s.store.GetProjectByFolder(ctx, name)
		switch {
		case err == nil:
			res.Skipped = append(res.Skipped, name)
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return res, err
		}
		if _, err := s.ImportProject(ctx, name); err != nil {
			l.ErrorContext(ctx, "import failed", slog.String("folder", name), slog.Any("err", err))
			res.Failed[name] = err
			continue
		}
		res.Imported = append(res.Imported, name)
	}
	l.InfoContext(ctx, "import finished",
		slog.Int("imported", len(res.Imported)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// SplitEpisodes cuts a multi-episode document before every line starting with
// "# E<NN>". Text before the first such line is dropped, as are blank
// fragments. A document without any boundary is returned whole.
func SplitEpisodes(md string) []string {
	lines := strings.SplitAfter(md, "\n")
	var (
		out   []string
		cur   strings.Builder
		found bool
	)
	flush := func() {
		if found && strings.TrimSpace(cur.String()) != "" {
			out = append(out, cur.String())
		}
		cur.Reset()
	}
	for _, ln := range lines {
		if reEpisodeCut.MatchString(ln) {
			flush()
			found = true
		}
		cur.WriteString(ln)
	}
	flush()
	if !found {
		if strings.TrimSpace(md) == "" {
			return nil
		}
		return []string{md}
	}
	return out
}
