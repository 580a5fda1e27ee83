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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

const scriptMD = `# 山海 - 剧本

## 制作参数

| 参数 | 值 |
|------|-----|
| 视觉风格 | 水墨 |
| 总集数 | 3集 |

---

## 剧本结构

### 第一集：开场

**情感基调：** 压抑

**关键情节：**
- 场景A
- 场景B

---
`

const assetsMD = `# 素材清单

## 风格前缀（适用于所有素材）

` + "```" + `
chinese ink painting, muted colors
` + "```" + `

---

## 角色类素材 (Characters)

### C01 - 林冲

tall man in worn armor

---

## 场景类素材 (Scenes)

### S01 - 草料场

snowy fodder yard at night

---
`

const episodeMD = `# E01 - 风雪

## 素材上传清单

| 上传位置 | 素材ID | 素材描述 |
|----------|--------|----------|
| @图片1 | C01 | 林冲 |

---

## Seedance Prompt

水墨风格，9:16 竖屏

**0-3秒画面：** 推镜头，远景

**6-9秒画面：** 特写

---
`

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	st, err := storage.Open(context.Background(), storage.Options{Path: filepath.Join(t.TempDir(), "seedance.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, root), root
}

func newProject(t *testing.T, s *Service, dialect markdown.Dialect) domain.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), "山海", dialect)
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func stageStatus(t *testing.T, s *Service, projectID int64, stage domain.Stage) domain.StageStatus {
	t.Helper()
	stages, err := s.Store().ListStages(context.Background(), projectID)
	require.NoError(t, err)
	for _, st := range stages {
		if st.Stage == stage {
			return st.Status
		}
	}
	t.Fatalf("stage %s missing", stage)
	return ""
}

func TestCreateProject_LaysOutFolder(t *testing.T) {
	s, root := newTestService(t)
	p := newProject(t, s, markdown.DialectQuoted)

	require.Equal(t, "山海项目", p.FolderName)
	require.DirExists(t, filepath.Join(root, "山海项目", storage.AssetsDirName))
	m, err := storage.ReadManifest(s.Folder(p))
	require.NoError(t, err)
	require.Equal(t, markdown.DialectQuoted, m.Format)
	require.Equal(t, "山海", m.Name)

	stages, err := s.Store().ListStages(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, stages, len(domain.Stages))
	for _, st := range stages {
		require.Equal(t, domain.StatusPending, st.Status)
	}

	_, err = s.CreateProject(context.Background(), "  ", markdown.DialectInline)
	require.Error(t, err)
}

func TestSaveGeneratedScript(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)

	sc, err := s.SaveGeneratedScript(ctx, p.ID, scriptMD)
	require.NoError(t, err)
	require.NotEmpty(t, sc.FilePath)
	require.Equal(t, filepath.Join(s.Folder(p).Root, "山海_剧本.md"), sc.FilePath)

	got, err := s.Store().GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "水墨", got.Style)
	require.Equal(t, 3, got.TotalEpisodes)

	mirror := readFile(t, sc.FilePath)
	require.Contains(t, mirror, "# 山海 - 剧本")
	require.Contains(t, mirror, "| 总集数 | 3集 |")
	doc := markdown.ParseScript(mirror)
	require.Len(t, doc.Episodes, 1)
	require.Equal(t, "开场", doc.Episodes[0].Title)
	require.Equal(t, []string{"场景A", "场景B"}, doc.Episodes[0].KeyPlots)

	stored, _, err := s.Store().GetScript(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, mirror, stored.RawMarkdown)

	snap, err := s.Store().LatestSnapshot(ctx, p.ID, storage.SnapshotScript, 0)
	require.NoError(t, err)
	require.Equal(t, scriptMD, snap.Content)
	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageScript))
}

func TestSaveGeneratedAssets(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectQuoted)

	assets, err := s.SaveGeneratedAssets(ctx, p.ID, assetsMD)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, markdown.AssetScene, assets[1].Type)

	got, err := s.Store().GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "chinese ink painting, muted colors", got.StylePrefix)

	// The mirror is written in the project's dialect, not the input's.
	mirror := readFile(t, s.Folder(p).Path(storage.AssetListFileName("山海")))
	require.Equal(t, markdown.DialectQuoted, markdown.SniffDialect(mirror))
	require.Contains(t, mirror, "### C01 — 林冲")

	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageAssets))

	res, err := s.Store().Search(ctx, p.ID, storage.SearchQuery{Text: "armor"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "C01", res[0].Ref)
}

func TestSaveGeneratedEpisode(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)

	e, err := s.SaveGeneratedEpisode(ctx, p.ID, 2, episodeMD)
	require.NoError(t, err)
	require.Equal(t, 2, e.EpisodeNumber)
	require.Equal(t, "风雪", e.Title)
	require.Len(t, e.TimeSlots, 2)
	require.Equal(t, "推镜头", e.TimeSlots[0].CameraMovement)
	require.Len(t, e.AssetSlots, 1)

	path := s.Folder(p).Path("山海_E02_分镜.md")
	require.Equal(t, path, e.FilePath)
	mirror := readFile(t, path)
	require.True(t, strings.HasPrefix(mirror, "# E02 - 风雪"))

	prompt, err := s.EpisodePrompt(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Contains(t, prompt, "推镜头，远景")
	require.Equal(t, domain.StatusInProgress, stageStatus(t, s, p.ID, domain.StageStoryboard))

	_, err = s.SaveGeneratedEpisode(ctx, p.ID, 0, episodeMD)
	require.Error(t, err)
}

func TestUpdateEpisode_RetagsAndResyncs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)
	_, err := s.SaveGeneratedEpisode(ctx, p.ID, 1, episodeMD)
	require.NoError(t, err)

	e, err := s.Store().GetEpisode(ctx, p.ID, 1)
	require.NoError(t, err)
	e.TimeSlots[1].Description = "拉镜头，远景"
	require.NoError(t, s.UpdateEpisode(ctx, &e))

	got, err := s.Store().GetEpisode(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "拉镜头", got.TimeSlots[1].CameraMovement)

	doc := markdown.ParseEpisode(readFile(t, got.FilePath))
	require.Len(t, doc.TimeSlots, 2)
	require.Equal(t, "拉镜头，远景", doc.TimeSlots[1].Description)

	prompt, err := s.EpisodePrompt(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Contains(t, prompt, "拉镜头，远景")
}

func TestUpdateAndDeleteAsset(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)
	assets, err := s.SaveGeneratedAssets(ctx, p.ID, assetsMD)
	require.NoError(t, err)

	a := assets[0]
	a.Name = "豹子头"
	require.NoError(t, s.UpdateAsset(ctx, &a))
	file := s.Folder(p).Path(storage.AssetListFileName("山海"))
	require.Contains(t, readFile(t, file), "### C01 - 豹子头")

	require.NoError(t, s.DeleteAsset(ctx, p.ID, assets[1].ID))
	doc := markdown.ParseAssetList(readFile(t, file))
	require.Len(t, doc.Assets, 1)
	require.Equal(t, "C01", doc.Assets[0].Code)
}

func TestUpdateScriptEpisode(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)
	sc, err := s.SaveGeneratedScript(ctx, p.ID, scriptMD)
	require.NoError(t, err)

	_, eps, err := s.Store().GetScript(ctx, p.ID)
	require.NoError(t, err)
	ep := eps[0]
	ep.Title = "雪夜"
	require.NoError(t, s.UpdateScriptEpisode(ctx, p.ID, ep))
	require.Contains(t, readFile(t, sc.FilePath), "### 第一集：雪夜")
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	p := newProject(t, s, markdown.DialectInline)

	written, err := s.SyncAll(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, written)

	_, err = s.SaveGeneratedScript(ctx, p.ID, scriptMD)
	require.NoError(t, err)
	_, err = s.SaveGeneratedAssets(ctx, p.ID, assetsMD)
	require.NoError(t, err)
	_, err = s.SaveGeneratedEpisode(ctx, p.ID, 1, episodeMD)
	require.NoError(t, err)

	// Removing the files and syncing brings them back.
	require.NoError(t, os.RemoveAll(s.Folder(p).Root))
	written, err = s.SyncAll(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, written, 3)
	for _, w := range written {
		require.FileExists(t, w)
	}
}

func TestDeleteAsset_OtherProjectUntouched(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := newProject(t, s, markdown.DialectInline)
	b, err := s.CreateProject(ctx, "水浒", markdown.DialectInline)
	require.NoError(t, err)
	_, err = s.SaveGeneratedAssets(ctx, a.ID, assetsMD)
	require.NoError(t, err)
	bAssets, err := s.SaveGeneratedAssets(ctx, b.ID, assetsMD)
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteAsset(ctx, a.ID, bAssets[0].ID), storage.ErrNotFound)

	left, err := s.Store().ListAssets(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, left, 2)
	require.Contains(t, readFile(t, s.Folder(b).Path(storage.AssetListFileName("水浒"))), "### C01")
}
