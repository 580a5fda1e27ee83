/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reconcile

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

const quotedAssetsMD = `# 素材清单

## 统一风格前缀

` + "```" + `
cyberpunk neon
` + "```" + `

## 场景类素材 (Scenes)

### S07 — 庭院

> **画面描述**：古代庭院
>
> **生成提示词**：
> ` + "```" + `
> ancient courtyard, cinematic
> ` + "```" + `
`

const allEpisodesMD = `这是导入前的说明文字。

# E02 - 夜奔

## Seedance Prompt

水墨风格

**0-3秒画面：** 拉镜头，雪夜

# E03 - 火并

## Seedance Prompt

水墨风格

**3-6秒画面：** 特写
`

func writeProjectFolder(t *testing.T, root, folder string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestSplitEpisodes(t *testing.T) {
	parts := SplitEpisodes(allEpisodesMD)
	require.Len(t, parts, 2)
	require.True(t, strings.HasPrefix(parts[0], "# E02 - 夜奔"))
	require.True(t, strings.HasPrefix(parts[1], "# E03 - 火并"))
	require.NotContains(t, parts[0], "说明文字")

	whole := "# 单集\n\n正文\n"
	require.Equal(t, []string{whole}, SplitEpisodes(whole))
	require.Nil(t, SplitEpisodes("  \n"))

	// Level-two headings are not boundaries.
	require.Len(t, SplitEpisodes("# E01 - a\n## E02 - b\n"), 1)
}

func TestClassifyFiles(t *testing.T) {
	ff := classify([]string{"a_E01_分镜.md", "a_剧本.md", "a_素材清单.md", "a分镜全集.md", "notes.md", "分镜脚本.md"})
	require.Equal(t, "a_剧本.md", ff.script)
	require.Equal(t, "a_素材清单.md", ff.assets)
	require.Equal(t, []string{"a_E01_分镜.md", "a分镜全集.md", "分镜脚本.md"}, ff.episodes)
}

func TestImportProject(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t)
	writeProjectFolder(t, root, "林冲项目", map[string]string{
		"林冲_剧本.md":     strings.Replace(scriptMD, "# 山海 - 剧本", "# 林冲夜奔 - 剧本", 1),
		"林冲_素材清单.md":   quotedAssetsMD,
		"林冲_E01_分镜.md": episodeMD,
		"林冲_分镜全集.md":   allEpisodesMD,
		"随记.md":        "not a project document",
	})

	p, err := s.ImportProject(ctx, "林冲项目")
	require.NoError(t, err)
	require.Equal(t, "林冲夜奔", p.Name)
	require.Equal(t, "林冲项目", p.FolderName)
	require.Equal(t, domain.ProjectCompleted, p.Status)
	require.Equal(t, markdown.DialectQuoted, p.Format)
	require.Equal(t, "水墨", p.Style)
	require.Equal(t, "cyberpunk neon", p.StylePrefix)
	require.Equal(t, 3, p.TotalEpisodes)

	_, eps, err := s.Store().GetScript(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, eps, 1)

	assets, err := s.Store().ListAssets(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, "S07", assets[0].Code)
	require.Equal(t, "古代庭院", assets[0].Description)
	require.Equal(t, "ancient courtyard, cinematic", assets[0].Prompt)

	episodes, err := s.Store().ListEpisodes(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	require.Equal(t, "风雪", episodes[0].Title)
	require.Equal(t, "夜奔", episodes[1].Title)
	require.Equal(t, "拉镜头", episodes[1].TimeSlots[0].CameraMovement)
	require.Equal(t, 3, episodes[2].EpisodeNumber)
	require.Equal(t, 3, episodes[2].TimeSlots[0].StartSecond)
	require.Equal(t, filepath.Join(root, "林冲项目", "林冲_分镜全集.md"), episodes[2].FilePath)

	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageScript))
	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageAssets))
	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageStoryboard))
	require.Equal(t, domain.StatusPending, stageStatus(t, s, p.ID, domain.StageImages))

	m, err := storage.ReadManifest(s.Folder(p))
	require.NoError(t, err)
	require.Equal(t, markdown.DialectQuoted, m.Format)

	res, err := s.Store().Search(ctx, p.ID, storage.SearchQuery{Text: "庭院"})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestImportProject_ManifestOverridesSniffing(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t)
	writeProjectFolder(t, root, "清单项目", map[string]string{
		"清单_素材清单.md": assetsMD,
	})
	f := storage.NewFolder(root, "清单项目")
	require.NoError(t, storage.WriteManifest(ctx, f, storage.NewManifest("清单", markdown.DialectQuoted)))

	p, err := s.ImportProject(ctx, "清单项目")
	require.NoError(t, err)
	require.Equal(t, "清单", p.Name)
	require.Equal(t, markdown.DialectQuoted, p.Format)
	require.Equal(t, 0, p.TotalEpisodes)
	require.Equal(t, domain.StatusPending, stageStatus(t, s, p.ID, domain.StageScript))
	require.Equal(t, domain.StatusCompleted, stageStatus(t, s, p.ID, domain.StageAssets))
}

func TestImportProject_MissingFolder(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.ImportProject(context.Background(), "不存在项目")
	require.ErrorIs(t, err, ErrProjectFolderMissing)
}

func TestImportAll_SkipsKnownFolders(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t)
	writeProjectFolder(t, root, "甲项目", map[string]string{"甲_E01_分镜.md": episodeMD})
	writeProjectFolder(t, root, "乙项目", map[string]string{"乙_剧本.md": scriptMD})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "杂物"), 0o755))

	names, err := s.ScanProjectFolders()
	require.NoError(t, err)
	require.Equal(t, []string{"乙项目", "甲项目"}, names)

	res, err := s.ImportAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"乙项目", "甲项目"}, res.Imported)
	require.Empty(t, res.Skipped)
	require.Empty(t, res.Failed)

	res, err = s.ImportAll(ctx)
	require.NoError(t, err)
	require.Empty(t, res.Imported)
	require.Equal(t, []string{"乙项目", "甲项目"}, res.Skipped)

	list, err := s.Store().ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestImportProject_DialectFromEpisodeWithoutAssetList(t *testing.T) {
	ctx := context.Background()
	s, root := newTestService(t)
	writeProjectFolder(t, root, "风雪项目", map[string]string{"风雪_E01_分镜.md": episodeMD})

	p, err := s.ImportProject(ctx, "风雪项目")
	require.NoError(t, err)
	require.Equal(t, markdown.DialectQuoted, p.Format)
}

func TestImportAll_TagsLogLinesWithBatch(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "import.log")
	applog.Init(applog.Options{Level: "info", Format: "json", File: logPath})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error"}) })

	s, root := newTestService(t)
	writeProjectFolder(t, root, "甲项目", map[string]string{"甲_E01_分镜.md": episodeMD})
	res, err := s.ImportAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Batch)

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	tagged := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		if m["batch"] == res.Batch {
			tagged[m["msg"].(string)] = true
		}
	}
	require.True(t, tagged["project imported"], "per-project line lacks the batch: %v", tagged)
	require.True(t, tagged["import finished"], "summary line lacks the batch: %v", tagged)
}
