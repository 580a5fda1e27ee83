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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

func TestFolder_EnsureAndNames(t *testing.T) {
	root := t.TempDir()
	f := NewFolder(root, "山海项目")
	require.False(t, f.Exists())
	require.NoError(t, f.Ensure())
	require.True(t, f.Exists())
	require.Equal(t, "山海项目", f.Name())
	require.DirExists(t, f.Path(AssetsDirName))
	require.DirExists(t, f.Path(BackupsDirName))

	require.Equal(t, "山海_剧本.md", ScriptFileName("山海"))
	require.Equal(t, "山海_素材清单.md", AssetListFileName("山海"))
	require.Equal(t, "山海_E03_分镜.md", EpisodeFileName("山海", 3))
	require.Equal(t, "山海_E12_分镜.md", EpisodeFileName("山海", 12))

	require.Error(t, Folder{}.Ensure())
}

func TestFolder_WriteFileKeepsBackups(t *testing.T) {
	ctx := context.Background()
	f := NewFolder(t.TempDir(), "备份项目")
	name := "x_剧本.md"

	for i := 0; i < maxBackups+3; i++ {
		p, err := f.WriteFile(ctx, name, []byte(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
		require.Equal(t, f.Path(name), p)
		time.Sleep(2 * time.Millisecond)
	}
	got, err := f.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("v%d", maxBackups+2), string(got))

	backups, err := f.backupsOf(name)
	require.NoError(t, err)
	require.Len(t, backups, maxBackups)
	latest, err := f.latestBackup(name)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("v%d", maxBackups+1), string(latest))

	// No temp files are left behind.
	md, err := f.MarkdownFiles()
	require.NoError(t, err)
	require.Equal(t, []string{name}, md)
	ents, err := os.ReadDir(f.Root)
	require.NoError(t, err)
	for _, e := range ents {
		require.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestFolder_LockIsExclusive(t *testing.T) {
	f := NewFolder(t.TempDir(), "锁项目")
	require.NoError(t, f.Ensure())

	unlock, err := f.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = f.Lock(ctx)
	require.Error(t, err)

	unlock()
	unlock2, err := f.Lock(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestListProjectFolders(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"乙项目", "甲项目", "杂物", "backups"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "说明项目"), []byte("file"), 0o644))

	got, err := ListProjectFolders(root)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "乙项目", got[0].Name())
	require.Equal(t, "甲项目", got[1].Name())

	_, err = ListProjectFolders(filepath.Join(root, "missing"))
	require.Error(t, err)
}

func TestManifest_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFolder(t.TempDir(), "清单项目")
	m := NewManifest("清单", markdown.DialectAuto)
	require.Equal(t, markdown.DialectInline, m.Format)
	require.NoError(t, WriteManifest(ctx, f, m))

	got, err := ReadManifest(f)
	require.NoError(t, err)
	require.Equal(t, "清单", got.Name)
	require.Equal(t, markdown.DialectInline, got.Format)
	require.True(t, m.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, 1, got.Version)
}

func TestManifest_Invalid(t *testing.T) {
	require.ErrorIs(t, ValidateManifest([]byte(`{"version":1,"name":"a","markdownFormat":"fancy","createdAt":"2025-01-01T00:00:00Z"}`)), ErrInvalidManifest)
	require.ErrorIs(t, ValidateManifest([]byte(`{"version":1,"name":"a","markdownFormat":"inline"}`)), ErrInvalidManifest)
	require.ErrorIs(t, ValidateManifest([]byte(`{"version":1,"name":"a","markdownFormat":"inline","createdAt":"2025-01-01T00:00:00Z","extra":true}`)), ErrInvalidManifest)
	require.ErrorIs(t, ValidateManifest([]byte(`not json`)), ErrInvalidManifest)
	require.NoError(t, ValidateManifest([]byte(`{"version":1,"name":"a","markdownFormat":"quoted","createdAt":"2025-01-01T00:00:00Z"}`)))

	f := NewFolder(t.TempDir(), "无清单项目")
	_, err := ReadManifest(f)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManifest_CorruptFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	f := NewFolder(t.TempDir(), "损坏项目")
	require.NoError(t, WriteManifest(ctx, f, NewManifest("损坏", markdown.DialectQuoted)))
	// The second write backs up the valid first version.
	_, err := f.WriteFile(ctx, ManifestFileName, []byte("{broken"))
	require.NoError(t, err)

	got, err := ReadManifest(f)
	require.NoError(t, err)
	require.Equal(t, "损坏", got.Name)
	require.Equal(t, markdown.DialectQuoted, got.Format)

	// Without a backup the corruption is reported.
	g := NewFolder(t.TempDir(), "裸项目")
	_, err = g.WriteFile(ctx, ManifestFileName, []byte("{broken"))
	require.NoError(t, err)
	_, err = ReadManifest(g)
	require.ErrorIs(t, err, ErrInvalidManifest)
}
