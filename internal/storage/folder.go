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
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
)

const (
	AssetsDirName  = "素材"
	BackupsDirName = "backups"
	lockFileName   = ".seedance.lock"

	// maxBackups is kept per mirrored file.
	maxBackups = 5
)

// Folder is one project directory holding the mirrored markdown files.
type Folder struct {
	Root string
}

// NewFolder returns the folder folderName under projectsRoot.
func NewFolder(projectsRoot, folderName string) Folder {
	return Folder{Root: filepath.Join(projectsRoot, folderName)}
}

// Name is the directory name, e.g. "山海项目".
func (f Folder) Name() string { return filepath.Base(f.Root) }

// Path joins name onto the folder root.
func (f Folder) Path(name string) string { return filepath.Join(f.Root, name) }

// Exists reports whether the folder is an existing directory.
func (f Folder) Exists() bool {
	st, err := os.Stat(f.Root)
	return err == nil && st.IsDir()
}

// Ensure creates the folder with its asset and backup subfolders.
func (f Folder) Ensure() error {
	if strings.TrimSpace(f.Root) == "" {
		return errors.New("project folder path is required")
	}
	for _, d := range []string{f.Root, f.Path(AssetsDirName), f.Path(BackupsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Lock takes the exclusive folder lock, retrying until ctx is done.
func (f Folder) Lock(ctx context.Context) (unlock func(), err error) {
	fl := flock.New(f.Path(lockFileName))
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: folder is busy", f.Name())
	}
	return func() { _ = fl.Unlock() }, nil
}

// WriteFile replaces name with data as a whole-file atomic write under the
// folder lock. The previous content, if any, is copied to backups/ first.
// It returns the written path.
func (f Folder) WriteFile(ctx context.Context, name string, data []byte) (string, error) {
	if err := f.Ensure(); err != nil {
		return "", err
	}
	unlock, err := f.Lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	target := f.Path(name)
	if _, statErr := os.Stat(target); statErr == nil {
		if err := f.backup(name); err != nil {
			return "", fmt.Errorf("backup %s: %w", name, err)
		}
	}

	temp := f.Path(fmt.Sprintf(".%s.tmp-%d-%d", name, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("write temp %s: %w", name, err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("replace %s: %w", name, err)
	}
	return target, nil
}

// ReadFile reads name from the folder.
func (f Folder) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(f.Path(name))
}

// MarkdownFiles lists the .md files directly in the folder, sorted by name.
func (f Folder) MarkdownFiles() ([]string, error) {
	ents, err := os.ReadDir(f.Root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Root, err)
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListProjectFolders returns the directories under root whose name ends in
// the project folder suffix, sorted by name.
func ListProjectFolders(root string) ([]Folder, error) {
	ents, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read projects root: %w", err)
	}
	var out []Folder
	for _, e := range ents {
		if e.IsDir() && strings.HasSuffix(e.Name(), domain.ProjectFolderSuffix) {
			out = append(out, Folder{Root: filepath.Join(root, e.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out, nil
}

// ScriptFileName is the mirror file of the script: "<name>_剧本.md".
func ScriptFileName(projectName string) string {
	return projectName + "_剧本.md"
}

func AssetListFileName(projectName string) string {
	return projectName + "_素材清单.md"
}

// EpisodeFileName is "<name>_E<NN>_分镜.md".
func EpisodeFileName(projectName string, n int) string {
	return fmt.Sprintf("%s_E%02d_分镜.md", projectName, n)
}

// backup copies name to backups/<name>.<stamp>.bak and prunes old copies.
func (f Folder) backup(name string) error {
	bdir := f.Path(BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102-150405.000000")
	if err := copyFile(f.Path(name), filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", name, stamp))); err != nil {
		return err
	}
	backups, err := f.backupsOf(name)
	if err != nil {
		return err
	}
	for len(backups) > maxBackups {
		_ = os.Remove(backups[0])
		backups = backups[1:]
	}
	return nil
}

// backupsOf lists the backups of name, oldest first.
func (f Folder) backupsOf(name string) ([]string, error) {
	bdir := f.Path(BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, name+".") && strings.HasSuffix(n, ".bak") {
			out = append(out, filepath.Join(bdir, n))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// latestBackup reads the newest backup of name.
func (f Folder) latestBackup(name string) ([]byte, error) {
	backups, err := f.backupsOf(name)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	if len(backups) == 0 {
		return nil, errors.New("no backups found")
	}
	return os.ReadFile(backups[len(backups)-1])
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
