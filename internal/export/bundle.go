/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

// BundleManifestName is the plain-text note at the root of a project bundle.
const BundleManifestName = "bundle.manifest.txt"

// ExportProjectBundle zips a project folder into destZipPath. Entries are stored
// as "<folder>/<rel>" so the archive unpacks into a folder of the same name.
// The backups directory and dot-files are left out. The folder lock is held
// while files are read.
func ExportProjectBundle(ctx context.Context, f storage.Folder, destZipPath string) (n int, err error) {
	l := applog.WithOperation(applog.WithComponent("export"), "bundle").With(slog.String("folder", f.Root))
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	if !f.Exists() {
		return 0, fmt.Errorf("project folder %s does not exist", f.Root)
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	unlock, err := f.Lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() {
		if cerr := zf.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(destZipPath)
		}
	}()
	zw := zip.NewWriter(zf)

	w, err := zw.Create(BundleManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	note := fmt.Sprintf("Seedance Project Bundle\nCreated: %s\nFolder: %s\n", time.Now().Format(time.RFC3339), f.Name())
	if _, err := io.WriteString(w, note); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	// A zip inside the folder must not swallow itself.
	destAbs, _ := filepath.Abs(destZipPath)
	err = filepath.WalkDir(f.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.Root, p)
		if err != nil {
			return err
		}
		hidden := rel != "." && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if rel == storage.BackupsDirName || hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == destAbs {
			return nil
		}
		if err := addFile(zw, p, path.Join(f.Name(), filepath.ToSlash(rel))); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return 0, fmt.Errorf("build zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("project bundle exported", slog.Int("files", n), slog.String("zip", destZipPath))
	return n, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	_, err = io.Copy(fw, in)
	return err
}

// InstallBundle extracts a bundle under projectsRoot and returns the folder
// name it unpacked into. Existing files are not overwritten; they are skipped.
// Entries that would land outside the project folder are rejected.
func InstallBundle(projectsRoot, zipPath string) (folder string, installed int, err error) {
	l := applog.WithOperation(applog.WithComponent("export"), "install_bundle").With(slog.String("zip", zipPath))
	if strings.TrimSpace(projectsRoot) == "" {
		return "", 0, errors.New("projectsRoot is required")
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, zf := range r.File {
		name := zf.Name
		if name == BundleManifestName {
			continue
		}
		clean := path.Clean(name)
		top, _, _ := strings.Cut(clean, "/")
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || top == "" || top == "." {
			return folder, installed, fmt.Errorf("bundle entry %q escapes the project folder", name)
		}
		switch {
		case folder == "":
			folder = top
		case top != folder:
			return folder, installed, fmt.Errorf("bundle holds more than one folder (%s, %s)", folder, top)
		}

		isDir := zf.FileInfo().IsDir()
		if !isDir && clean == top {
			return folder, installed, fmt.Errorf("bundle entry %q is not inside a project folder", name)
		}

		target := filepath.Join(projectsRoot, filepath.FromSlash(clean))
		if isDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return folder, installed, err
			}
			continue
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(zf, target); err != nil {
			return folder, installed, err
		}
		installed++
	}
	if folder == "" {
		return "", 0, errors.New("bundle is empty")
	}
	l.Info("project bundle installed", slog.String("folder", folder), slog.Int("files", installed))
	return folder, installed, nil
}

func extract(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
