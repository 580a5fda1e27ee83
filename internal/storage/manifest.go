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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/version"
)

// ManifestFileName sits at the root of every project folder.
const ManifestFileName = "project.json"

const manifestVersion = 1

//go:embed manifest.schema.json
var manifestSchema []byte

// ErrInvalidManifest wraps schema violations of project.json.
var ErrInvalidManifest = errors.New("invalid project manifest")

// Manifest records what the folder holds and which dialect its files use.
type Manifest struct {
	Version   int              `json:"version"`
	Name      string           `json:"name"`
	Format    markdown.Dialect `json:"markdownFormat"`
	CreatedAt time.Time        `json:"createdAt"`
	Generator string           `json:"generator,omitempty"`
}

// NewManifest describes a project created now.
func NewManifest(name string, format markdown.Dialect) Manifest {
	return Manifest{
		Version:   manifestVersion,
		Name:      name,
		Format:    format.Resolve(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Generator: "seedance " + version.String(),
	}
}

// ValidateManifest checks data against the embedded JSON schema.
func ValidateManifest(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	return nil
}

// WriteManifest validates m and writes it to the folder.
func WriteManifest(ctx context.Context, f Folder, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateManifest(data); err != nil {
		return err
	}
	if _, err := f.WriteFile(ctx, ManifestFileName, data); err != nil {
		return err
	}
	return nil
}

// ReadManifest loads and validates project.json. A missing file yields an
// error matching os.ErrNotExist. A corrupt file falls back to its latest backup.
func ReadManifest(f Folder) (Manifest, error) {
	data, err := f.ReadFile(ManifestFileName)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, perr := parseManifest(data)
	if perr == nil {
		return m, nil
	}
	b, berr := f.latestBackup(ManifestFileName)
	if berr != nil {
		return Manifest{}, fmt.Errorf("%w; backup attempt: %v", perr, berr)
	}
	m, err = parseManifest(b)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w; backup attempt: %v", perr, err)
	}
	return m, nil
}

func parseManifest(data []byte) (Manifest, error) {
	if err := ValidateManifest(data); err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, nil
}
