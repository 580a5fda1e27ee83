/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

func sampleEpisode(n int) markdown.EpisodeDocument {
	return markdown.EpisodeDocument{
		Title:         "Snow Night",
		EpisodeNumber: n,
		AssetSlots: []markdown.AssetSlotRecord{
			{SlotNumber: 1, SlotType: markdown.SlotImage, AssetCode: "C01", Description: "hero"},
			{SlotNumber: 2, SlotType: markdown.SlotVideo, AssetCode: "S01", Description: "yard"},
		},
		StyleLine: "ink wash, 9:16",
		TimeSlots: []markdown.TimeSlotRecord{
			{StartSecond: 0, EndSecond: 3, CameraMovement: "push", Description: "slow push towards the gate while snow keeps falling over the courtyard"},
			{StartSecond: 6, EndSecond: 9, Description: "close-up"},
		},
		SoundDesign:         "wind | footsteps",
		EndFrameDescription: "the gate closes",
	}
}

// testFont finds a TrueType font on the machine; SEEDANCE_PDF_FONT wins.
func testFont(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("SEEDANCE_PDF_FONT"); p != "" {
		return p
	}
	for _, pattern := range []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
	} {
		if m, _ := filepath.Glob(pattern); len(m) > 0 {
			return m[0]
		}
	}
	t.Skip("no TrueType font available; set SEEDANCE_PDF_FONT")
	return ""
}

func TestEpisodePDF_RequiresFont(t *testing.T) {
	var buf bytes.Buffer
	if err := EpisodePDF(&buf, PDFOptions{}, sampleEpisode(1)); !errors.Is(err, ErrFontRequired) {
		t.Fatalf("expected ErrFontRequired, got %v", err)
	}
	err := EpisodePDF(&buf, PDFOptions{FontPath: filepath.Join(t.TempDir(), "missing.ttf")}, sampleEpisode(1))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a missing font error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on error")
	}
}

func TestExportEpisodesPDF_CreatesFile(t *testing.T) {
	font := testFont(t)
	out := filepath.Join(t.TempDir(), "exports", "storyboard.pdf")
	opt := PDFOptions{FontPath: font, Project: "Test", IncludeGrid: true}
	if err := ExportEpisodesPDF(out, opt, sampleEpisode(1), sampleEpisode(2)); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:min(8, len(data))])
	}
}

func TestExportEpisodesPDF_NoMatchingEpisode(t *testing.T) {
	font := testFont(t)
	out := filepath.Join(t.TempDir(), "none.pdf")
	err := ExportEpisodesPDF(out, PDFOptions{FontPath: font, Episodes: []int{9}}, sampleEpisode(1))
	if err == nil {
		t.Fatalf("expected an error when no episode is selected")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("partial file should be removed, stat err = %v", statErr)
	}
}

func TestSelectEpisodesAndTitle(t *testing.T) {
	docs := []markdown.EpisodeDocument{sampleEpisode(1), sampleEpisode(2), sampleEpisode(3)}
	if got := selectEpisodes(docs, nil); len(got) != 3 {
		t.Fatalf("expected all episodes, got %d", len(got))
	}
	got := selectEpisodes(docs, []int{3, 1})
	if len(got) != 2 || got[0].EpisodeNumber != 1 || got[1].EpisodeNumber != 3 {
		t.Fatalf("unexpected selection %+v", got)
	}
	if title := documentTitle("山海", docs[:1]); title != "山海 分镜 E01" {
		t.Fatalf("unexpected title %q", title)
	}
	if title := documentTitle("", docs); title != "分镜" {
		t.Fatalf("unexpected title %q", title)
	}
}
