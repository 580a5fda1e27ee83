/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import (
	"regexp"
	"strings"
	"testing"
)

func TestLocateSectionsOrderAndExtent(t *testing.T) {
	doc := "intro\n### A1 - first\nbody a\n### B2 - second\nbody b\n"
	re := regexp.MustCompile(`^###\s+(\w+)\s*-\s*(.+)$`)
	secs := LocateSections(doc, re)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].Key != "A1" || secs[0].Title != "first" {
		t.Fatalf("unexpected first section: %+v", secs[0])
	}
	if secs[0].Start != len("intro\n") {
		t.Fatalf("unexpected start offset %d", secs[0].Start)
	}
	if secs[0].End != secs[1].Start {
		t.Fatalf("sections must be contiguous: %d vs %d", secs[0].End, secs[1].Start)
	}
	if secs[1].End != len(doc) {
		t.Fatalf("last section should run to end of document, got %d", secs[1].End)
	}
	if secs[0].Text != "### A1 - first\nbody a\n" {
		t.Fatalf("unexpected first section text: %q", secs[0].Text)
	}
	if !strings.HasPrefix(secs[1].Text, "### B2") {
		t.Fatalf("unexpected second section text: %q", secs[1].Text)
	}
}

func TestLocateSectionsNoMatch(t *testing.T) {
	if secs := LocateSections("no headings here", regexp.MustCompile(`^###`)); secs != nil {
		t.Fatalf("expected nil, got %+v", secs)
	}
}

func TestSectionClipAt(t *testing.T) {
	doc := "### 第一集：开场\ntext\n## 情感弧线\narc\n"
	secs := LocateSections(doc, reEpisodeHead)
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	s := secs[0]
	s.clipAt(reEpisodeStop)
	if s.Text != "### 第一集：开场\ntext\n" {
		t.Fatalf("unexpected clipped text: %q", s.Text)
	}
	if s.End != len("### 第一集：开场\ntext\n") {
		t.Fatalf("unexpected end offset %d", s.End)
	}
}
