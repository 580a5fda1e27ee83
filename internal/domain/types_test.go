/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

func TestParseStageAndStatus(t *testing.T) {
	if st, err := ParseStage("storyboard"); err != nil || st != StageStoryboard {
		t.Fatalf("unexpected stage parse: %q %v", st, err)
	}
	if _, err := ParseStage("editing"); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
	if st, err := ParseStageStatus("needs_revision"); err != nil || st != StatusNeedsRevision {
		t.Fatalf("unexpected status parse: %q %v", st, err)
	}
	if _, err := ParseStageStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestNewProjectDefaults(t *testing.T) {
	p := NewProject("林冲", markdown.DialectAuto)
	if p.FolderName != "林冲项目" || p.Format != markdown.DialectInline {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.AspectRatio != "9:16" || p.EpisodeDuration != "15秒" || p.Status != ProjectDraft {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestProjectParamsMapping(t *testing.T) {
	var p Project
	p.ApplyParams(markdown.Params{
		{Name: ParamTotalEpisodes, Value: "10集"},
		{Name: ParamStyle, Value: "水墨"},
		{Name: "其他", Value: "ignored"},
		{Name: ParamAspectRatio, Value: ""},
	})
	if p.Style != "水墨" || p.TotalEpisodes != 10 || p.AspectRatio != "" {
		t.Fatalf("unexpected project after ApplyParams: %+v", p)
	}
	want := markdown.Params{
		{Name: ParamStyle, Value: "水墨"},
		{Name: ParamTotalEpisodes, Value: "10集"},
	}
	if got := p.Params(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLeadingInt(t *testing.T) {
	if n, ok := LeadingInt(" 12集"); !ok || n != 12 {
		t.Fatalf("unexpected: %d %v", n, ok)
	}
	if _, ok := LeadingInt("十集"); ok {
		t.Fatalf("expected no leading digits")
	}
}

func TestAssetsFromDerivesType(t *testing.T) {
	rows := AssetsFrom(markdown.AssetListDocument{Assets: []markdown.AssetRecord{
		{Code: "s07", Type: markdown.AssetCharacter, Name: "庙"},
	}})
	if rows[0].Code != "S07" || rows[0].Type != markdown.AssetScene {
		t.Fatalf("unexpected asset row: %+v", rows[0])
	}
}

func TestEpisodeDocumentConversion(t *testing.T) {
	doc := markdown.EpisodeDocument{
		Title:         "夜奔",
		EpisodeNumber: 2,
		StyleLine:     "ink",
		AssetSlots:    []markdown.AssetSlotRecord{{SlotNumber: 1, SlotType: markdown.SlotImage, AssetCode: "C01"}},
		TimeSlots:     []markdown.TimeSlotRecord{{StartSecond: 0, EndSecond: 3, CameraMovement: "推镜头", Description: "推镜头，雪"}},
		SoundDesign:   "风 | 雪",
	}
	e := EpisodeFrom(doc, "raw")
	if e.RawMarkdown != "raw" || len(e.TimeSlots) != 1 || len(e.AssetSlots) != 1 {
		t.Fatalf("unexpected episode row: %+v", e)
	}
	if back := e.Document(); !reflect.DeepEqual(back, doc) {
		t.Fatalf("conversion mismatch: %+v vs %+v", back, doc)
	}
	e.TimeSlots[0].Description = "环绕"
	e.RetagTimeSlots()
	if e.TimeSlots[0].CameraMovement != "环绕" {
		t.Fatalf("expected retagged movement, got %q", e.TimeSlots[0].CameraMovement)
	}
}
