/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

// Script parameter names mapped onto project columns, in table order.
const (
	ParamStyle           = "视觉风格"
	ParamAspectRatio     = "画幅比例"
	ParamEmotionalTone   = "情感基调"
	ParamEpisodeDuration = "每集时长"
	ParamTotalEpisodes   = "总集数"
)

// ApplyParams copies known script parameters onto p. Empty values leave the column untouched.
func (p *Project) ApplyParams(params markdown.Params) {
	set := func(name string, dst *string) {
		if v, ok := params.Get(name); ok && v != "" {
			*dst = v
		}
	}
	set(ParamStyle, &p.Style)
	set(ParamAspectRatio, &p.AspectRatio)
	set(ParamEmotionalTone, &p.EmotionalTone)
	set(ParamEpisodeDuration, &p.EpisodeDuration)
	if v, ok := params.Get(ParamTotalEpisodes); ok {
		if n, ok := LeadingInt(v); ok {
			p.TotalEpisodes = n
		}
	}
}

// Params rebuilds the parameter table from the project columns.
func (p Project) Params() markdown.Params {
	var out markdown.Params
	add := func(name, v string) {
		if v != "" {
			out = append(out, markdown.Param{Name: name, Value: v})
		}
	}
	add(ParamStyle, p.Style)
	add(ParamAspectRatio, p.AspectRatio)
	add(ParamEmotionalTone, p.EmotionalTone)
	add(ParamEpisodeDuration, p.EpisodeDuration)
	if p.TotalEpisodes > 0 {
		add(ParamTotalEpisodes, strconv.Itoa(p.TotalEpisodes)+"集")
	}
	return out
}

// LeadingInt parses the digits at the start of s ("10集" -> 10).
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) || r > unicode.MaxASCII })
	if end < 0 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ScriptDocument assembles the script document of a project.
func ScriptDocument(p Project, s Script, eps []ScriptEpisode) markdown.ScriptDocument {
	doc := markdown.ScriptDocument{
		Title:        p.Name,
		Parameters:   p.Params(),
		EmotionalArc: s.EmotionalArc,
		ColorPlan:    s.ColorPlan,
	}
	for _, ep := range eps {
		doc.Episodes = append(doc.Episodes, markdown.ScriptEpisodeSummary{
			EpisodeNumber: ep.EpisodeNumber,
			Title:         ep.Title,
			EmotionalTone: ep.EmotionalTone,
			KeyPlots:      ep.KeyPlots,
			OpeningFrame:  ep.OpeningFrame,
			ClosingFrame:  ep.ClosingFrame,
		})
	}
	return doc
}

// ScriptEpisodesFrom converts parsed summaries into rows without ids.
func ScriptEpisodesFrom(doc markdown.ScriptDocument) []ScriptEpisode {
	out := make([]ScriptEpisode, 0, len(doc.Episodes))
	for _, ep := range doc.Episodes {
		out = append(out, ScriptEpisode{
			EpisodeNumber: ep.EpisodeNumber,
			Title:         ep.Title,
			EmotionalTone: ep.EmotionalTone,
			KeyPlots:      ep.KeyPlots,
			OpeningFrame:  ep.OpeningFrame,
			ClosingFrame:  ep.ClosingFrame,
		})
	}
	return out
}

// AssetListDocument assembles the asset list of a project.
func AssetListDocument(p Project, assets []Asset) markdown.AssetListDocument {
	doc := markdown.AssetListDocument{StylePrefix: p.StylePrefix}
	if doc.StylePrefix == "" {
		doc.StylePrefix = p.Style
	}
	for _, a := range assets {
		doc.Assets = append(doc.Assets, markdown.AssetRecord{
			Code:           a.Code,
			Type:           markdown.AssetTypeFromCode(a.Code),
			Name:           a.Name,
			Prompt:         a.Prompt,
			Description:    a.Description,
			UsedInEpisodes: a.UsedInEpisodes,
		})
	}
	return doc
}

// AssetsFrom converts parsed asset records into rows without ids.
func AssetsFrom(doc markdown.AssetListDocument) []Asset {
	out := make([]Asset, 0, len(doc.Assets))
	for _, a := range doc.Assets {
		row := Asset{
			Code:           a.Code,
			Name:           a.Name,
			Prompt:         a.Prompt,
			Description:    a.Description,
			UsedInEpisodes: a.UsedInEpisodes,
		}
		row.Normalize()
		out = append(out, row)
	}
	return out
}

// Document converts an episode row into its markdown document.
func (e Episode) Document() markdown.EpisodeDocument {
	doc := markdown.EpisodeDocument{
		Title:               e.Title,
		EpisodeNumber:       e.EpisodeNumber,
		StyleLine:           e.StyleLine,
		SoundDesign:         e.SoundDesign,
		ReferenceList:       e.ReferenceList,
		EndFrameDescription: e.EndFrameDescription,
		RawPrompt:           e.RawPrompt,
	}
	for _, s := range e.AssetSlots {
		doc.AssetSlots = append(doc.AssetSlots, markdown.AssetSlotRecord{
			SlotNumber:  s.SlotNumber,
			SlotType:    s.SlotType,
			AssetCode:   s.AssetCode,
			Description: s.Description,
		})
	}
	for _, ts := range e.TimeSlots {
		doc.TimeSlots = append(doc.TimeSlots, markdown.TimeSlotRecord{
			StartSecond:    ts.StartSecond,
			EndSecond:      ts.EndSecond,
			CameraMovement: ts.CameraMovement,
			Description:    ts.Description,
		})
	}
	return doc
}

// EpisodeFrom converts a parsed document into an episode row without ids.
// The raw markdown is kept as given.
func EpisodeFrom(doc markdown.EpisodeDocument, raw string) Episode {
	e := Episode{
		EpisodeNumber:       doc.EpisodeNumber,
		Title:               doc.Title,
		RawMarkdown:         raw,
		StyleLine:           doc.StyleLine,
		SoundDesign:         doc.SoundDesign,
		ReferenceList:       doc.ReferenceList,
		EndFrameDescription: doc.EndFrameDescription,
		RawPrompt:           doc.RawPrompt,
	}
	for _, s := range doc.AssetSlots {
		e.AssetSlots = append(e.AssetSlots, AssetSlot{
			SlotNumber:  s.SlotNumber,
			SlotType:    s.SlotType,
			AssetCode:   s.AssetCode,
			Description: s.Description,
		})
	}
	for _, ts := range doc.TimeSlots {
		e.TimeSlots = append(e.TimeSlots, TimeSlot{
			StartSecond:    ts.StartSecond,
			EndSecond:      ts.EndSecond,
			CameraMovement: ts.CameraMovement,
			Description:    ts.Description,
		})
	}
	return e
}

// RetagTimeSlots recomputes camera tags from each slot description.
// Structured edits call it so the stored tags never drift from the text.
func (e *Episode) RetagTimeSlots() {
	for i := range e.TimeSlots {
		e.TimeSlots[i].CameraMovement = markdown.JoinCameraTags(markdown.TagCameraMovements(e.TimeSlots[i].Description))
	}
}
