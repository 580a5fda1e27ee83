/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import (
	"errors"
	"strings"
)

// Dialect selects one of the two text conventions used by asset lists and episode storyboards.
//
// Inline:  bold-labeled lines and plain prose prompts (the "林冲" convention).
// Quoted:  blockquote labels and fenced prompt blocks (the "崖山" convention).
//
// DialectAuto is only meaningful for parsing; it asks the parser to sniff the document.
type Dialect string

const (
	DialectAuto   Dialect = ""
	DialectInline Dialect = "inline"
	DialectQuoted Dialect = "quoted"
)

// ErrUnknownDialect is returned by ParseDialect for names outside the known set.
var ErrUnknownDialect = errors.New("unknown markdown dialect")

// ParseDialect maps a stored or user-supplied name to a Dialect.
// The legacy folder names "linchong" and "yashan" are accepted.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "linchong":
		return DialectInline, nil
	case "quoted", "yashan":
		return DialectQuoted, nil
	case "", "auto":
		return DialectAuto, nil
	}
	return DialectAuto, ErrUnknownDialect
}

func (d Dialect) String() string {
	if d == DialectAuto {
		return "auto"
	}
	return string(d)
}

// Resolve maps DialectAuto to inline; serializers always need a concrete branch.
func (d Dialect) Resolve() Dialect {
	if d == DialectQuoted {
		return DialectQuoted
	}
	return DialectInline
}

// Param is one row of the production-parameter table.
type Param struct {
	Name  string
	Value string
}

// Params keeps table row order, which is what makes a script round-trip stable.
type Params []Param

// Get returns the value for name and whether it was present.
func (p Params) Get(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces an existing value in place or appends a new row.
func (p *Params) Set(name, value string) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: value})
}

// ScriptDocument is the typed form of a project script (剧本).
type ScriptDocument struct {
	Title        string
	Parameters   Params
	Episodes     []ScriptEpisodeSummary
	EmotionalArc string
	ColorPlan    []ColorPlanRow
}

// ScriptEpisodeSummary is one "### 第X集：title" block.
type ScriptEpisodeSummary struct {
	EpisodeNumber int
	Title         string
	EmotionalTone string
	KeyPlots      []string
	OpeningFrame  string
	ClosingFrame  string
}

type ColorPlanRow struct {
	Episode string
	Colors  string
	Mood    string
}

// AssetType is derived from the asset code prefix and never read from text.
type AssetType string

const (
	AssetCharacter AssetType = "character"
	AssetScene     AssetType = "scene"
	AssetProp      AssetType = "prop"
)

// AssetTypeFromCode maps C/S/P to its type. Any other prefix is a character.
func AssetTypeFromCode(code string) AssetType {
	if code == "" {
		return AssetCharacter
	}
	switch strings.ToUpper(code[:1]) {
	case "S":
		return AssetScene
	case "P":
		return AssetProp
	default:
		return AssetCharacter
	}
}

// AssetListDocument is the typed form of a 素材清单 file.
type AssetListDocument struct {
	StylePrefix string
	Assets      []AssetRecord
	Summary     []AssetSummaryRow
}

type AssetRecord struct {
	Code           string
	Type           AssetType
	Name           string
	Prompt         string
	Description    string
	UsedInEpisodes []string
}

type AssetSummaryRow struct {
	Category string
	Count    string
	Usage    string
}

// EpisodeDocument is the typed form of one storyboard (分镜) episode.
// EpisodeNumber 0 means the number could not be recovered.
type EpisodeDocument struct {
	Title               string
	EpisodeNumber       int
	AssetSlots          []AssetSlotRecord
	StyleLine           string
	TimeSlots           []TimeSlotRecord
	SoundDesign         string
	ReferenceList       string
	EndFrameDescription string
	RawPrompt           string
}

type SlotType string

const (
	SlotImage SlotType = "image"
	SlotVideo SlotType = "video"
)

type AssetSlotRecord struct {
	SlotNumber  int
	SlotType    SlotType
	AssetCode   string
	Description string
}

// TimeSlotRecord is one of the fixed 3-second windows.
// CameraMovement holds the comma-joined camera tags found in Description.
type TimeSlotRecord struct {
	StartSecond    int
	EndSecond      int
	CameraMovement string
	Description    string
}

// CameraTags splits CameraMovement back into its tags.
func (t TimeSlotRecord) CameraTags() []string {
	return SplitCameraTags(t.CameraMovement)
}

// TimeWindow is a [Start, End) span in seconds.
type TimeWindow struct {
	Start int
	End   int
}

// TimeWindows are the five canonical storyboard windows, in emission order.
var TimeWindows = [...]TimeWindow{
	{Start: 0, End: 3},
	{Start: 3, End: 6},
	{Start: 6, End: 9},
	{Start: 9, End: 12},
	{Start: 12, End: 15},
}
