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
	"fmt"
	"strings"
	"time"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

// This file defines the persistent row model of a storyboard project.
// Rows mirror the documents in package markdown; conversions live in convert.go.

var (
	ErrInvalidStage  = errors.New("invalid pipeline stage")
	ErrInvalidStatus = errors.New("invalid pipeline status")
)

// ProjectStatus is the overall state shown in project listings.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// Stage is one step of the production pipeline.
type Stage string

const (
	StageScript     Stage = "script"
	StageAssets     Stage = "assets"
	StageImages     Stage = "images"
	StageStoryboard Stage = "storyboard"
	StageVideo      Stage = "video"
)

// Stages lists the pipeline in execution order.
var Stages = []Stage{StageScript, StageAssets, StageImages, StageStoryboard, StageVideo}

// StageStatus is the state of one pipeline stage.
type StageStatus string

const (
	StatusPending       StageStatus = "pending"
	StatusInProgress    StageStatus = "in_progress"
	StatusCompleted     StageStatus = "completed"
	StatusNeedsRevision StageStatus = "needs_revision"
)

var stageStatuses = []StageStatus{StatusPending, StatusInProgress, StatusCompleted, StatusNeedsRevision}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == strings.TrimSpace(s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// ParseStageStatus validates a status name.
func ParseStageStatus(s string) (StageStatus, error) {
	for _, st := range stageStatuses {
		if string(st) == strings.TrimSpace(s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Project is a storyboard project and its production parameters.
// FolderName is the directory under the projects root holding its mirror files.
type Project struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	FolderName      string           `json:"folderName"`
	Style           string           `json:"style,omitempty"`
	StylePrefix     string           `json:"stylePrefix,omitempty"`
	AspectRatio     string           `json:"aspectRatio"`
	EmotionalTone   string           `json:"emotionalTone,omitempty"`
	EpisodeDuration string           `json:"episodeDuration"`
	TotalEpisodes   int              `json:"totalEpisodes"`
	Status          ProjectStatus    `json:"status"`
	Format          markdown.Dialect `json:"markdownFormat"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Defaults for a freshly created project.
const (
	DefaultAspectRatio     = "9:16"
	DefaultEpisodeDuration = "15秒"
)

// NewProject returns a draft project with default parameters.
// The folder name follows the "<name>项目" convention.
func NewProject(name string, format markdown.Dialect) Project {
	if format == markdown.DialectAuto {
		format = markdown.DialectInline
	}
	return Project{
		Name:            name,
		FolderName:      FolderNameFor(name),
		AspectRatio:     DefaultAspectRatio,
		EpisodeDuration: DefaultEpisodeDuration,
		Status:          ProjectDraft,
		Format:          format,
	}
}

// ProjectFolderSuffix marks directories that hold a project.
const ProjectFolderSuffix = "项目"

func FolderNameFor(name string) string {
	return strings.TrimSpace(name) + ProjectFolderSuffix
}

// Script is the one script row of a project plus the script-level fields that
// have no project column.
type Script struct {
	ID           int64                   `json:"id"`
	ProjectID    int64                   `json:"projectId"`
	RawMarkdown  string                  `json:"rawMarkdown,omitempty"`
	FilePath     string                  `json:"filePath,omitempty"`
	EmotionalArc string                  `json:"emotionalArc,omitempty"`
	ColorPlan    []markdown.ColorPlanRow `json:"colorPlan,omitempty"`
}

type ScriptEpisode struct {
	ID            int64    `json:"id"`
	ScriptID      int64    `json:"scriptId"`
	EpisodeNumber int      `json:"episodeNumber"`
	Title         string   `json:"title"`
	EmotionalTone string   `json:"emotionalTone,omitempty"`
	KeyPlots      []string `json:"keyPlots"`
	OpeningFrame  string   `json:"openingFrame,omitempty"`
	ClosingFrame  string   `json:"closingFrame,omitempty"`
}

// Asset is one generated image asset. Type is always derived from Code.
type Asset struct {
	ID             int64              `json:"id"`
	ProjectID      int64              `json:"projectId"`
	Code           string             `json:"code"`
	Type           markdown.AssetType `json:"type"`
	Name           string             `json:"name"`
	Prompt         string             `json:"prompt"`
	Description    string             `json:"description,omitempty"`
	ImagePath      string             `json:"imagePath,omitempty"`
	UsedInEpisodes []string           `json:"usedInEpisodes"`
}

// Normalize upper-cases the code and re-derives the type from it.
func (a *Asset) Normalize() {
	a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
	a.Type = markdown.AssetTypeFromCode(a.Code)
}

// Episode is one storyboard episode with its child rows.
type Episode struct {
	ID                  int64       `json:"id"`
	ProjectID           int64       `json:"projectId"`
	EpisodeNumber       int         `json:"episodeNumber"`
	Title               string      `json:"title"`
	RawMarkdown         string      `json:"rawMarkdown,omitempty"`
	FilePath            string      `json:"filePath,omitempty"`
	StyleLine           string      `json:"styleLine"`
	SoundDesign         string      `json:"soundDesign,omitempty"`
	ReferenceList       string      `json:"referenceList,omitempty"`
	EndFrameDescription string      `json:"endFrameDescription,omitempty"`
	RawPrompt           string      `json:"rawPrompt,omitempty"`
	TimeSlots           []TimeSlot  `json:"timeSlots"`
	AssetSlots          []AssetSlot `json:"assetSlots"`
}

type TimeSlot struct {
	ID             int64  `json:"id"`
	EpisodeID      int64  `json:"episodeId"`
	StartSecond    int    `json:"startSecond"`
	EndSecond      int    `json:"endSecond"`
	CameraMovement string `json:"cameraMovement,omitempty"`
	Description    string `json:"description"`
}

type AssetSlot struct {
	ID          int64             `json:"id"`
	EpisodeID   int64             `json:"episodeId"`
	SlotNumber  int               `json:"slotNumber"`
	SlotType    markdown.SlotType `json:"slotType"`
	AssetCode   string            `json:"assetCode"`
	Description string            `json:"description,omitempty"`
}

// PipelineStage is the stored status of one stage of one project.
type PipelineStage struct {
	ID        int64       `json:"id"`
	ProjectID int64       `json:"projectId"`
	Stage     Stage       `json:"stage"`
	Status    StageStatus `json:"status"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
