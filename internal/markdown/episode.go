/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Episode markers.
const (
	MarkSound     = "【声音】"
	MarkReference = "【参考】"
	MarkSoundList = "音效设计"
)

var (
	reEpisodeTitle   = regexp.MustCompile(`^#\s+(?:E(\d+)(?:\s*[-—:：]\s*|\s*$))?(.*?)\s*$`)
	reEpisodeAnyNum  = regexp.MustCompile(`E(\d{2})`)
	reSlotTableHead  = regexp.MustCompile(`^\|\s*(素材槽|上传位置)\s*\|`)
	reSlotRow        = regexp.MustCompile(`^(\|\s*@?(?:图片|视频)(\d+)\s*\|\s*([CSP]\d{2})\s*\|\s*(.*?)\s*\|.*)$`)
	rePromptHead     = regexp.MustCompile(`(?i)^##\s*Seedance\s*Prompt\b`)
	reEndFrameStop   = regexp.MustCompile(`^##\s*尾帧`)
	reEndFrameHead   = regexp.MustCompile(`^##\s*尾帧描述`)
	reStyleStop      = regexp.MustCompile(`\d+-\d+(s|秒)|【声音】|音效设计|【参考】`)
	reInlineSlotStop = regexp.MustCompile(`\*\*\d+-\d+|【声音】|音效设计|【参考】`)
	reQuotedSlotNext = regexp.MustCompile(`^(\d+-\d+s:|音效设计|【)`)
	reSoundStart     = regexp.MustCompile(`【声音】|音效设计[：:]?`)
)

// inlineSlotMarker matches "**0-3秒画面：**" and its variants for one window.
func inlineSlotMarker(w TimeWindow) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`\*\*%d-%d(?:s|秒)(?:画面)?(?:[：:]\*\*|\*\*[：:])`, w.Start, w.End))
}

// quotedSlotMarker matches "0-3s:" for one window, not preceded by a digit.
func quotedSlotMarker(w TimeWindow) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?:^|[^\d])%d-%ds[:：]`, w.Start, w.End))
}

var slotMarkers = func() (m [len(TimeWindows)][2]*regexp.Regexp) {
	for i, w := range TimeWindows {
		m[i] = [2]*regexp.Regexp{inlineSlotMarker(w), quotedSlotMarker(w)}
	}
	return m
}()

// ParseEpisode recovers an EpisodeDocument, trying both time-slot notations.
func ParseEpisode(md string) EpisodeDocument {
	return ParseEpisodeAs(md, DialectAuto)
}

// ParseEpisodeAs parses with an explicit dialect, which restricts the
// time-slot notation to that dialect's. DialectAuto tries the inline
// notation first and then the quoted one, per window.
func ParseEpisodeAs(md string, dialect Dialect) EpisodeDocument {
	var doc EpisodeDocument
	doc.EpisodeNumber, doc.Title = episodeHeading(md)
	doc.AssetSlots = episodeSlots(md)

	prompt, ok := promptSection(md)
	if ok {
		doc.RawPrompt = prompt
		doc.StyleLine = styleLine(prompt)
		for i, w := range TimeWindows {
			text := slotText(prompt, i, dialect)
			if text == "" {
				continue
			}
			doc.TimeSlots = append(doc.TimeSlots, TimeSlotRecord{
				StartSecond:    w.Start,
				EndSecond:      w.End,
				CameraMovement: JoinCameraTags(TagCameraMovements(text)),
				Description:    text,
			})
		}
		doc.SoundDesign = soundDesign(prompt)
		doc.ReferenceList = referenceList(prompt)
	}
	doc.EndFrameDescription = endFrame(md)
	return doc
}

func episodeHeading(md string) (int, string) {
	num, title := 0, ""
	for _, l := range lines(md) {
		if !reLevel1Heading.MatchString(l) {
			continue
		}
		if m := reEpisodeTitle.FindStringSubmatch(l); m != nil {
			num, _ = strconv.Atoi(m[1])
			title = m[2]
			break
		}
	}
	if num == 0 {
		if m := reEpisodeAnyNum.FindStringSubmatch(md); m != nil {
			num, _ = strconv.Atoi(m[1])
		}
	}
	return num, title
}

// episodeSlots reads the upload table from its header to the next rule or heading.
func episodeSlots(md string) []AssetSlotRecord {
	ls := lines(md)
	start := -1
	for i, l := range ls {
		if reSlotTableHead.MatchString(strings.TrimSpace(l)) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	end := len(ls)
	for i := start + 1; i < len(ls); i++ {
		if isRule(ls[i]) || isHeading(ls[i]) {
			end = i
			break
		}
	}
	var slots []AssetSlotRecord
	for _, row := range TableRows(strings.Join(ls[start:end], "\n"), reSlotRow) {
		n, _ := strconv.Atoi(row[1])
		kind := SlotImage
		if strings.Contains(row[0], "视频") {
			kind = SlotVideo
		}
		slots = append(slots, AssetSlotRecord{SlotNumber: n, SlotType: kind, AssetCode: row[2], Description: row[3]})
	}
	return slots
}

// promptSection returns the trimmed body of "## Seedance Prompt" up to the next rule
// (outside a fence) or "## 尾帧" heading. A fenced body is unwrapped.
func promptSection(md string) (string, bool) {
	ls := lines(md)
	start := -1
	for i, l := range ls {
		if rePromptHead.MatchString(strings.TrimSpace(l)) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}
	var body []string
	inFence := false
	for _, l := range ls[start:] {
		if reEndFrameStop.MatchString(strings.TrimSpace(l)) {
			break
		}
		if isFence(l) {
			inFence = !inFence
		} else if !inFence && isRule(l) {
			break
		}
		body = append(body, l)
	}
	content := strings.TrimSpace(strings.Join(body, "\n"))
	if strings.Contains(content, "```") {
		content = FencedContent(content)
	}
	return content, true
}

func styleLine(prompt string) string {
	var parts []string
	for _, l := range lines(prompt) {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if reStyleStop.MatchString(t) {
			break
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// slotText finds the description of window i in the prompt body.
func slotText(prompt string, i int, dialect Dialect) string {
	if dialect != DialectQuoted {
		if t := inlineSlotText(prompt, slotMarkers[i][0]); t != "" || dialect == DialectInline {
			return t
		}
	}
	return quotedSlotText(prompt, slotMarkers[i][1])
}

// inlineSlotText takes everything after the bold marker up to the next window marker or sound/reference marker.
func inlineSlotText(prompt string, marker *regexp.Regexp) string {
	loc := marker.FindStringIndex(prompt)
	if loc == nil {
		return ""
	}
	rest := prompt[loc[1]:]
	if stop := reInlineSlotStop.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.TrimSpace(rest)
}

// quotedSlotText takes the rest of the marker line plus continuation lines up to the
// next "N-Ms:" line, the sound list or a 【 marker line.
func quotedSlotText(prompt string, marker *regexp.Regexp) string {
	ls := lines(prompt)
	for i, l := range ls {
		loc := marker.FindStringIndex(l)
		if loc == nil {
			continue
		}
		parts := []string{l[loc[1]:]}
		for _, next := range ls[i+1:] {
			if reQuotedSlotNext.MatchString(strings.TrimLeft(next, " \t")) {
				break
			}
			parts = append(parts, next)
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return ""
}

// soundDesign returns the text after the sound marker up to 【参考】, one entry per line,
// list dashes stripped and entries joined by " | ".
func soundDesign(prompt string) string {
	loc := reSoundStart.FindStringIndex(prompt)
	if loc == nil {
		return ""
	}
	rest := prompt[loc[1]:]
	if i := strings.Index(rest, MarkReference); i >= 0 {
		rest = rest[:i]
	}
	var parts []string
	for _, l := range lines(rest) {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "-") {
			t = strings.TrimSpace(t[1:])
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " | ")
}

func referenceList(prompt string) string {
	i := strings.Index(prompt, MarkReference)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(MarkReference):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// endFrame returns the "## 尾帧描述" body up to a rule, a heading or a "*分镜" trailing note.
func endFrame(md string) string {
	ls := lines(md)
	for i, l := range ls {
		if !reEndFrameHead.MatchString(strings.TrimSpace(l)) {
			continue
		}
		var body []string
		for _, next := range ls[i+1:] {
			t := strings.TrimSpace(next)
			if isRule(t) || isHeading(t) || strings.HasPrefix(t, "*分镜") {
				break
			}
			body = append(body, next)
		}
		return strings.TrimSpace(strings.Join(body, "\n"))
	}
	return ""
}

// SerializeEpisode renders doc in the given dialect (DialectAuto renders inline).
func SerializeEpisode(doc EpisodeDocument, dialect Dialect) string {
	dialect = dialect.Resolve()
	var b strings.Builder
	fmt.Fprintf(&b, "# E%02d - %s\n\n", doc.EpisodeNumber, doc.Title)
	b.WriteString("## 素材上传清单\n\n")

	if dialect == DialectQuoted {
		b.WriteString("| 上传位置 | 素材ID | 素材描述 |\n|----------|--------|----------|\n")
	} else {
		b.WriteString("| 素材槽 | 文件 | 说明 |\n|--------|------|------|\n")
	}
	for _, s := range doc.AssetSlots {
		ref := slotLabel(s.SlotType) + strconv.Itoa(s.SlotNumber)
		if dialect == DialectQuoted {
			ref = "@" + ref
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", ref, s.AssetCode, escapeCell(s.Description))
	}
	b.WriteString("\n---\n\n## Seedance Prompt\n\n")

	if dialect == DialectQuoted {
		b.WriteString("```\n")
		fmt.Fprintf(&b, "%s\n\n", doc.StyleLine)
		for _, ts := range doc.TimeSlots {
			fmt.Fprintf(&b, "%d-%ds: %s\n\n", ts.StartSecond, ts.EndSecond, ts.Description)
		}
		if doc.SoundDesign != "" {
			fmt.Fprintf(&b, "%s：\n", MarkSoundList)
			for _, part := range strings.Split(doc.SoundDesign, " | ") {
				fmt.Fprintf(&b, "- %s\n", part)
			}
		}
		if doc.ReferenceList != "" {
			fmt.Fprintf(&b, "%s%s\n", MarkReference, doc.ReferenceList)
		}
		b.WriteString("```\n")
	} else {
		fmt.Fprintf(&b, "%s\n\n", doc.StyleLine)
		for _, ts := range doc.TimeSlots {
			fmt.Fprintf(&b, "**%d-%d秒画面：**\n%s\n\n", ts.StartSecond, ts.EndSecond, ts.Description)
		}
		if doc.SoundDesign != "" {
			fmt.Fprintf(&b, "%s%s\n", MarkSound, doc.SoundDesign)
		}
		if doc.ReferenceList != "" {
			fmt.Fprintf(&b, "%s%s\n", MarkReference, doc.ReferenceList)
		}
	}

	b.WriteString("\n---\n\n## 尾帧描述\n\n")
	fmt.Fprintf(&b, "%s\n", doc.EndFrameDescription)
	return b.String()
}

func slotLabel(t SlotType) string {
	if t == SlotVideo {
		return "视频"
	}
	return "图片"
}
