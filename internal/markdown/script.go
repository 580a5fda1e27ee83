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
	"strings"
)

// Script labels.
const (
	LabelEmotionalTone = "情感基调"
	LabelKeyPlots      = "关键情节"
	LabelOpeningFrame  = "首帧画面"
	LabelClosingFrame  = "尾帧画面"
)

var (
	reDocTitle      = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	reTitleSuffix   = regexp.MustCompile(`(?i)\s*[-—]\s*(剧本|script)$`)
	reParamHeader   = regexp.MustCompile(`^\|\s*参数\s*\|\s*值\s*\|`)
	reParamRow      = regexp.MustCompile(`^\|\s*(.+?)\s*\|\s*(.*?)\s*\|`)
	reEpisodeHead   = regexp.MustCompile(`^###\s*第([一二三四五六七八九十\d０-９]+)集[：:]\s*(.*?)\s*$`)
	reEpisodeStop   = regexp.MustCompile(`^##[^#]`)
	reColorPlanRow  = regexp.MustCompile(`^\|\s*E(\d+)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|`)
	reLevel1Heading = regexp.MustCompile(`^#[^#]`)
)

// ParseScript recovers a ScriptDocument from a 剧本 document.
// Missing parts yield zero values; it never fails.
func ParseScript(md string) ScriptDocument {
	var doc ScriptDocument
	doc.Title = scriptTitle(md)
	doc.Parameters = scriptParams(md)

	for _, sec := range LocateSections(md, reEpisodeHead) {
		sec.clipAt(reEpisodeStop)
		doc.Episodes = append(doc.Episodes, ScriptEpisodeSummary{
			EpisodeNumber: ChineseToInt(sec.Key),
			Title:         sec.Title,
			EmotionalTone: LabeledLine(sec.Text, LabelEmotionalTone),
			KeyPlots:      LabeledList(sec.Text, LabelKeyPlots),
			OpeningFrame:  LabeledLine(sec.Text, LabelOpeningFrame),
			ClosingFrame:  LabeledLine(sec.Text, LabelClosingFrame),
		})
	}

	for _, row := range TableRows(md, reColorPlanRow) {
		doc.ColorPlan = append(doc.ColorPlan, ColorPlanRow{
			Episode: "E" + row[0],
			Colors:  row[1],
			Mood:    row[2],
		})
	}

	for _, block := range fencedBlocks(md, 0) {
		if strings.Contains(block, "→") {
			doc.EmotionalArc = block
			break
		}
	}
	return doc
}

func scriptTitle(md string) string {
	for _, l := range lines(md) {
		if !reLevel1Heading.MatchString(l) {
			continue
		}
		m := reDocTitle.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if reTitleSuffix.MatchString(m[1]) {
			return strings.TrimSpace(reTitleSuffix.ReplaceAllString(m[1], ""))
		}
		// A bare "# 剧本" heading is the untitled form.
		if t := strings.TrimSpace(m[1]); t != "剧本" {
			return t
		}
		return ""
	}
	return ""
}

// scriptParams reads the two-column table introduced by the "| 参数 | 值 |" header,
// up to the next rule or heading.
func scriptParams(md string) Params {
	ls := lines(md)
	start := -1
	for i, l := range ls {
		if reParamHeader.MatchString(strings.TrimSpace(l)) {
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
	var params Params
	for _, row := range TableRows(strings.Join(ls[start:end], "\n"), reParamRow) {
		if row[0] == "参数" {
			continue
		}
		params = append(params, Param{Name: row[0], Value: row[1]})
	}
	return params
}

// SerializeScript renders doc in the single script layout.
// Empty optional fields are left out.
func SerializeScript(doc ScriptDocument) string {
	var b strings.Builder
	if doc.Title == "" {
		b.WriteString("# 剧本\n\n")
	} else {
		fmt.Fprintf(&b, "# %s - 剧本\n\n", doc.Title)
	}

	b.WriteString("## 制作参数\n\n")
	b.WriteString("| 参数 | 值 |\n|------|-----|\n")
	for _, p := range doc.Parameters {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(p.Name), escapeCell(p.Value))
	}
	b.WriteString("\n---\n\n## 剧本结构\n\n")

	for _, ep := range doc.Episodes {
		fmt.Fprintf(&b, "### 第%s集：%s\n\n", IntToChinese(ep.EpisodeNumber), ep.Title)
		if ep.EmotionalTone != "" {
			fmt.Fprintf(&b, "**%s：** %s\n\n", LabelEmotionalTone, ep.EmotionalTone)
		}
		fmt.Fprintf(&b, "**%s：**\n", LabelKeyPlots)
		for _, p := range ep.KeyPlots {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
		if ep.OpeningFrame != "" {
			fmt.Fprintf(&b, "**%s：** %s\n\n", LabelOpeningFrame, ep.OpeningFrame)
		}
		if ep.ClosingFrame != "" {
			fmt.Fprintf(&b, "**%s：** %s\n\n", LabelClosingFrame, ep.ClosingFrame)
		}
		b.WriteString("---\n\n")
	}

	if doc.EmotionalArc != "" {
		fmt.Fprintf(&b, "## 情感弧线\n\n```\n%s\n```\n\n", doc.EmotionalArc)
	}

	if len(doc.ColorPlan) > 0 {
		b.WriteString("## 色彩规划\n\n")
		b.WriteString("| 集数 | 主色调 | 情绪 |\n|------|--------|------|\n")
		for _, c := range doc.ColorPlan {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Episode, escapeCell(c.Colors), escapeCell(c.Mood))
		}
		b.WriteString("\n")
	}
	return b.String()
}
