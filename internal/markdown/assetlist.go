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

// Asset list labels.
const (
	LabelDescription = "画面描述"
	LabelPrompt      = "生成提示词"
	stylePrefixMark  = "风格前缀"
)

var (
	reAssetHead      = regexp.MustCompile(`^###\s+([CSP]\d{2})\s*[—–-]\s*(.*?)\s*$`)
	reAssetStop      = regexp.MustCompile(`^##[^#]`)
	reAssetUsageRow  = regexp.MustCompile(`^\|\s*([CSP]\d{2})\s*\|[^|]*\|[^|]*\|([^|]*)\|`)
	reSummaryRow     = regexp.MustCompile(`^\|\s*(角色素材|场景素材|道具素材|角色|场景|道具)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|`)
	reEpisodeListSep = regexp.MustCompile(`[,，、]`)
)

// quotedMarkers are the asset-list labels that identify the quoted dialect.
var quotedMarkers = []string{
	"> **" + LabelDescription + "**",
	"> **" + LabelPrompt + "**",
}

// quotedEpisodeMarkers identify a quoted episode: its upload table and slot references.
var quotedEpisodeMarkers = []string{
	"| 上传位置 |",
	"@图片",
	"@视频",
}

// SniffDialect guesses the dialect of a whole asset list from fixed marker substrings.
// It is a global heuristic: a document mixing both styles is classified as quoted.
func SniffDialect(md string) Dialect {
	return sniff(md, quotedMarkers)
}

// SniffEpisodeDialect is SniffDialect for episode storyboards.
func SniffEpisodeDialect(md string) Dialect {
	return sniff(md, quotedEpisodeMarkers)
}

func sniff(md string, markers []string) Dialect {
	for _, m := range markers {
		if strings.Contains(md, m) {
			return DialectQuoted
		}
	}
	return DialectInline
}

var assetGroups = []struct {
	Type    AssetType
	Heading string
	Label   string
}{
	{AssetCharacter, "角色类素材 (Characters)", "角色"},
	{AssetScene, "场景类素材 (Scenes)", "场景"},
	{AssetProp, "道具类素材 (Props)", "道具"},
}

func assetTypeLabel(t AssetType) string {
	for _, g := range assetGroups {
		if g.Type == t {
			return g.Label
		}
	}
	return string(t)
}

// ParseAssetList recovers an AssetListDocument, sniffing the dialect.
func ParseAssetList(md string) AssetListDocument {
	return ParseAssetListAs(md, DialectAuto)
}

// ParseAssetListAs parses with an explicit dialect; DialectAuto sniffs.
func ParseAssetListAs(md string, dialect Dialect) AssetListDocument {
	if dialect == DialectAuto {
		dialect = SniffDialect(md)
	}
	var doc AssetListDocument
	if i := strings.Index(md, stylePrefixMark); i >= 0 {
		doc.StylePrefix = FencedContent(md[i:])
	}

	usage := make(map[string][]string)
	for _, row := range TableRows(md, reAssetUsageRow) {
		usage[row[0]] = splitEpisodeList(row[1])
	}

	for _, sec := range LocateSections(md, reAssetHead) {
		sec.clipAt(reAssetStop)
		a := AssetRecord{
			Code:           sec.Key,
			Type:           AssetTypeFromCode(sec.Key),
			Name:           sec.Title,
			UsedInEpisodes: usage[sec.Key],
		}
		if dialect == DialectQuoted {
			a.Description = QuotedBlock(sec.Text, LabelDescription)
			a.Prompt = FencedContent(sec.Text)
		} else {
			a.Prompt = proseAfterHeading(sec.Text)
		}
		doc.Assets = append(doc.Assets, a)
	}

	for _, row := range TableRows(md, reSummaryRow) {
		doc.Summary = append(doc.Summary, AssetSummaryRow{Category: row[0], Count: row[1], Usage: row[2]})
	}
	return doc
}

// proseAfterHeading joins the non-blank lines after the heading line, up to the next heading or rule.
func proseAfterHeading(section string) string {
	ls := lines(section)
	if len(ls) == 0 {
		return ""
	}
	var parts []string
	for _, l := range ls[1:] {
		t := strings.TrimSpace(l)
		if isHeading(t) || isRule(t) {
			break
		}
		if t == "" || isFence(t) {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

func splitEpisodeList(s string) []string {
	var out []string
	for _, e := range reEpisodeListSep.Split(s, -1) {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// SerializeAssetList renders doc in the given dialect (DialectAuto renders inline).
// Assets are grouped character, scene, prop; the code overview table is always appended.
func SerializeAssetList(doc AssetListDocument, dialect Dialect) string {
	dialect = dialect.Resolve()
	var b strings.Builder
	b.WriteString("# 素材清单\n\n")
	if dialect == DialectQuoted {
		b.WriteString("## 统一风格前缀\n\n")
	} else {
		b.WriteString("## 风格前缀（适用于所有素材）\n\n")
	}
	fmt.Fprintf(&b, "```\n%s\n```\n\n---\n\n", doc.StylePrefix)

	sep := "-"
	if dialect == DialectQuoted {
		sep = "—"
	}
	for _, g := range assetGroups {
		var group []AssetRecord
		for _, a := range doc.Assets {
			if AssetTypeFromCode(a.Code) == g.Type {
				group = append(group, a)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", g.Heading)
		for _, a := range group {
			fmt.Fprintf(&b, "### %s %s %s\n\n", a.Code, sep, a.Name)
			if dialect == DialectQuoted {
				if a.Description != "" {
					fmt.Fprintf(&b, "> **%s**：%s\n>\n", LabelDescription, strings.ReplaceAll(a.Description, "\n", " "))
				}
				fmt.Fprintf(&b, "> **%s**：\n> ```\n", LabelPrompt)
				for _, l := range lines(a.Prompt) {
					fmt.Fprintf(&b, "> %s\n", l)
				}
				b.WriteString("> ```\n\n")
			} else {
				fmt.Fprintf(&b, "%s\n\n", a.Prompt)
			}
		}
		b.WriteString("---\n\n")
	}

	if len(doc.Summary) > 0 {
		b.WriteString("## 素材使用统计\n\n")
		b.WriteString("| 类别 | 数量 | 使用情况 |\n|------|------|----------|\n")
		for _, s := range doc.Summary {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Category, escapeCell(s.Count), escapeCell(s.Usage))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 素材编号总览\n\n")
	b.WriteString("| 编号 | 类型 | 名称 | 用于集数 |\n|------|------|------|----------|\n")
	for _, a := range doc.Assets {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			a.Code, assetTypeLabel(AssetTypeFromCode(a.Code)), escapeCell(a.Name), strings.Join(a.UsedInEpisodes, ", "))
	}
	b.WriteString("\n")
	return b.String()
}
