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
)

// The extractors below are the grammar rules shared by all three transcoders:
//   labeled line   **标签：** value
//   labeled list   **标签：** followed by "- item" lines
//   quoted block   > **标签**：value, continued on ">" lines
//   fenced block   ``` ... ``` (optionally inside a blockquote)
//   table row      | a | b | c |
// Every rule returns the zero value when nothing matches.

// labelMarkers lists the accepted spellings of a bold label, colon inside or outside the bold.
func labelMarkers(label string) []string {
	return []string{
		"**" + label + "：**",
		"**" + label + ":**",
		"**" + label + "**：",
		"**" + label + "**:",
	}
}

// labelValue returns the text after the label marker on line.
func labelValue(line, label string) (string, bool) {
	for _, m := range labelMarkers(label) {
		if i := strings.Index(line, m); i >= 0 {
			return strings.TrimSpace(line[i+len(m):]), true
		}
	}
	return "", false
}

// startsBlock reports lines that end a labeled value: headings, rules and other bold labels.
func startsBlock(line string) bool {
	t := strings.TrimSpace(line)
	return isHeading(t) || isRule(t) || strings.HasPrefix(t, "**")
}

// LabeledLine extracts the value of "**label：** value".
// When the value is not on the label line, the next non-blank line is used
// unless it starts another block.
func LabeledLine(section, label string) string {
	ls := lines(section)
	for i, line := range ls {
		v, ok := labelValue(line, label)
		if !ok {
			continue
		}
		if v != "" {
			return v
		}
		for _, next := range ls[i+1:] {
			t := strings.TrimSpace(next)
			if t == "" {
				continue
			}
			if startsBlock(t) {
				return ""
			}
			return t
		}
		return ""
	}
	return ""
}

// LabeledList extracts the "- item" lines following "**label：**".
// Blank and non-item lines are skipped; the list ends at the next heading, rule or label.
func LabeledList(section, label string) []string {
	ls := lines(section)
	for i, line := range ls {
		if _, ok := labelValue(line, label); !ok {
			continue
		}
		var items []string
		for _, next := range ls[i+1:] {
			t := strings.TrimSpace(next)
			if t == "" {
				continue
			}
			if startsBlock(t) {
				break
			}
			if item, ok := listItem(t); ok {
				items = append(items, item)
			}
		}
		return items
	}
	return nil
}

// listItem returns the text of a "- item" line.
func listItem(line string) (string, bool) {
	if !strings.HasPrefix(line, "-") || isRule(line) {
		return "", false
	}
	rest := line[1:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	item := strings.TrimSpace(rest)
	return item, item != ""
}

// QuotedBlock extracts "> **label**：value" together with its ">" continuation lines,
// stripping the markers and joining the parts with single spaces.
// The block ends at a non-quoted line, a fence, or the next quoted label.
func QuotedBlock(section, label string) string {
	ls := lines(section)
	for i, line := range ls {
		if !strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		v, ok := labelValue(unquote(line), label)
		if !ok {
			continue
		}
		var parts []string
		if v != "" {
			parts = append(parts, v)
		}
		for _, next := range ls[i+1:] {
			if !strings.HasPrefix(strings.TrimSpace(next), ">") {
				break
			}
			u := unquote(next)
			if strings.HasPrefix(u, "**") || strings.HasPrefix(u, "```") {
				break
			}
			if u != "" {
				parts = append(parts, u)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// FencedContent returns the trimmed content of the first fenced block in section.
// A fence opened inside a blockquote has the ">" markers stripped from its lines.
// An unclosed fence runs to the end of the section.
func FencedContent(section string) string {
	blocks := fencedBlocks(section, 1)
	if len(blocks) == 0 {
		return ""
	}
	return blocks[0]
}

// fencedBlocks returns up to limit fenced block contents (all when limit <= 0).
func fencedBlocks(section string, limit int) []string {
	var out []string
	ls := lines(section)
	for i := 0; i < len(ls); i++ {
		if !isFence(ls[i]) {
			continue
		}
		quoted := strings.HasPrefix(strings.TrimSpace(ls[i]), ">")
		var body []string
		j := i + 1
		for ; j < len(ls); j++ {
			if isFence(ls[j]) {
				break
			}
			l := ls[j]
			if quoted {
				l = stripQuote(l)
			}
			body = append(body, l)
		}
		out = append(out, strings.TrimSpace(strings.Join(body, "\n")))
		if limit > 0 && len(out) >= limit {
			return out
		}
		i = j
	}
	return out
}

// stripQuote removes a leading ">" and at most one following space, keeping indentation after it.
func stripQuote(line string) string {
	t := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(t, ">") {
		return line
	}
	t = t[1:]
	if strings.HasPrefix(t, " ") {
		t = t[1:]
	}
	return t
}

// TableRows applies row to every data row of the pipe tables in section and
// returns the trimmed capture groups of each match. Separator rows and header
// rows (a row directly followed by a separator) are skipped.
func TableRows(section string, row *regexp.Regexp) [][]string {
	var out [][]string
	ls := lines(section)
	for i, line := range ls {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "|") || isTableSeparator(t) {
			continue
		}
		if i+1 < len(ls) && isTableSeparator(strings.TrimSpace(ls[i+1])) {
			continue
		}
		m := row.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		cells := make([]string, len(m)-1)
		for k, c := range m[1:] {
			cells[k] = strings.TrimSpace(c)
		}
		out = append(out, cells)
	}
	return out
}

// isTableSeparator reports rows like "|------|:---:|".
func isTableSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") || !strings.Contains(line, "-") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// escapeCell keeps a value from breaking a pipe table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "/")
}
