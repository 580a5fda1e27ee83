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

// Section is one heading occurrence and the text it owns.
// Key and Title are the first and second capture groups of the heading pattern (empty when absent).
// Text spans [Start, End): from the heading line to the next heading or the end of the document.
type Section struct {
	Key   string
	Title string
	Start int
	End   int
	Text  string
}

// LocateSections finds every line matching heading, in document order.
// The pattern is applied line by line, so it should be anchored with ^ and $ as needed.
// Sections never overlap; no match yields nil.
func LocateSections(doc string, heading *regexp.Regexp) []Section {
	var out []Section
	offset := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		body := strings.TrimRight(line, "\r\n")
		if m := heading.FindStringSubmatch(body); m != nil {
			s := Section{Start: offset}
			if len(m) > 1 {
				s.Key = strings.TrimSpace(m[1])
			}
			if len(m) > 2 {
				s.Title = strings.TrimSpace(m[2])
			}
			out = append(out, s)
		}
		offset += len(line)
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].End = out[i+1].Start
		} else {
			out[i].End = len(doc)
		}
		out[i].Text = doc[out[i].Start:out[i].End]
	}
	return out
}

// clipAt shortens s.Text so it stops before the first line matching stop (heading line excluded).
func (s *Section) clipAt(stop *regexp.Regexp) {
	offset := 0
	for i, line := range strings.SplitAfter(s.Text, "\n") {
		if i > 0 && stop.MatchString(strings.TrimRight(line, "\r\n")) {
			s.End = s.Start + offset
			s.Text = s.Text[:offset]
			return
		}
		offset += len(line)
	}
}

// lines splits text into lines without their terminators.
func lines(text string) []string {
	ls := strings.Split(text, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimRight(l, "\r")
	}
	return ls
}

// isRule reports a markdown thematic break line.
func isRule(line string) bool {
	return strings.TrimSpace(line) == "---"
}

// isHeading reports a line starting with one or more '#'.
func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// isFence reports a fence line, tolerating a leading blockquote marker.
func isFence(line string) bool {
	return strings.HasPrefix(unquote(line), "```")
}

// unquote strips one leading "> " blockquote marker and surrounding space.
func unquote(line string) string {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, ">") {
		t = strings.TrimSpace(t[1:])
	}
	return t
}
