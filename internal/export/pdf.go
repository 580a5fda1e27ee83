/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders storyboard episodes to printable sheets.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
)

// ErrFontRequired is returned when no UTF-8 font is configured. The core
// PDF fonts cannot encode CJK text.
var ErrFontRequired = errors.New("pdf export needs a UTF-8 TrueType font (export.font_path)")

// RGB is a fill or stroke color.
type RGB struct{ R, G, B uint8 }

// PDFOptions controls storyboard PDF export. Units are millimetres on A4 portrait.
type PDFOptions struct {
	FontPath    string // TTF with CJK coverage, required
	Project     string // printed in the footer
	IncludeGrid bool   // draw cell borders around every table cell
	HeaderFill  RGB
	Episodes    []int // if empty, export every episode given
}

const (
	fontFamily = "storyboard"
	lineH      = 6.0
)

// EpisodePDF writes one A4 page per episode to w.
func EpisodePDF(w io.Writer, opt PDFOptions, docs ...markdown.EpisodeDocument) error {
	if strings.TrimSpace(opt.FontPath) == "" {
		return ErrFontRequired
	}
	if _, err := os.Stat(opt.FontPath); err != nil {
		return fmt.Errorf("pdf font: %w", err)
	}
	fill := opt.HeaderFill
	if fill == (RGB{}) {
		fill = RGB{R: 230, G: 230, B: 230}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(documentTitle(opt.Project, docs), true)
	pdf.SetAuthor("Seedance storyboard", true)
	pdf.AddUTF8Font(fontFamily, "", opt.FontPath)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "", 8)
		pdf.CellFormat(0, 5, strings.TrimSpace(opt.Project+"  "+strconv.Itoa(pdf.PageNo())), "", 0, "R", false, 0, "")
	})
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load pdf font: %w", err)
	}

	border := ""
	if opt.IncludeGrid {
		border = "1"
	}
	for _, doc := range selectEpisodes(docs, opt.Episodes) {
		pdf.AddPage()
		renderEpisode(pdf, doc, border, fill)
	}
	if pdf.PageCount() == 0 {
		return errors.New("no episodes to export")
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportEpisodesPDF writes the sheets to outPath, creating its directory.
func ExportEpisodesPDF(outPath string, opt PDFOptions, docs ...markdown.EpisodeDocument) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := EpisodePDF(f, opt, docs...); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return err
	}
	return f.Close()
}

func renderEpisode(pdf *gofpdf.Fpdf, doc markdown.EpisodeDocument, border string, fill RGB) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont(fontFamily, "", 16)
	pdf.CellFormat(width, 10, fmt.Sprintf("E%02d - %s", doc.EpisodeNumber, doc.Title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(doc.AssetSlots) > 0 {
		heading(pdf, "素材上传清单")
		cols := []float64{25, 30, width - 55}
		headerRow(pdf, cols, fill, "槽位", "素材ID", "说明")
		for _, s := range doc.AssetSlots {
			label := "图片"
			if s.SlotType == markdown.SlotVideo {
				label = "视频"
			}
			row(pdf, cols, border, label+strconv.Itoa(s.SlotNumber), s.AssetCode, s.Description)
		}
		pdf.Ln(3)
	}

	if doc.StyleLine != "" {
		heading(pdf, "画面风格")
		paragraph(pdf, width, doc.StyleLine)
	}

	if len(doc.TimeSlots) > 0 {
		heading(pdf, "分镜时段")
		cols := []float64{20, 35, width - 55}
		headerRow(pdf, cols, fill, "时段", "运镜", "画面")
		for _, ts := range doc.TimeSlots {
			row(pdf, cols, border, fmt.Sprintf("%d-%ds", ts.StartSecond, ts.EndSecond), ts.CameraMovement, ts.Description)
		}
		pdf.Ln(3)
	}

	for _, sec := range []struct{ label, text string }{
		{"音效设计", doc.SoundDesign},
		{"参考", doc.ReferenceList},
		{"尾帧描述", doc.EndFrameDescription},
	} {
		if sec.text == "" {
			continue
		}
		heading(pdf, sec.label)
		paragraph(pdf, width, sec.text)
	}
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
}

func paragraph(pdf *gofpdf.Fpdf, width float64, text string) {
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(width, lineH, text, "", "L", false)
	pdf.Ln(2)
}

func headerRow(pdf *gofpdf.Fpdf, cols []float64, fill RGB, labels ...string) {
	setFillColor(pdf, fill)
	pdf.SetFont(fontFamily, "", 10)
	for i, l := range labels {
		pdf.CellFormat(cols[i], lineH+1, l, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// row draws one table row. The last column wraps and sets the row height.
func row(pdf *gofpdf.Fpdf, cols []float64, border string, cells ...string) {
	last := len(cols) - 1
	lines := pdf.SplitText(cells[last], cols[last])
	h := lineH * float64(max(1, len(lines)))
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
	}
	for i := 0; i < last; i++ {
		pdf.CellFormat(cols[i], h, cells[i], border, 0, "C", false, 0, "")
	}
	pdf.MultiCell(cols[last], lineH, strings.Join(lines, "\n"), border, "L", false)
}

func selectEpisodes(docs []markdown.EpisodeDocument, numbers []int) []markdown.EpisodeDocument {
	if len(numbers) == 0 {
		return docs
	}
	want := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	var out []markdown.EpisodeDocument
	for _, d := range docs {
		if want[d.EpisodeNumber] {
			out = append(out, d)
		}
	}
	return out
}

func documentTitle(project string, docs []markdown.EpisodeDocument) string {
	title := "分镜"
	if project != "" {
		title = project + " " + title
	}
	if len(docs) == 1 {
		title += fmt.Sprintf(" E%02d", docs[0].EpisodeNumber)
	}
	return title
}

func setFillColor(pdf *gofpdf.Fpdf, c RGB) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
