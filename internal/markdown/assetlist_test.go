/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import (
	"reflect"
	"strings"
	"testing"
)

func TestAssetTypeDerivedFromCode(t *testing.T) {
	md := "# 素材清单\n\n### S07 - 主角的房间\n\n一个角色站在房间里 character portrait\n"
	doc := ParseAssetList(md)
	if len(doc.Assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(doc.Assets))
	}
	if doc.Assets[0].Type != AssetScene {
		t.Fatalf("S07 must be a scene, got %q", doc.Assets[0].Type)
	}
	for code, want := range map[string]AssetType{"C01": AssetCharacter, "P12": AssetProp, "X01": AssetCharacter, "": AssetCharacter} {
		if got := AssetTypeFromCode(code); got != want {
			t.Fatalf("AssetTypeFromCode(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestParseQuotedAssetSection(t *testing.T) {
	md := "### S01 — 庭院\n\n> **画面描述**：古代庭院\n>\n> **生成提示词**：\n```\nancient courtyard, cinematic\n```\n"
	doc := ParseAssetList(md)
	if len(doc.Assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(doc.Assets))
	}
	a := doc.Assets[0]
	if a.Description != "古代庭院" || a.Prompt != "ancient courtyard, cinematic" {
		t.Fatalf("unexpected asset: %+v", a)
	}
}

func TestParseInlineAssetListWithUsage(t *testing.T) {
	md := `# 素材清单

## 风格前缀（适用于所有素材）

` + "```" + `
chinese ink painting, muted colors
` + "```" + `

---

## 角色类素材 (Characters)

### C01 — 林冲

tall man in worn armor,
snowy background

### C02 - 陆谦

thin scheming official

---

## 素材使用统计

| 类别 | 数量 | 使用情况 |
|------|------|----------|
| 角色 | 2 | 全部集数 |

## 素材编号总览

| 编号 | 类型 | 名称 | 用于集数 |
|------|------|------|----------|
| C01 | 角色 | 林冲 | E1、E2，E3 |
| C02 | 角色 | 陆谦 | |
`
	doc := ParseAssetList(md)
	if doc.StylePrefix != "chinese ink painting, muted colors" {
		t.Fatalf("unexpected style prefix %q", doc.StylePrefix)
	}
	if len(doc.Assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(doc.Assets))
	}
	if doc.Assets[0].Prompt != "tall man in worn armor, snowy background" {
		t.Fatalf("unexpected prompt %q", doc.Assets[0].Prompt)
	}
	if doc.Assets[0].Description != "" {
		t.Fatalf("inline assets carry no description, got %q", doc.Assets[0].Description)
	}
	if !reflect.DeepEqual(doc.Assets[0].UsedInEpisodes, []string{"E1", "E2", "E3"}) {
		t.Fatalf("unexpected usage %q", doc.Assets[0].UsedInEpisodes)
	}
	if doc.Assets[1].UsedInEpisodes != nil {
		t.Fatalf("expected no usage for C02, got %q", doc.Assets[1].UsedInEpisodes)
	}
	want := []AssetSummaryRow{{Category: "角色", Count: "2", Usage: "全部集数"}}
	if !reflect.DeepEqual(doc.Summary, want) {
		t.Fatalf("unexpected summary %+v", doc.Summary)
	}
}

func assetFixture(withDescription bool) AssetListDocument {
	doc := AssetListDocument{
		StylePrefix: "chinese ink painting, muted colors",
		Assets: []AssetRecord{
			{Code: "C01", Type: AssetCharacter, Name: "林冲", Prompt: "tall man in worn armor", Description: "落魄教头", UsedInEpisodes: []string{"E1", "E2"}},
			{Code: "S07", Type: AssetScene, Name: "山神庙", Prompt: "ruined temple in snow", Description: "破败山神庙", UsedInEpisodes: []string{"E2"}},
			{Code: "P01", Type: AssetProp, Name: "花枪", Prompt: "long spear with red tassel", Description: "红缨花枪", UsedInEpisodes: []string{"E1"}},
		},
		Summary: []AssetSummaryRow{
			{Category: "角色", Count: "1", Usage: "E1-E2"},
			{Category: "场景", Count: "1", Usage: "E2"},
		},
	}
	if !withDescription {
		for i := range doc.Assets {
			doc.Assets[i].Description = ""
		}
	}
	return doc
}

func TestAssetListRoundTripQuoted(t *testing.T) {
	in := assetFixture(true)
	md := SerializeAssetList(in, DialectQuoted)
	if !strings.Contains(md, "### C01 — 林冲") || !strings.Contains(md, "## 统一风格前缀") {
		t.Fatalf("unexpected quoted layout:\n%s", md)
	}
	if SniffDialect(md) != DialectQuoted {
		t.Fatalf("serialized quoted list should sniff as quoted")
	}
	out := ParseAssetList(md)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch\nwant: %+v\ngot:  %+v\nmarkdown:\n%s", in, out, md)
	}
}

func TestAssetListRoundTripInline(t *testing.T) {
	in := assetFixture(false)
	md := SerializeAssetList(in, DialectInline)
	if !strings.Contains(md, "### S07 - 山神庙") {
		t.Fatalf("unexpected inline layout:\n%s", md)
	}
	if SniffDialect(md) != DialectInline {
		t.Fatalf("serialized inline list should sniff as inline")
	}
	out := ParseAssetList(md)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch\nwant: %+v\ngot:  %+v\nmarkdown:\n%s", in, out, md)
	}
}

func TestSerializeAssetListGroupsByCode(t *testing.T) {
	doc := AssetListDocument{Assets: []AssetRecord{
		{Code: "P01", Name: "枪", Prompt: "spear"},
		{Code: "C01", Name: "人", Prompt: "man"},
	}}
	md := SerializeAssetList(doc, DialectAuto)
	if strings.Index(md, "### C01") > strings.Index(md, "### P01") {
		t.Fatalf("characters must be emitted before props:\n%s", md)
	}
	if !strings.Contains(md, "| P01 | 道具 | 枪 |  |") {
		t.Fatalf("overview table row missing:\n%s", md)
	}
}

func TestParseDialectNames(t *testing.T) {
	for in, want := range map[string]Dialect{"inline": DialectInline, "Linchong": DialectInline, "quoted": DialectQuoted, "yashan": DialectQuoted, "": DialectAuto} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("markdown"); err != ErrUnknownDialect {
		t.Fatalf("expected ErrUnknownDialect, got %v", err)
	}
}

func TestInlineAssetListMentioningSlotsStaysInline(t *testing.T) {
	md := "# 素材清单\n\n## 角色类素材 (Characters)\n\n### C01 - 林冲\n\ntall man in worn armor\n\n以 @图片1 引用 C01，上传时填入 | 上传位置 | 列。\n"
	if got := SniffDialect(md); got != DialectInline {
		t.Fatalf("sniffed %v, want inline", got)
	}
	doc := ParseAssetList(md)
	if len(doc.Assets) != 1 || !strings.Contains(doc.Assets[0].Prompt, "tall man in worn armor") {
		t.Fatalf("prompt lost: %+v", doc.Assets)
	}
	if SniffEpisodeDialect(md) != DialectQuoted {
		t.Fatalf("episode markers should still sniff as quoted")
	}
}
