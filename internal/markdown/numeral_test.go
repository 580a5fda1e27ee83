/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import "testing"

func TestChineseNumeralRoundTrip(t *testing.T) {
	for n := 1; n <= 99; n++ {
		s := IntToChinese(n)
		if got := ChineseToInt(s); got != n {
			t.Fatalf("ChineseToInt(IntToChinese(%d)) = %d (text %q)", n, got, s)
		}
	}
}

func TestChineseToIntForms(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"12", 12},
		{"３", 3},
		{"一", 1},
		{"十", 10},
		{"十二", 12},
		{"二十", 20},
		{"九十九", 99},
		{" 七 ", 7},
		{"廿", 0},
		{"十十", 0},
		{"一百", 0},
		{"", 0},
		{"abc", 0},
		{"二十十", 0},
		{"-3", 0},
		{"+3", 0},
		{"－3", 0},
	}
	for _, c := range cases {
		if got := ChineseToInt(c.in); got != c.want {
			t.Fatalf("ChineseToInt(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIntToChineseOutOfRange(t *testing.T) {
	if got := IntToChinese(100); got != "100" {
		t.Fatalf("expected digits for 100, got %q", got)
	}
	if got := IntToChinese(0); got != "0" {
		t.Fatalf("expected digits for 0, got %q", got)
	}
	if got := IntToChinese(21); got != "二十一" {
		t.Fatalf("unexpected rendering of 21: %q", got)
	}
}
