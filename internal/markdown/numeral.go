/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var chineseDigits = [...]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}

var chineseDigitValue = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9, '十': 10,
}

// ChineseToInt converts an episode numeral ("3", "三", "十二", "二十", "九十九") to an int.
// Full-width digits are folded first. Anything outside the 1-99 table yields 0.
func ChineseToInt(text string) int {
	s := strings.TrimSpace(width.Fold.String(text))
	if s == "" {
		return 0
	}
	if s[0] == '+' || s[0] == '-' {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	r := []rune(s)
	digit := func(c rune) int {
		v := chineseDigitValue[c]
		if v == 10 {
			return 0
		}
		return v
	}
	switch len(r) {
	case 1:
		return chineseDigitValue[r[0]]
	case 2:
		switch {
		case r[0] == '十':
			if d := digit(r[1]); d > 0 {
				return 10 + d
			}
		case r[1] == '十':
			if d := digit(r[0]); d > 0 {
				return d * 10
			}
		}
	case 3:
		if r[1] == '十' {
			tens, ones := digit(r[0]), digit(r[2])
			if tens > 0 && ones > 0 {
				return tens*10 + ones
			}
		}
	}
	return 0
}

// IntToChinese is the inverse of ChineseToInt for 1-99.
// Other values are rendered as plain digits.
func IntToChinese(n int) string {
	switch {
	case n <= 0 || n > 99:
		return strconv.Itoa(n)
	case n <= 10:
		return chineseDigits[n]
	case n < 20:
		return "十" + chineseDigits[n-10]
	}
	tens, ones := n/10, n%10
	out := chineseDigits[tens] + "十"
	if ones > 0 {
		out += chineseDigits[ones]
	}
	return out
}
