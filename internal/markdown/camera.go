/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

import "strings"

// CameraVocabulary is the fixed list of cinematography terms recognized in slot descriptions.
// Tag output follows this order, not the order of appearance in the text.
var CameraVocabulary = []string{
	"推镜头", "拉镜头", "摇镜头", "移镜头", "跟镜头",
	"环绕镜头", "360度旋转", "升降镜头", "希区柯克变焦", "一镜到底",
	"手持晃动", "高空俯拍", "低角度仰拍", "面部特写", "中景推近",
	"镜头环绕", "镜头拉远", "俯拍", "仰拍", "环绕",
	"推近", "拉远",
}

const cameraTagSep = ", "

// TagCameraMovements returns every vocabulary term contained in text, in vocabulary order, without duplicates.
func TagCameraMovements(text string) []string {
	var tags []string
	for _, term := range CameraVocabulary {
		if strings.Contains(text, term) {
			tags = append(tags, term)
		}
	}
	return tags
}

// JoinCameraTags renders tags the way they are stored in TimeSlotRecord.CameraMovement.
func JoinCameraTags(tags []string) string {
	return strings.Join(tags, cameraTagSep)
}

// SplitCameraTags is the inverse of JoinCameraTags. It also accepts Chinese commas.
func SplitCameraTags(s string) []string {
	var tags []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' || r == '、' }) {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}
