/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/version"
)

// Document kinds accepted by parse and render.
const (
	docScript  = "script"
	docAssets  = "assets"
	docEpisode = "episode"
)

func newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "parse <script|assets|episode> <file|->",
		Short:       "Parse a markdown document and print it as JSON",
		Args:        cobra.ExactArgs(2),
		Annotations: skipConfigAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := dialectFlag(cmd, "dialect")
			if err != nil {
				return err
			}
			md, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			switch args[0] {
			case docScript:
				return writeJSON(cmd, markdown.ParseScript(md))
			case docAssets:
				return writeJSON(cmd, markdown.ParseAssetListAs(md, dialect))
			case docEpisode:
				return writeJSON(cmd, markdown.ParseEpisodeAs(md, dialect))
			}
			return unknownKind(args[0])
		},
	}
	cmd.Flags().String("dialect", "auto", "Dialect of the input: auto, inline or quoted")
	return cmd
}

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "render <script|assets|episode> <file|->",
		Short:       "Render a JSON document (as printed by parse) back to markdown",
		Args:        cobra.ExactArgs(2),
		Annotations: skipConfigAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := dialectFlag(cmd, "dialect")
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var md string
			switch args[0] {
			case docScript:
				var doc markdown.ScriptDocument
				if err := decodeDocument(raw, &doc); err != nil {
					return err
				}
				md = markdown.SerializeScript(doc)
			case docAssets:
				var doc markdown.AssetListDocument
				if err := decodeDocument(raw, &doc); err != nil {
					return err
				}
				md = markdown.SerializeAssetList(doc, dialect)
			case docEpisode:
				var doc markdown.EpisodeDocument
				if err := decodeDocument(raw, &doc); err != nil {
					return err
				}
				md = markdown.SerializeEpisode(doc, dialect)
			default:
				return unknownKind(args[0])
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().String("dialect", "inline", "Dialect of the output: inline or quoted")
	return cmd
}

func decodeDocument(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func unknownKind(kind string) error {
	return fmt.Errorf("unknown document kind %q (script, assets, episode)", kind)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: skipConfigAnnotation,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Seedance storyboard tool")
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
