/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
)

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store AI-generated markdown and rewrite the mirror file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "script <project> <file|->",
		Short: "Store a generated script (剧本)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				sc, err := svc.SaveGeneratedScript(c, p.ID, md)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Script saved to %s\n", sc.FilePath)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "assets <project> <file|->",
		Short: "Store a generated asset list (素材清单)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				assets, err := svc.SaveGeneratedAssets(c, p.ID, md)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d asset(s) saved\n", len(assets))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "episode <project> <episode> <file|->",
		Short: "Store a generated storyboard episode (分镜)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid episode number %q", args[1])
			}
			md, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				e, err := svc.SaveGeneratedEpisode(c, p.ID, n, md)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode E%02d saved to %s (%d time slots)\n", e.EpisodeNumber, e.FilePath, len(e.TimeSlots))
				return nil
			})
		},
	})

	return cmd
}
