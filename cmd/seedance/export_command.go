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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/export"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
)

func newExportPDFCommand(ctx *commandContext) *cobra.Command {
	var (
		out      string
		font     string
		episodes string
		grid     bool
	)
	cmd := &cobra.Command{
		Use:   "export-pdf <project>",
		Short: "Render storyboard episodes to a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(font) == "" {
				font = cfg.Export.FontPath
			}
			numbers, err := parseEpisodeList(episodes)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				eps, err := svc.Store().ListEpisodes(c, p.ID)
				if err != nil {
					return err
				}
				if len(eps) == 0 {
					return errors.New("project has no storyboard episodes")
				}
				docs := make([]markdown.EpisodeDocument, 0, len(eps))
				for _, e := range eps {
					docs = append(docs, e.Document())
				}
				target := out
				if target == "" {
					target = svc.Folder(p).Path(p.Name + "_分镜.pdf")
				}
				opt := export.PDFOptions{FontPath: font, Project: p.Name, IncludeGrid: grid, Episodes: numbers}
				if err := export.ExportEpisodesPDF(target, opt, docs...); err != nil {
					if errors.Is(err, export.ErrFontRequired) {
						return fmt.Errorf("%w; pass --font or set SEEDANCE_PDF_FONT", err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <folder>/<name>_分镜.pdf)")
	cmd.Flags().StringVar(&font, "font", "", "UTF-8 TrueType font with CJK glyphs (default: export.font_path)")
	cmd.Flags().StringVar(&episodes, "episodes", "", "Episodes to export, e.g. 1,3-5 (default: all)")
	cmd.Flags().BoolVar(&grid, "grid", true, "Draw table cell borders")
	return cmd
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pack <project>",
		Short: "Zip a project folder for sharing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				if _, err := svc.SyncAll(c, p.ID); err != nil {
					return fmt.Errorf("sync before pack: %w", err)
				}
				target := out
				if target == "" {
					target = p.FolderName + ".zip"
				}
				n, err := export.ExportProjectBundle(c, svc.Folder(p), target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Packed %d file(s) into %s\n", n, target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <folder>.zip)")
	return cmd
}

func newUnpackCommand(ctx *commandContext) *cobra.Command {
	var noImport bool
	cmd := &cobra.Command{
		Use:   "unpack <bundle.zip>",
		Short: "Extract a project bundle into the projects root and import it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folder, n, err := export.InstallBundle(cfg.Projects.Root, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d file(s) into %s\n", n, folder)
			if noImport {
				return nil
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := svc.ImportProject(c, folder)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as project %d\n", p.FolderName, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noImport, "no-import", false, "Only extract the files")
	return cmd
}
