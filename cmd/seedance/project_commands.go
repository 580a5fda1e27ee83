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
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/markdown"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a project and its <name>项目 folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := dialectFlag(cmd, "dialect")
			if err != nil {
				return err
			}
			if dialect == markdown.DialectAuto {
				if dialect, err = ctx.defaultDialect(); err != nil {
					return err
				}
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := svc.CreateProject(c, args[0], dialect)
				if err != nil {
					return err
				}
				*ctx.crashFolder = svc.Folder(p)
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %d (%s) at %s\n", p.ID, p.Format, svc.Folder(p).Root)
				return nil
			})
		},
	}
	cmd.Flags().String("dialect", "", "Markdown dialect for mirror files: inline or quoted")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <folder>",
		Short: "Import an existing project folder from the projects root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := svc.ImportProject(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as project %d (%d episodes, %s)\n", p.FolderName, p.ID, p.TotalEpisodes, p.Format)
				return nil
			})
		},
	}
}

func newImportAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-all",
		Short: "Import every *项目 folder that is not in the database yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				res, err := svc.ImportAll(c)
				if err != nil {
					return err
				}
				var rows [][]string
				for _, name := range res.Imported {
					rows = append(rows, []string{name, "imported", ""})
				}
				for _, name := range res.Skipped {
					rows = append(rows, []string{name, "skipped", "already imported"})
				}
				failed := make([]string, 0, len(res.Failed))
				for name := range res.Failed {
					failed = append(failed, name)
				}
				sort.Strings(failed)
				for _, name := range failed {
					rows = append(rows, []string{name, "failed", res.Failed[name].Error()})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No project folders found")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Folder", "Result", "Detail"}, rows, nil))
				fmt.Fprintf(cmd.OutOrStdout(), "Batch %s\n", res.Batch)
				if len(failed) > 0 {
					return fmt.Errorf("%d folder(s) failed to import", len(failed))
				}
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <project>",
		Short: "Rewrite the project's markdown files from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				written, err := svc.SyncAll(c, p.ID)
				if err != nil {
					return err
				}
				for _, path := range written {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) written\n", len(written))
				return nil
			})
		},
	}
}

type projectView struct {
	Project  domain.Project         `json:"project"`
	Stages   []domain.PipelineStage `json:"stages"`
	Assets   []domain.Asset         `json:"assets"`
	Episodes []domain.Episode       `json:"episodes"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [project]",
		Short: "List projects, or show one project's parameters, stages, assets and episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				if len(args) == 0 {
					return listProjects(c, cmd, svc, asJSON)
				}
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				view := projectView{Project: p}
				if view.Stages, err = svc.Store().ListStages(c, p.ID); err != nil {
					return err
				}
				if view.Assets, err = svc.Store().ListAssets(c, p.ID); err != nil {
					return err
				}
				if view.Episodes, err = svc.Store().ListEpisodes(c, p.ID); err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				printProject(cmd, svc, view)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")
	return cmd
}

func listProjects(c context.Context, cmd *cobra.Command, svc *reconcile.Service, asJSON bool) error {
	list, err := svc.Store().ListProjects(c)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Name, p.FolderName, string(p.Status),
			strconv.Itoa(p.TotalEpisodes), p.Format.String(), p.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Name", "Folder", "Status", "Episodes", "Format", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func printProject(cmd *cobra.Command, svc *reconcile.Service, v projectView) {
	out := cmd.OutOrStdout()
	p := v.Project
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, [][]string{
		{"ID", strconv.FormatInt(p.ID, 10)},
		{"Name", p.Name},
		{"Folder", svc.Folder(p).Root},
		{"Status", string(p.Status)},
		{"Format", p.Format.String()},
		{"Style", p.Style},
		{"Style prefix", p.StylePrefix},
		{"Aspect ratio", p.AspectRatio},
		{"Emotional tone", p.EmotionalTone},
		{"Episode duration", p.EpisodeDuration},
		{"Total episodes", strconv.Itoa(p.TotalEpisodes)},
	}, nil))

	stageRows := make([][]string, 0, len(v.Stages))
	for _, st := range v.Stages {
		stageRows = append(stageRows, []string{string(st.Stage), string(st.Status), st.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Status", "Updated"}, stageRows, nil))

	if len(v.Assets) > 0 {
		rows := make([][]string, 0, len(v.Assets))
		for _, a := range v.Assets {
			rows = append(rows, []string{a.Code, string(a.Type), a.Name, a.Description})
		}
		fmt.Fprintln(out, renderTable([]string{"Code", "Type", "Name", "Description"}, rows, nil))
	}
	if len(v.Episodes) > 0 {
		rows := make([][]string, 0, len(v.Episodes))
		for _, e := range v.Episodes {
			rows = append(rows, []string{
				fmt.Sprintf("E%02d", e.EpisodeNumber), e.Title,
				strconv.Itoa(len(e.TimeSlots)), strconv.Itoa(len(e.AssetSlots)), e.FilePath,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Episode", "Title", "Time slots", "Asset slots", "File"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
		))
	}
}

func newStageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <project> [<stage> <status>]",
		Short: "Show or set pipeline stage statuses",
		Long: "Stages: script, assets, images, storyboard, video.\n" +
			"Statuses: pending, in_progress, completed, needs_revision.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("expected <project> or <project> <stage> <status>, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				if len(args) == 3 {
					stage, err := domain.ParseStage(args[1])
					if err != nil {
						return err
					}
					status, err := domain.ParseStageStatus(args[2])
					if err != nil {
						return err
					}
					if err := svc.Store().SetStage(c, p.ID, stage, status); err != nil {
						return err
					}
				}
				stages, err := svc.Store().ListStages(c, p.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stages))
				for _, st := range stages {
					rows = append(rows, []string{string(st.Stage), string(st.Status)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Stage", "Status"}, rows, nil))
				return nil
			})
		},
	}
}

func newPromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <project> <episode>",
		Short: "Print the Seedance prompt of one episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid episode number %q", args[1])
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				prompt, err := svc.EpisodePrompt(c, p.ID, n)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prompt)
				return nil
			})
		},
	}
}
