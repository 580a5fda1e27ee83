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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		kinds   []string
		episode int
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "search <project> <text>",
		Short: "Search asset prompts and storyboard descriptions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := storage.SearchQuery{Text: args[1], Episode: episode, Limit: limit}
			for _, k := range kinds {
				switch kind := storage.SearchKind(k); kind {
				case storage.SearchAsset, storage.SearchTimeSlot, storage.SearchEndFrame:
					q.Kinds = append(q.Kinds, kind)
				default:
					return fmt.Errorf("unknown search kind %q (asset, time_slot, end_frame)", k)
				}
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				res, err := svc.Store().Search(c, p.ID, q)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, res)
				}
				if len(res) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				rows := make([][]string, 0, len(res))
				for _, r := range res {
					ep := ""
					if r.EpisodeNumber > 0 {
						ep = fmt.Sprintf("E%02d", r.EpisodeNumber)
					}
					rows = append(rows, []string{string(r.Kind), ep, r.Ref, r.Snippet})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Episode", "Ref", "Match"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Restrict to kinds: asset, time_slot, end_frame")
	cmd.Flags().IntVar(&episode, "episode", 0, "Restrict to one episode")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newSnapshotsCommand(ctx *commandContext) *cobra.Command {
	var (
		kind  string
		limit int
		prune int
	)
	cmd := &cobra.Command{
		Use:   "snapshots <project>",
		Short: "List or prune the raw markdown history of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sk := storage.SnapshotKind(kind)
			switch sk {
			case "", storage.SnapshotScript, storage.SnapshotAssets, storage.SnapshotEpisode:
			default:
				return fmt.Errorf("unknown snapshot kind %q (script, assets, episode)", kind)
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				if prune > 0 {
					n, err := svc.Store().PruneSnapshots(c, p.ID, prune)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d snapshot(s) removed\n", n)
					return nil
				}
				snaps, err := svc.Store().ListSnapshots(c, p.ID, sk, limit)
				if err != nil {
					return err
				}
				if len(snaps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
					return nil
				}
				rows := make([][]string, 0, len(snaps))
				for _, s := range snaps {
					ep := ""
					if s.EpisodeNumber > 0 {
						ep = fmt.Sprintf("E%02d", s.EpisodeNumber)
					}
					rows = append(rows, []string{s.UID, string(s.Kind), ep, s.TS.Local().Format("2006-01-02 15:04:05"), strconv.Itoa(len([]rune(s.Content)))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Episode", "Saved", "Chars"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to one kind: script, assets, episode")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of snapshots listed")
	cmd.Flags().IntVar(&prune, "prune", 0, "Keep only the newest N snapshots per document")
	return cmd
}
