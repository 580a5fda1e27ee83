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
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/domain"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/reconcile"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

// newEditCommand applies structured JSON edits (the shape printed by `show --json`)
// and rewrites the matching mirror file.
func newEditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply a JSON edit to a stored record and rewrite its markdown file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "asset <project> <file|->",
		Short: "Update one asset, matched by id or code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var a domain.Asset
			if err := decodeDocument(raw, &a); err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				a.ProjectID = p.ID
				if a.ID == 0 {
					found, err := findAsset(c, svc, p.ID, a.Code)
					if err != nil {
						return err
					}
					a.ID = found.ID
				}
				if err := svc.UpdateAsset(c, &a); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Asset %s updated\n", a.Code)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "episode <project> <file|->",
		Short: "Update one storyboard episode, matched by id or episode number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var e domain.Episode
			if err := decodeDocument(raw, &e); err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				e.ProjectID = p.ID
				if e.ID == 0 {
					stored, err := svc.Store().GetEpisode(c, p.ID, e.EpisodeNumber)
					if err != nil {
						return err
					}
					e.ID = stored.ID
				}
				if err := svc.UpdateEpisode(c, &e); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode E%02d updated, %s rewritten\n", e.EpisodeNumber, e.FilePath)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "script-episode <project> <file|->",
		Short: "Update one episode summary of the script, matched by id or episode number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var ep domain.ScriptEpisode
			if err := decodeDocument(raw, &ep); err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				if ep.ID == 0 {
					_, eps, err := svc.Store().GetScript(c, p.ID)
					if err != nil {
						return err
					}
					for _, stored := range eps {
						if stored.EpisodeNumber == ep.EpisodeNumber {
							ep.ID = stored.ID
							break
						}
					}
					if ep.ID == 0 {
						return fmt.Errorf("script episode %d of %s: %w", ep.EpisodeNumber, p.Name, storage.ErrNotFound)
					}
				}
				if err := svc.UpdateScriptEpisode(c, p.ID, ep); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Script episode %d updated\n", ep.EpisodeNumber)
				return nil
			})
		},
	})

	return cmd
}

func newDeleteAssetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-asset <project> <asset-id|code>",
		Short: "Remove one asset and rewrite the asset list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *reconcile.Service) error {
				p, err := ctx.resolveProject(c, svc, args[0])
				if err != nil {
					return err
				}
				id, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					a, ferr := findAsset(c, svc, p.ID, args[1])
					if ferr != nil {
						return ferr
					}
					id = a.ID
				}
				if err := svc.DeleteAsset(c, p.ID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Asset %s deleted\n", args[1])
				return nil
			})
		},
	}
}

func findAsset(ctx context.Context, svc *reconcile.Service, projectID int64, code string) (domain.Asset, error) {
	assets, err := svc.Store().ListAssets(ctx, projectID)
	if err != nil {
		return domain.Asset{}, err
	}
	for _, a := range assets {
		if strings.EqualFold(a.Code, strings.TrimSpace(code)) {
			return a, nil
		}
	}
	return domain.Asset{}, fmt.Errorf("asset %q: %w", code, storage.ErrNotFound)
}
