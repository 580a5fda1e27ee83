/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command seedance keeps storyboard projects in a database and their
// markdown mirror files on disk in step.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/crash"
	applog "github.com/Aimer779/Seedance2-Storyboard-Generator/internal/log"
	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	// initialize structured logging using environment defaults; the config file may refine it
	applog.Init(applog.FromEnv())

	// Commands fill this in once they know which project they work on.
	var folder storage.Folder
	defer crash.Recover(&folder)

	cmd := newRootCommand(&folder)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
