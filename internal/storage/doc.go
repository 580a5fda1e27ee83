/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists storyboard projects.
// Structured rows live in SQLite (default) or PostgreSQL behind one set of
// repositories with embedded migrations; writes that touch several rows run in
// one transaction and replace children by parent key. The project folder holds
// the mirrored markdown files, written atomically under a folder lock with
// timestamped backups, and a schema-validated project.json manifest.
package storage
