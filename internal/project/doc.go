// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package project models the virtual file tree built up during project
// mode. The tree is a sum type: a node is either a File holding content
// or a Dir holding named children. Updates arrive as flat path/content
// pairs and are merged into the tree one entry at a time; an entry that
// would turn an existing directory into a file (or vice versa) is
// rejected without disturbing the rest of the batch.
package project
