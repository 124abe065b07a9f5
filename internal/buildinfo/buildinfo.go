// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buildinfo exposes build-time metadata injected via -ldflags.
package buildinfo

var (
	// Version is the semantic version of the build, or "dev" for local builds.
	Version = "dev"

	// Commit is the short git commit hash the binary was built from.
	Commit = "none"

	// BuildDate is the UTC timestamp of the build.
	BuildDate = "unknown"
)
