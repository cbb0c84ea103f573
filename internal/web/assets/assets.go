// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package assets embeds the default web root served by the static files stage.
package assets

import (
	"embed"
	"io/fs"
	"os"

	"github.com/toeirei/lingo/internal/logging"
)

//go:embed wwwroot
var embedded embed.FS

// WebRoot returns the embedded web root, or dir when it names an existing
// directory on disk.
func WebRoot(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			logging.Debugf("serving static files from %s", dir)
			return os.DirFS(dir)
		}
		logging.Debugf("web root %s not found, using embedded files", dir)
	}
	sub, err := fs.Sub(embedded, "wwwroot")
	if err != nil {
		panic(err)
	}
	return sub
}
