package web

import "embed"

// Templates holds the report documents rendered by internal/view.
//
//go:embed templates/reports/*.html
var Templates embed.FS
