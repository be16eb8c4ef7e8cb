package views

import "embed"

// FS holds the reset page templates.
//
//go:embed *.html layouts/*.html
var FS embed.FS
