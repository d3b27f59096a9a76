// Package templates provides the embedded HTML templates and static assets
// for the web UI.
package templates

import "embed"

//go:embed *.html partials/*.html static/*
var FS embed.FS
