package web

import (
	"embed"
)

// staticFiles holds the viewer page and its assets.
//
//go:embed static/*
var staticFiles embed.FS
