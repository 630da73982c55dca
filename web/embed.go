// Package web embeds the dashboard pages and their static assets.
package web

import "embed"

// TemplatesFS holds the page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the dashboard script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
