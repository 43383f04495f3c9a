package web

import "embed"

// StaticFS embeds the single-page web client (html/css/js).
//
//go:embed static
var StaticFS embed.FS
