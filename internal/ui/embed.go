package ui

import "embed"

// Dist embeds the query page served at / by the HTTP server.
//
//go:embed all:dist
var Dist embed.FS
