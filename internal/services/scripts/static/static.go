package static

import "embed"

// FS exposes the scripts service static assets for HTTP serving.
//
//go:embed *.css *.js
var FS embed.FS
