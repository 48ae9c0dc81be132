package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// StaticHandler serves the embedded stylesheet and any other assets
// under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The static directory is embedded at build time; a failure
		// here means a broken binary.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
