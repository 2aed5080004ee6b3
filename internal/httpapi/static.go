package httpapi

import (
	"embed"
	"net/http"

	"github.com/gorilla/mux"
)

//go:embed web/index.html web/app.js web/style.css
var webAssets embed.FS

var staticFiles = map[string]struct {
	name        string
	contentType string
}{
	"/":           {"web/index.html", "text/html; charset=utf-8"},
	"/index.html": {"web/index.html", "text/html; charset=utf-8"},
	"/app.js":     {"web/app.js", "text/javascript; charset=utf-8"},
	"/style.css":  {"web/style.css", "text/css; charset=utf-8"},
}

// registerStatic serves the bundled review page. Paths outside the fixed set
// fall through to the router's 404.
func registerStatic(router *mux.Router) {
	for path, file := range staticFiles {
		data, err := webAssets.ReadFile(file.name)
		if err != nil {
			panic("httpapi: missing embedded asset " + file.name)
		}
		contentType := file.contentType
		router.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write(data)
		}).Methods(http.MethodGet, http.MethodHead)
	}
}
