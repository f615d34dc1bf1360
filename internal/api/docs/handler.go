package docs

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const (
	uiPath       = "/docs/index.html"
	documentPath = "/docs/swagger.yaml"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// RegisterRoutes mounts Swagger UI under /docs. The UI loads the
// conversation API document compiled into the binary.
func RegisterRoutes(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, uiPath, http.StatusFound)
	})
	r.Get(documentPath, serveDocument)
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL(documentPath),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DeepLinking(true),
	))
}

func serveDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(swaggerYAML)
}
