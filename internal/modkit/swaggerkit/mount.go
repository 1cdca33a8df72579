// Package swaggerkit mounts Swagger UI and serves an OpenAPI document assembled from module registrations
package swaggerkit

import (
	"net/http"

	phttp "aidetect/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount the Swagger UI and JSON document if enabled
func Mount(r phttp.Router, enabled bool, title, version string) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON(title, version))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("aidetect"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
