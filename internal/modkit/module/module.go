// Package module defines the minimal contract for a modkit module
package module

import phttp "aidetect/internal/platform/net/http"

// Module is what the API composer mounts
type Module interface {
	MountRoutes(r phttp.Router)
	Name() string
}
