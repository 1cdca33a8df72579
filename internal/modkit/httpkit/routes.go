package httpkit

import (
	"net/http"
	"strings"

	pstrings "aidetect/internal/platform/strings"
)

// MountUnder mounts a subrouter at prefix and applies per-module middlewares
// an empty prefix mounts in a group on r itself; others are normalized to "/name"
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	scoped := func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	}
	if prefix == "" || prefix == "/" {
		r.Group(scoped)
		return
	}
	r.Route(pstrings.MustPrefix(prefix), scoped)
}

// MountAPI mounts a subrouter under /api/{version}, applies per-scope middleware,
// then invokes mount to register routes on that scoped router
//
// example:
//
//	httpkit.MountAPIV1(r, httpkit.CommonStack(cfg), func(api httpkit.Router) {
//	  capture.MountRoutes(api)
//	})
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountUnder(r, "/api/"+strings.TrimPrefix(version, "/"), mw, mount)
}

// MountAPIV1 is MountAPI with version v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, "v1", mw, mount)
}
