// Package api provides the HTTP control surface for the detection pipeline
package api

import (
	"aidetect/internal/core/version"
	"aidetect/internal/platform/config"
	"aidetect/internal/platform/logger"
	phttp "aidetect/internal/platform/net/http"
	"aidetect/internal/platform/store"

	"aidetect/internal/modkit"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	"aidetect/internal/modkit/swaggerkit"

	capturemod "aidetect/internal/services/api/capture/module"
	metamod "aidetect/internal/services/api/meta/module"
	pagesmod "aidetect/internal/services/api/pages/module"
	scoremod "aidetect/internal/services/api/score/module"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/feedback"
	"aidetect/internal/services/pipeline"
)

// Options are the API options
type Options struct {
	Service        string
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Bus            *coord.Bus
	Pipeline       *pipeline.Pipeline
	Feedback       *feedback.Service
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Log:   opt.Logger,
		Cfg:   opt.Config,
		Store: opt.Store,
	}

	var metaPorts metamod.Ports
	if opt.Bus != nil {
		metaPorts.Bus = opt.Bus
	}
	mods := []module.Module{
		metamod.New(deps, opt.Service, modkit.WithPorts(metaPorts)),
		scoremod.New(deps),
	}
	if opt.Pipeline != nil {
		pages := pagesmod.Ports{Pipeline: opt.Pipeline}
		if opt.Feedback != nil {
			pages.Feedback = opt.Feedback
		}
		mods = append(mods,
			capturemod.New(deps, modkit.WithPorts(capturemod.Ports{Pipeline: opt.Pipeline})),
			pagesmod.New(deps, modkit.WithPorts(pages)),
		)
	}

	swaggerkit.Mount(r, opt.EnableSwagger, "aidetect", version.Info(opt.Service).Version)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Config), func(api httpkit.Router) {
		for _, m := range mods {
			module.Register(m.Name())
			m.MountRoutes(api)
		}
	})
}
