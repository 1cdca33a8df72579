// @title         aidetect API
// @version       0.1.0
// @description   Capture control, overlay inspection and ad hoc scoring

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aidetect/internal/adapters/capture/imagedir"
	"aidetect/internal/adapters/capture/synthetic"
	redistr "aidetect/internal/adapters/transport/redis"
	"aidetect/internal/platform/config"
	"aidetect/internal/platform/logger"
	phttp "aidetect/internal/platform/net/http"
	"aidetect/internal/platform/store"

	"aidetect/internal/services/api"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/feedback"
	"aidetect/internal/services/pipeline"
	"aidetect/internal/services/stream"

	"golang.org/x/sync/errgroup"
)

const serviceName = "aidetect-api"

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	lo := logger.FromEnv()
	if lo.Service == "" {
		lo.Service = serviceName
	}
	logger.Init(lo)
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// feedback store (CORE_FEEDBACK_STORE = memory | sqlite | postgres)
	st, err := store.Open(ctx, store.FromConfig(root, serviceName), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	bus, err := openBus(ctx, root)
	if err != nil {
		l.Panic().Err(err).Msg("bus open failed")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close bus")
		}
	}()

	fb := feedback.New(st.KV)
	p := pipeline.New(pipeline.Deps{
		Bus:         bus,
		Provisioner: provisioner(root),
		Feedback:    fb,
	}, pipeline.FromConfig(root))
	if err := p.Open(ctx); err != nil {
		l.Panic().Err(err).Msg("pipeline open failed")
	}

	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Router(), api.Options{
		Service:        serviceName,
		Config:         root,
		Store:          st,
		Logger:         l,
		Bus:            bus,
		Pipeline:       p,
		Feedback:       fb,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		done := make(chan struct{})
		go func() {
			p.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			l.Warn().Msg("pipeline close timed out")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("http server stopped")
		os.Exit(1)
	}
	l.Info().Msg("bye")
}

// openBus picks the transport from CORE_COORD_DRIVER
func openBus(ctx context.Context, root config.Conf) (*coord.Bus, error) {
	opt := coord.FromConfig(root)
	if opt.Driver == coord.DriverRedis {
		tr, err := redistr.Open(ctx, redistr.FromConfig(root))
		if err != nil {
			return nil, err
		}
		return coord.New(tr, opt), nil
	}
	return coord.New(coord.NewMemory(opt.MemoryBuffer), opt), nil
}

// provisioner picks the capture source from CORE_CAPTURE_DRIVER
func provisioner(root config.Conf) stream.Provisioner {
	switch root.Prefix("CORE_CAPTURE_").MayEnum("DRIVER", "synthetic", "synthetic", "imagedir") {
	case "imagedir":
		return imagedir.New(imagedir.FromConfig(root))
	default:
		return synthetic.New(synthetic.FromConfig(root))
	}
}
