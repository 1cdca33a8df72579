package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"aidetect/internal/platform/config"
	"aidetect/internal/platform/net/middleware"
)

// CommonStack returns the baseline API middleware slice, tuned from CORE_API_*
func CommonStack(cfg config.Conf) []func(http.Handler) http.Handler {
	api := cfg.Prefix("CORE_API_")
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),

		middleware.RecoverJSON,
		middleware.NoCache(),

		middleware.AccessLogZerolog(middleware.AccessLogOptions{
			Slow: api.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
		}),

		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: api.MayCSV("CORS_ORIGINS", nil),
		}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes(),
		middleware.Timeout(api.MayDuration("REQUEST_TIMEOUT", 30*time.Second)),
	}
}
