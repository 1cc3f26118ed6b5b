// Package log provides structured logging for the Buyza bot.
//
// The package wraps zerolog with a single process-wide base logger that
// carries the service name. Packages derive component loggers from it:
//
//	logger := log.WithComponent("flow")
//	logger.Info().Str("phone", phone).Msg("menu sent")
//
// Request handlers store the request ID in the context so that downstream
// code can log with it:
//
//	logger := log.FromContext(ctx)
//	logger.Warn().Err(err).Msg("reply failed")
//
// # Environment Variables
//
//   - LOG_LEVEL: zerolog level name (debug, info, warn, error)
//   - LOG_SERVICE: override the service field (default "buyza")
package log
