package harvester

import "github.com/isseis/go-site-file-harvester/logger"

// loggerAdapter adapts logger.Logger to harvester.Logger interface.
// Fields attached with With are carried into every record and into the webhook buffer.
type loggerAdapter struct {
	logger logger.Logger
}

// NewLoggerAdapter creates a new adapter that wraps logger.Logger.
// Optional key/value args are attached to every record, for example a run id.
func NewLoggerAdapter(log logger.Logger, args ...any) Logger {
	if len(args) > 0 {
		log = log.With(args...)
	}
	return &loggerAdapter{logger: log}
}

// With returns an adapter that adds args to every record.
func (a *loggerAdapter) With(args ...any) Logger {
	return &loggerAdapter{logger: a.logger.With(args...)}
}

func (a *loggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

func (a *loggerAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *loggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *loggerAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}
