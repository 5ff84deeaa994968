package render

import (
	"log/slog"

	"github.com/xob0t/CardStencil/internal/logging"
)

// SetLogger configures the logger for render and the packages it drives
// (asset, store). By default nothing is logged. Pass nil to restore the
// silent default.
//
// Levels used:
//   - [slog.LevelDebug]: render start and finish, asset fetches
//   - [slog.LevelWarn]: fields skipped because of field-local failures
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logging.Logger()
}
