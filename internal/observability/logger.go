package observability

import (
	"fmt"

	"github.com/tphakala/ecocarto/internal/logger"
)

// GetLogger returns the observability module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}

// promErrorLogger routes promhttp errors to the module logger
type promErrorLogger struct{}

func (promErrorLogger) Println(v ...any) {
	GetLogger().Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
