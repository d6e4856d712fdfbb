package airquality

import (
	"sync"

	"github.com/tphakala/ecocarto/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the airquality package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("airquality")
	})
	return serviceLogger
}
