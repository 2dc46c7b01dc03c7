// Package observability builds the process-wide logger.
package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger creates a zap logger for the given environment. Production
// gets JSON output at info level; anything else gets the development
// console encoder at debug level.
func NewLogger(environment string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
