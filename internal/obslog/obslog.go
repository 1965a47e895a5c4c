// Package obslog centralizes the logger used across the resolver so every
// package logs through the same *zap.Logger instance and naming
// convention rather than reaching for the standard log package.
package obslog

import "go.uber.org/zap"

// Nop returns a logger that discards everything, used when the facade is
// constructed without an explicit logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Named returns logger scoped to name, or a no-op logger if logger is nil.
func Named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return Nop()
	}
	return logger.Named(name)
}
