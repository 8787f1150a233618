// Package telemetry provides structured logging for the engine and its
// collaborators: a thin wrapper around zap giving JSON output with
// zap's production encoder settings by default, JSON output with its
// development encoder settings when requested, and a no-op logger
// when no path is configured.
package telemetry

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with the handful of events EvolvAI's core
// emits: phase transitions, constraint rejections, and audit appends.
type Logger struct {
	zap *zap.Logger
}

// NewLogger creates a Logger writing to logPath. An empty logPath
// disables logging entirely (a Nop logger is returned, never nil) so
// callers never need a nil check.
func NewLogger(logPath string, development bool) (*Logger, error) {
	if logPath == "" {
		return &Logger{zap: zap.NewNop()}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logFile),
		zapcore.InfoLevel,
	)

	return &Logger{zap: zap.New(core)}, nil
}

// Close flushes any buffered log entries.
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// PhaseTransition logs the engine entering a new phase for a tool call.
func (l *Logger) PhaseTransition(tool, phase string) {
	l.zap.Info("phase transition", zap.String("tool", tool), zap.String("phase", phase))
}

// ConstraintRejected logs a plan rejection at pre-execution time.
func (l *Logger) ConstraintRejected(tool string, errorCount int) {
	l.zap.Info("constraint rejected", zap.String("tool", tool), zap.Int("error_count", errorCount))
}

// AuditAppended logs that an audit record was written for a call.
func (l *Logger) AuditAppended(tool string, success bool) {
	l.zap.Info("audit appended", zap.String("tool", tool), zap.Bool("success", success))
}

// Warn logs a recoverable internal error (a post-execution tool-usage
// recording or language-server cache flush failure) that must not mask
// the primary tool result.
func (l *Logger) Warn(msg string, err error) {
	l.zap.Warn(msg, zap.Error(err))
}
