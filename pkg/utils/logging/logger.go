package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultDir is where run logs are written when no directory is configured
const DefaultDir = "logs"

// Options controls where and how verbosely the scheduler logs
type Options struct {
	// Env prefixes the log file name
	Env string

	// Dir holds the JSON log files (DefaultDir when empty)
	Dir string

	// Debug lowers the console level to Debug so scheduler traces are printed
	Debug bool
}

// InitLogger builds a zap logger that writes human-readable output to stdout and a JSON
// file per run under opts.Dir. The file always receives Debug output.
// The returned cleanup flushes the logger and closes the file.
func InitLogger(opts Options) (*zap.Logger, func(), error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	env := opts.Env
	if env == "" {
		env = "dev"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	// One file per run, named after the environment and start time
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := filepath.Join(dir, fmt.Sprintf("%s_%s.log", env, timestamp))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleLevel := zapcore.InfoLevel
	if opts.Debug {
		consoleLevel = zapcore.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stdout), consoleLevel),
		zapcore.NewCore(fileEncoder(), zapcore.AddSync(logFile), zapcore.DebugLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("env", env))

	cleanup := func() {
		_ = logger.Sync()
		_ = logFile.Close()
	}
	return logger, cleanup, nil
}

// consoleEncoder is coloured and short for terminals
func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
