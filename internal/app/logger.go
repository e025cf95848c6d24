package app

import (
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// NewLogger builds the process logger.  The dev environment gets a
// human-readable console writer; everything else logs JSON to stdout.  The
// global zerolog logger is replaced so packages that log through
// zerolog/log share the configuration.
func NewLogger(env, level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(level)
    if err != nil || level == "" {
        lvl = zerolog.InfoLevel
    }
    zerolog.TimeFieldFormat = time.RFC3339Nano

    var w io.Writer = os.Stdout
    if env == "dev" {
        w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
    }
    logger := zerolog.New(w).Level(lvl).With().Timestamp().Str("env", env).Logger()
    log.Logger = logger
    zerolog.DefaultContextLogger = &logger
    return logger
}
