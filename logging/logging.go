// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging constructs the zap loggers used by the tnseq commands.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to standard error at the given level.
// The format is "text" for a human readable console encoding or "json"
// for structured output.
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q", level)
	}

	var config zap.Config
	switch format {
	case "text":
		config = zap.NewDevelopmentConfig()
		enc := zap.NewDevelopmentEncoderConfig()
		enc.TimeKey = "time"
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("Jan _2 15:04:05.000")
		enc.StacktraceKey = ""
		config.EncoderConfig = enc
	case "json":
		config = zap.NewProductionConfig()
		config.Sampling = nil
	default:
		return nil, fmt.Errorf("logging: invalid format %q", format)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = true

	return config.Build()
}
