// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestNew(c *check.C) {
	for i, t := range []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{level: "info", format: "text", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{level: "debug", format: "json", enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{level: "warn", format: "text", enabled: zapcore.ErrorLevel, disabled: zapcore.InfoLevel},
	} {
		l, err := New(t.level, t.format)
		c.Assert(err, check.IsNil, check.Commentf("Test %d", i))
		c.Check(l.Core().Enabled(t.enabled), check.Equals, true, check.Commentf("Test %d", i))
		c.Check(l.Core().Enabled(t.disabled), check.Equals, false, check.Commentf("Test %d", i))
	}
}

func (s *S) TestNewErrors(c *check.C) {
	_, err := New("loud", "text")
	c.Check(err, check.ErrorMatches, `logging: invalid level "loud"`)
	_, err = New("info", "xml")
	c.Check(err, check.ErrorMatches, `logging: invalid format "xml"`)
}
