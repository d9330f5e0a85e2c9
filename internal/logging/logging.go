// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging configures the process-wide zerolog logger and hands out
// per-component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "UWB_LOG_LEVEL"
	EnvLogNoColor = "UWB_LOG_NOCOLOR"
	EnvLogJSON    = "UWB_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	mu            sync.RWMutex
	root          = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// ConfigureRuntime sets up console logging for the cmd/* binaries.
func ConfigureRuntime() { Configure(ProfileRuntime, os.Stderr) }

// Configure installs the root logger once. Later calls are no-ops.
func Configure(profile Profile, w io.Writer) {
	configureOnce.Do(func() {
		level := zerolog.InfoLevel
		timestamps := true
		if profile == ProfileTest {
			level = zerolog.DebugLevel
			timestamps = false
		}
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}

		out := w
		if v, ok := parseBool(os.Getenv(EnvLogJSON)); !ok || !v {
			cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
			if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
				cw.NoColor = v
			}
			out = cw
		}

		ctx := zerolog.New(out).Level(level).With()
		if timestamps {
			ctx = ctx.Timestamp()
		}

		mu.Lock()
		root = ctx.Logger()
		mu.Unlock()
	})
}

// Component returns a logger tagged with the component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}

// BridgeMQTT routes paho's package loggers into zerolog. Debug output of
// paho is only enabled at trace level.
func BridgeMQTT() {
	l := Component("paho")
	mqtt.ERROR = pahoLogger{l: l, level: zerolog.ErrorLevel}
	mqtt.CRITICAL = pahoLogger{l: l, level: zerolog.ErrorLevel}
	mqtt.WARN = pahoLogger{l: l, level: zerolog.WarnLevel}
	if l.GetLevel() <= zerolog.TraceLevel {
		mqtt.DEBUG = pahoLogger{l: l, level: zerolog.TraceLevel}
	}
}

// pahoLogger implements mqtt.Logger.
type pahoLogger struct {
	l     zerolog.Logger
	level zerolog.Level
}

func (p pahoLogger) Println(v ...interface{}) {
	p.l.WithLevel(p.level).Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (p pahoLogger) Printf(format string, v ...interface{}) {
	p.l.WithLevel(p.level).Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "disabled", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
