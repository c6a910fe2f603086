package api

import (
	"context"
	"fmt"
)

type LogLevel int

const (
	LogDebug LogLevel = iota + 1
	LogInfo
	LogWarn
	LogError
	LogFatal
)

var levelNames = map[LogLevel]string{
	LogDebug: "debug",
	LogInfo:  "info",
	LogWarn:  "warn",
	LogError: "error",
	LogFatal: "fatal",
}

func (l LogLevel) String() string {
	name, ok := levelNames[l]
	if !ok {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return name
}

// LogCallback receives every message logged through Log.
type LogCallback func(level LogLevel, msg string, args ...interface{})

// CtxParams holds the host-provided values every extension call can reach through its context.
type CtxParams struct {
	SettingsPath string
	GamePath     string
	LogCallback  LogCallback
}

type ctxKey struct{}

func WithContext(ctx context.Context, params CtxParams) context.Context {
	return context.WithValue(ctx, ctxKey{}, params)
}

func params(ctx context.Context) CtxParams {
	val, ok := ctx.Value(ctxKey{}).(CtxParams)
	if !ok {
		return CtxParams{}
	}
	return val
}

func SettingsPath(ctx context.Context) string {
	return params(ctx).SettingsPath
}

// GamePath returns the user-configured install path override or an empty string.
func GamePath(ctx context.Context) string {
	return params(ctx).GamePath
}

// Log forwards a message to the context's log callback. Messages logged on a context without a
// callback are dropped.
func Log(ctx context.Context, level LogLevel, msg string, args ...interface{}) {
	cb := params(ctx).LogCallback
	if cb == nil {
		return
	}

	cb(level, msg, args...)
}
