package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/config"
)

var logLevelMap = map[api.LogLevel]zerolog.Level{
	api.LogDebug: zerolog.DebugLevel,
	api.LogInfo:  zerolog.InfoLevel,
	api.LogWarn:  zerolog.WarnLevel,
	api.LogError: zerolog.ErrorLevel,
	api.LogFatal: zerolog.FatalLevel,
}

func getConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	writer := zerolog.ConsoleWriter{Out: out}
	writer.TimeFormat = "02.01.2006 15:04:05 MST"
	writer.PartsOrder = []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.CallerFieldName,
		zerolog.MessageFieldName,
	}

	writer.FormatFieldValue = func(value interface{}) string {
		str, ok := value.(string)
		if ok && strings.Contains(str, "\\n") && strings.Contains(str, "\\t") {
			// unquote values that contain line breaks and tabs because they're most likely stack traces
			unquoted, err := strconv.Unquote(str)
			if err == nil {
				return unquoted
			}
		}

		return fmt.Sprintf("%s", value)
	}

	writer.FormatCaller = func(caller interface{}) string {
		callerStr, ok := caller.(string)
		if !ok {
			return ""
		}

		parts := strings.SplitN(callerStr, ":", 3)
		if len(parts) == 1 {
			return parts[0]
		}

		if len(parts) == 3 {
			parts[0] = parts[0] + ":" + parts[1]
			parts[1] = parts[2]
		}

		wd, err := os.Getwd()
		if err != nil {
			return callerStr
		}

		rel, err := filepath.Rel(wd, parts[0])
		if err != nil {
			return callerStr
		}

		return fmt.Sprintf("\x1b[%dm%s:%s\x1b[0m \x1b[36m>\x1b[0m", 1, filepath.ToSlash(rel), parts[1])
	}

	return writer
}

// setupLogging points the global zerolog logger at stderr or the configured log file.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if cfg.Log.File != "" {
		logFile, err := os.Create(cfg.Log.File)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open log file %s", cfg.Log.File)
		}
		out = logFile
		closer = logFile
	}

	if cfg.Log.JSON {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToJSON(err, true)
		}
		log.Logger = log.Output(out)
	} else {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToString(err, true)
		}

		writer := getConsoleWriter(out)
		writer.NoColor = cfg.Log.File != ""
		log.Logger = log.Output(writer)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Logger = log.Logger.With().Caller().Stack().Logger()
	return closer, nil
}

func logCallback(level api.LogLevel, msg string, args ...interface{}) {
	log.WithLevel(logLevelMap[level]).CallerSkipFrame(2).Msgf(msg, args...)
}
