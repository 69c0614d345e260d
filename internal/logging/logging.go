// Copyright 2025 The Osier Authors
// This file is part of Osier.
//
// Osier is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Osier is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Osier. If not, see <http://www.gnu.org/licenses/>.

// Package logging wires console and rotating-file logging for the CLI
// binaries. The two sinks carry independent levels and formats.
package logging

import (
	"os"
	"path"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	LogJsonFlag = cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format console logs with JSON",
	}
	LogConsoleJsonFlag = cli.BoolFlag{
		Name:  "log.console.json",
		Usage: "Format console logs with JSON",
	}
	LogDirJsonFlag = cli.BoolFlag{
		Name:  "log.dir.json",
		Usage: "Format file logs with JSON",
	}
	LogVerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Set the log level for console logs",
		Value: zapcore.InfoLevel.String(),
	}
	LogConsoleVerbosityFlag = cli.StringFlag{
		Name:  "log.console.verbosity",
		Usage: "Set the log level for console logs",
	}
	LogDirPathFlag = cli.StringFlag{
		Name:  "log.dir.path",
		Usage: "Path to store user and error logs to disk",
	}
	LogDirVerbosityFlag = cli.StringFlag{
		Name:  "log.dir.verbosity",
		Usage: "Set the log verbosity for logs stored to disk",
		Value: zapcore.InfoLevel.String(),
	}
)

// Flags is the set the CLI binaries install.
var Flags = []cli.Flag{
	&LogJsonFlag,
	&LogConsoleJsonFlag,
	&LogDirJsonFlag,
	&LogVerbosityFlag,
	&LogConsoleVerbosityFlag,
	&LogDirPathFlag,
	&LogDirVerbosityFlag,
}

// SetupLoggerCtx builds the logger from CLI flags: a console sink on stderr,
// plus a rotating file sink when a log dir is configured.
func SetupLoggerCtx(filePrefix string, ctx *cli.Context) *zap.Logger {
	consoleJson := ctx.Bool(LogJsonFlag.Name) || ctx.Bool(LogConsoleJsonFlag.Name)
	dirJson := ctx.Bool(LogDirJsonFlag.Name)

	consoleLevel, err := tryGetLogLevel(ctx.String(LogConsoleVerbosityFlag.Name))
	if err != nil {
		// fall back to the shared verbosity flag
		consoleLevel, err = tryGetLogLevel(ctx.String(LogVerbosityFlag.Name))
		if err != nil {
			consoleLevel = zapcore.InfoLevel
		}
	}
	dirLevel, err := tryGetLogLevel(ctx.String(LogDirVerbosityFlag.Name))
	if err != nil {
		dirLevel = zapcore.InfoLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(consoleJson), zapcore.Lock(os.Stderr), consoleLevel),
	}

	dirPath := ctx.String(LogDirPathFlag.Name)
	if dirPath != "" {
		if err := os.MkdirAll(dirPath, 0764); err == nil {
			fileSink := zapcore.AddSync(&lumberjack.Logger{
				Filename:   path.Join(dirPath, filePrefix+".log"),
				MaxSize:    100, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			})
			cores = append(cores, zapcore.NewCore(fileEncoder(dirJson), fileSink, dirLevel))
		}
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if dirPath != "" {
		logger.Info("logging to file system",
			zap.String("log dir", dirPath),
			zap.String("file prefix", filePrefix),
			zap.Stringer("log level", dirLevel),
			zap.Bool("json", dirJson))
	}
	return logger
}

func consoleEncoder(json bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if json {
		return zapcore.NewJSONEncoder(cfg)
	}
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	if usecolor {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func fileEncoder(json bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if json {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func tryGetLogLevel(s string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		l, aerr := strconv.Atoi(s)
		if aerr != nil {
			return 0, err
		}
		return zapcore.Level(l), nil
	}
	return lvl, nil
}
