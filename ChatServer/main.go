/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/crewjam/rfc5424"

	"github.com/gravwell/chatrelay/config"
	"github.com/gravwell/chatrelay/log"
	"github.com/gravwell/chatrelay/log/rotate"
	"github.com/gravwell/chatrelay/server"
	"github.com/gravwell/chatrelay/utils"
	"github.com/gravwell/chatrelay/version"
)

// maxLogSize and maxLogHistory bound the rotated log file set; beyond
// this the oldest compressed history file is discarded.
const (
	maxLogSize    = 64 * 1024 * 1024
	maxLogHistory = 5
)

const defaultConfigLoc = `/opt/gravwell/etc/chatrelay.conf`

var (
	confLoc = flag.String("config-file", defaultConfigLoc, "Location for configuration file")
	ver     = flag.Bool("version", false, "Print the version information and exit")

	lg *log.Logger
)

func init() {
	flag.Parse()
	if *ver {
		version.PrintVersion(os.Stdout)
		os.Exit(0)
	}
	var err error
	if lg, err = log.NewStderrLoggerEx("", func(w io.Writer) {
		version.PrintVersion(w)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stderr logger: %v\n", err)
		os.Exit(1)
	}
}

// main implements the `server [port]` CLI: a bare positional argument
// overrides the configured port, matching spec.md's external interface.
func main() {
	cfg, err := loadConfig()
	if err != nil {
		lg.FatalCode(1, "Failed to parse configuration file", rfc5424.SDParam{Name: "path", Value: *confLoc}, rfc5424.SDParam{Name: "error", Value: err.Error()})
	}

	if port, ok := portOverride(); ok {
		cfg.Port = port
	}

	if cfg.LogFile != "" {
		fr, err := rotate.OpenEx(cfg.LogFile, 0640, maxLogSize, maxLogHistory, true)
		if err != nil {
			lg.FatalCode(1, "Failed to open log file", rfc5424.SDParam{Name: "path", Value: cfg.LogFile}, rfc5424.SDParam{Name: "error", Value: err.Error()})
		}
		if err := lg.AddWriter(fr); err != nil {
			lg.FatalCode(1, "Failed to add log writer", rfc5424.SDParam{Name: "error", Value: err.Error()})
		}
		if cfg.LogLevel != "" {
			if err := lg.SetLevelString(cfg.LogLevel); err != nil {
				lg.FatalCode(1, "Invalid Log-Level", rfc5424.SDParam{Name: "level", Value: cfg.LogLevel})
			}
		}
	}

	srv, err := server.New(cfg, lg)
	if err != nil {
		lg.FatalCode(1, "Failed to build server", rfc5424.SDParam{Name: "error", Value: err.Error()})
	}

	quit := make(chan struct{})
	go func() {
		utils.WaitForQuit()
		close(quit)
	}()

	if err := srv.Run(quit); err != nil {
		lg.FatalCode(1, "Server exited with error", rfc5424.SDParam{Name: "error", Value: err.Error()})
	}
	os.Exit(0)
}

// loadConfig loads confLoc if present, falling back to defaults so the
// server remains runnable with nothing but a port argument.
func loadConfig() (config.Config, error) {
	if _, err := os.Stat(*confLoc); err != nil {
		return config.Default(), nil
	}
	return config.Load(*confLoc)
}

// portOverride reports the `server [port]` positional argument, if
// one was given on the command line.
func portOverride() (int, bool) {
	args := flag.Args()
	if len(args) == 0 {
		return 0, false
	}
	p, err := strconv.Atoi(args[0])
	if err != nil || p <= 0 || p > 65535 {
		return 0, false
	}
	return p, true
}
