// Package nlog - cascade's logger, provides buffering, timestamping, writing, and
// flushing/syncing/rotating
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	toStderr     bool
	alsoToStderr bool

	logDir  string
	aisrole string
	title   string

	host string
	pid  = os.Getpid()

	sevText = [...]string{"INFO", "WARNING", "ERROR"}

	// filenames to omit from the "file:line" prefix, e.g. generated code
	redactFnames = map[string]struct{}{}

	nlogs [3]*nlog

	onceInitFiles sync.Once
)

func init() {
	host, _ = os.Hostname()
	if logDir == "" {
		logDir = os.TempDir()
	}
}

func sname() string {
	if aisrole == "" {
		return "cascade"
	}
	return "cascade." + aisrole
}

func initFiles() {
	for _, sev := range []severity{sevInfo, sevErr} {
		nlogs[sev] = newNlog(sev)
		if f, _, err := fcreate(sevText[sev], time.Now()); err == nil {
			nlogs[sev].file = f
		} else {
			nlogs[sev].erred.Store(true)
		}
	}
}

// fcreate creates (or truncates) the log file for the given severity tag,
// returning the open file and the name it was created under.
func fcreate(tag string, now time.Time) (*os.File, string, error) {
	if toStderr {
		return nil, "", nil
	}
	name, _ := logfname(tag, now)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", err
	}
	fqn := filepath.Join(logDir, name)
	f, err := os.OpenFile(fqn, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", err
	}
	fmt.Fprintf(f, "Log file created at %s\n", now.Format("2006/01/02 15:04:05"))
	return f, name, nil
}
