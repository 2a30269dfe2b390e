package main

import (
	"fmt"
	"io"
	"log"
	"os"
)

// setupLogging sends the standard logger to stderr and to path. The file is
// truncated so a failure report carries only this run's log.
func setupLogging(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	prev := log.Writer()
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(prev)
		f.Close()
	}, nil
}
