package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

type logInterceptor struct {
	keep     int
	messages []string
	mtx      sync.Mutex
}

func (li *logInterceptor) Write(p []byte) (n int, err error) {
	li.mtx.Lock()
	defer li.mtx.Unlock()

	li.messages = append(li.messages, string(bytes.TrimSpace(p)))

	if li.keep > 0 {
		li.truncate()
	}

	return len(p), nil
}

func interceptLog(keep int) *logInterceptor {
	li := &logInterceptor{keep: keep}
	log.SetFlags(log.Ltime)
	log.SetOutput(li)
	return li
}

func (li *logInterceptor) truncate() {
	if delta := len(li.messages) - li.keep; delta > 0 {
		li.messages = li.messages[delta:len(li.messages)]
	}
}

// lines returns a copy of the kept messages, oldest first.
func (li *logInterceptor) lines() []string {
	li.mtx.Lock()
	defer li.mtx.Unlock()
	return append([]string(nil), li.messages...)
}

// replay writes the kept messages to w.
func (li *logInterceptor) replay(w io.Writer) {
	for _, msg := range li.lines() {
		fmt.Fprintln(w, msg)
	}
}

// debugTag marks Infof messages only shown with --debug.
const debugTag = "debug: "

// logger adapts the standard log package to the logwrap interface used
// by the libraries. Info messages are dropped unless verbose, those
// tagged with debugTag unless debug.
type logger struct {
	debug   bool
	verbose bool
}

func (l logger) Infof(format string, args ...interface{}) {
	if msg, ok := strings.CutPrefix(format, debugTag); ok {
		if l.debug {
			log.Printf("DEBUG "+msg, args...)
		}
		return
	}
	if l.verbose || l.debug {
		log.Printf("INFO  "+format, args...)
	}
}

func (l logger) Errorf(format string, args ...interface{}) {
	log.Printf("ERROR "+format, args...)
}
