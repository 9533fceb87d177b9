package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type severity int

const (
	sevInfo severity = iota
	sevOK
	sevWarn
	sevError
)

const ansiReset = "\x1b[0m"

var severityLabels = [...]string{
	sevInfo:  "INFO",
	sevOK:    "OK",
	sevWarn:  "WARN",
	sevError: "ERROR",
}

var severityColors = [...]string{
	sevInfo:  "\x1b[34m",
	sevOK:    "\x1b[32m",
	sevWarn:  "\x1b[33m",
	sevError: "\x1b[31m",
}

// statusPrinter writes the aligned label/value report produced by the
// status command. Color is applied only when the writer is a terminal.
type statusPrinter struct {
	w          io.Writer
	color      bool
	labelWidth int
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{w: w, color: writerIsTerminal(w), labelWidth: 22}
}

func (p *statusPrinter) Section(title string) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if p.color {
		line = severityColors[sevInfo] + line + ansiReset
		rule = severityColors[sevInfo] + rule + ansiReset
	}
	fmt.Fprintln(p.w, line)
	fmt.Fprintln(p.w, rule)
}

func (p *statusPrinter) Line(label string, sev severity, value string) {
	status := "[" + severityLabels[sev] + "]"
	if value != "" {
		status += " " + value
	}
	text := fmt.Sprintf("  %-*s %s", p.labelWidth, label+":", status)
	if p.color {
		text = severityColors[sev] + text + ansiReset
	}
	fmt.Fprintln(p.w, text)
}

func (p *statusPrinter) Blank() {
	fmt.Fprintln(p.w)
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
