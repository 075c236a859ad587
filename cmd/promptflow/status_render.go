package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type outcome int

const (
	outcomeNeutral outcome = iota
	outcomeOK
	outcomeWarn
	outcomeFail
)

var outcomeTags = map[outcome]string{
	outcomeNeutral: "INFO",
	outcomeOK:      "OK",
	outcomeWarn:    "WARN",
	outcomeFail:    "ERROR",
}

var outcomeColors = map[outcome]string{
	outcomeNeutral: "\x1b[34m",
	outcomeOK:      "\x1b[32m",
	outcomeWarn:    "\x1b[33m",
	outcomeFail:    "\x1b[31m",
}

const (
	colorReset = "\x1b[0m"
	labelWidth = 18
)

// reportWriter prints the aligned "label: value" report used for run results
// and config validation. Colour is applied only when the target is a terminal.
type reportWriter struct {
	out   io.Writer
	color bool
}

func newReportWriter(out io.Writer) *reportWriter {
	return &reportWriter{out: out, color: isTerminal(out)}
}

func (r *reportWriter) paint(o outcome, s string) string {
	if !r.color {
		return s
	}
	return outcomeColors[o] + s + colorReset
}

func (r *reportWriter) heading(title string) {
	line := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(r.out, r.paint(outcomeNeutral, line))
	fmt.Fprintln(r.out, r.paint(outcomeNeutral, strings.Repeat("-", len(line))))
}

func (r *reportWriter) field(label, value string) {
	fmt.Fprintf(r.out, "  %-*s %s\n", labelWidth, label+":", value)
}

// check prints label with a bracketed outcome tag followed by detail.
func (r *reportWriter) check(label string, o outcome, detail string) {
	tag := "[" + outcomeTags[o] + "]"
	if detail != "" {
		tag += " " + detail
	}
	fmt.Fprintln(r.out, r.paint(o, fmt.Sprintf("  %-*s %s", labelWidth, label+":", tag)))
}

func (r *reportWriter) blank() {
	fmt.Fprintln(r.out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
