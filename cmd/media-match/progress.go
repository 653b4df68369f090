package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ripixel/fitglue-media/pkg/reconciliation"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderProgressLine formats one candidate transition as
// "[ 50%] file.gif: uploading".
func renderProgressLine(c reconciliation.Candidate, percent float64, colorize bool) string {
	line := fmt.Sprintf("[%3.0f%%] %s: %s", percent, c.FileName, c.Status)
	if c.Status == reconciliation.StatusError && c.ErrorMessage != "" {
		line += " (" + c.ErrorMessage + ")"
	}
	if !colorize {
		return line
	}
	switch c.Status {
	case reconciliation.StatusSuccess:
		return ansiGreen + line + ansiReset
	case reconciliation.StatusError:
		return ansiRed + line + ansiReset
	case reconciliation.StatusUploading:
		return ansiYellow + line + ansiReset
	}
	return line
}
