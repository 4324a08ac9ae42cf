package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"bookforge/internal/book"
	"bookforge/internal/runstore"
	"bookforge/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func stateKind(state workflow.State) statusKind {
	switch state {
	case workflow.StateSucceeded:
		return statusOK
	case workflow.StateFailed:
		return statusError
	case workflow.StateRunning:
		return statusInfo
	default:
		return statusWarn
	}
}

func runStatusKind(status runstore.Status) statusKind {
	switch status {
	case runstore.StatusSucceeded:
		return statusOK
	case runstore.StatusFailed:
		return statusError
	case runstore.StatusRunning:
		return statusInfo
	default:
		return statusWarn
	}
}

func logStatusKind(status book.LogStatus) statusKind {
	if status == book.LogFailed {
		return statusError
	}
	return statusOK
}

func colorizeStatus(label string, kind statusKind, colorize bool) string {
	if !colorize {
		return label
	}
	if color := statusKindColor(kind); color != "" {
		return color + label + ansiReset
	}
	return label
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
