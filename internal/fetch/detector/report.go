package detector

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Report formatting for detected double fetches.
//
// Reports are informational text on the diagnostic stream, never machine
// parsed. Stack capture happens lazily, only after a double fetch is already
// detected, so the check hot path pays nothing for it.

const (
	// maxStackDepth caps the number of frames captured per report.
	maxStackDepth = 32

	// maxDumpedBytes caps the byte dumps included in a report. Larger
	// ranges are still corrupted, just not echoed.
	maxDumpedBytes = 16
)

// logf writes one diagnostic line.
func logf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "(doublefetch) "+format+"\n", args...)
}

// writeReport emits the double-fetch banner for a read of [addr, addr+size)
// that overlapped the tracked span starting at fault.
func writeReport(w io.Writer, addr uintptr, size uintptr, fault uintptr, data []byte, willCorrupt bool) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "WARNING: DOUBLE FETCH\n")
	fmt.Fprintf(w, "Read of %#x len %#x overlaps a range already read without an intervening write (tracked span at %#x)\n",
		addr, size, fault)
	if len(data) <= maxDumpedBytes {
		fmt.Fprintf(w, "Existing bytes: % X\n", data)
	}
	if !willCorrupt {
		fmt.Fprintf(w, "Leaving bytes intact this time\n")
	}
	fmt.Fprintf(w, "Second fetch at:\n%s", formatStackTrace(captureStackTrace(4)))
	fmt.Fprintf(w, "==================\n")
}

// writeCorruption echoes the injected bytes after corruption ran.
func writeCorruption(w io.Writer, data []byte) {
	if len(data) <= maxDumpedBytes {
		fmt.Fprintf(w, "Injected bytes: % X\n", data)
	} else {
		fmt.Fprintf(w, "Injected %d random bytes\n", len(data))
	}
}

// captureStackTrace captures program counters for the current call stack,
// skipping the given number of leading frames.
func captureStackTrace(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

// formatStackTrace converts program counters into report-ready text, one
// frame per function with its file:line. Runtime internals and the
// detector's own frames are filtered out.
func formatStackTrace(pcs []uintptr) string {
	if len(pcs) == 0 {
		return "  (no stack trace available)\n"
	}

	frames := runtime.CallersFrames(pcs)
	var buf strings.Builder

	for {
		frame, more := frames.Next()

		if strings.HasPrefix(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "/fetch/detector.") {
			if !more {
				break
			}
			continue
		}

		buf.WriteString("  ")
		buf.WriteString(frame.Function)
		buf.WriteString("()\n")
		buf.WriteString("      ")
		fmt.Fprintf(&buf, "%s:%d\n", frame.File, frame.Line)

		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  (all frames filtered)\n"
	}
	return buf.String()
}
