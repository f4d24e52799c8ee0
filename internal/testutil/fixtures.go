package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// CodeLines returns n Python-like assignment lines named prefix_NN, each
// padded to width-1 characters plus a newline.
func CodeLines(prefix string, n, width int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		line := fmt.Sprintf("%s_%02d = compute(%02d)", prefix, i, i)
		line += strings.Repeat(" ", width-2-len(line)) + "#"
		b.WriteString(line + "\n")
	}
	return b.String()
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
