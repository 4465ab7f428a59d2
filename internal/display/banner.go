package display

import (
	"fmt"
	"os"

	"github.com/demoreel/demoreel/internal/term"
)

// PrintBanner prints the ASCII art banner to stderr (stdout carries the tool
// protocol); uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Magenta != "" {
		fmt.Fprint(os.Stderr, "\033[1;95m")
	}
	fmt.Fprint(os.Stderr, ` ____                       ____           _
|  _ \  ___ _ __ ___   ___ |  _ \ ___  ___| |
| | | |/ _ \ '_ ` + "`" + ` _ \ / _ \| |_) / _ \/ _ \ |
| |_| |  __/ | | | | | (_) |  _ <  __/  __/ |
|____/ \___|_| |_| |_|\___/|_| \_\___|\___|_|
`)
	if term.Magenta != "" {
		fmt.Fprintln(os.Stderr, term.NC)
	}
}
