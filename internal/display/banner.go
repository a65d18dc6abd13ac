package display

import (
	"fmt"
	"io"
	"os"

	"github.com/backmassage/tiffexport/internal/term"
)

const banner = ` _   _  __  __                       _
| |_(_)/ _|/ _| _____  ___ __   ___  _ __| |_
| __| | |_| |_ / _ \ \/ / '_ \ / _ \| '__| __|
| |_| |  _|  _|  __/>  <| |_) | (_) | |  | |_
 \__|_|_| |_|  \___/_/\_\ .__/ \___/|_|   \__|
                        |_|`

// PrintBanner prints the ASCII art banner to stdout, in magenta when colors
// are enabled.
func PrintBanner() {
	FprintBanner(os.Stdout)
}

// FprintBanner writes the banner to w.
func FprintBanner(w io.Writer) {
	fmt.Fprintln(w, term.Render(term.Banner, banner))
}
