package shell

import (
	"fmt"
	"strings"

	"github.com/mazznoer/colorgrad"
)

const bannerArt = `
                                     _
 _ __ ___    __ _  ___   ___   ___  | |_
| '_ ' _ \  / _' |/ __| / __| / _ \ | __|
| | | | | || (_| |\__ \| (__ | (_) || |_
|_| |_| |_| \__,_||___/ \___| \___/  \__|
 .  .  .  a  little  helper  on  your  desktop  [v%s]
`

// Banner returns the ASCII art banner, colorized with a horizontal
// gradient when color is set.
func Banner(version string, color bool) string {
	banner := fmt.Sprintf(bannerArt, version)
	if !color {
		return banner
	}

	grad, err := colorgrad.NewGradient().
		HtmlColors("#ff8a00ff", "#e52e71ff", "#fdfdfdff").
		Build()
	if err != nil {
		return banner
	}

	lines := strings.Split(banner, "\n")

	// Find max line length for gradient spread
	maxLen := 0
	for _, line := range lines {
		maxLen = max(maxLen, len([]rune(line)))
	}

	colors := grad.Colors(uint(maxLen))
	var coloredBanner strings.Builder

	for _, line := range lines {
		for i, ch := range []rune(line) {
			r, g, b, _ := colors[i].RGBA255()
			fmt.Fprintf(&coloredBanner, "\x1b[38;2;%d;%d;%dm%c", r, g, b, ch)
		}
		coloredBanner.WriteString("\x1b[0m\n")
	}

	return coloredBanner.String()
}
