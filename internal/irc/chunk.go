package irc

import (
	"strings"
	"unicode/utf8"
)

const defaultChunkMax = 350

// Chunk splits text into messages that fit on one IRC line. Each line of
// text is sent on its own; long lines break at the last space before max,
// or hard at max when there is none.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = defaultChunkMax
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		for len(line) > max {
			if idx := strings.LastIndexByte(line[:max+1], ' '); idx > 0 {
				out = append(out, strings.TrimRight(line[:idx], " "))
				line = strings.TrimLeft(line[idx+1:], " ")
				continue
			}
			cut := max
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = max
			}
			out = append(out, line[:cut])
			line = line[cut:]
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
