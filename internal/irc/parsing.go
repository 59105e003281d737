package irc

import (
	"slices"
	"strings"

	"github.com/lrstanley/girc"
)

// addressing describes how one PRIVMSG line relates to the assistant.
type addressing struct {
	// text is the line with any leading "nick:" address removed.
	text      string
	addressed bool
	private   bool
}

// parseLine classifies a line sent to target. A line is addressed when it
// starts with nick followed by a separator or the end of the line.
func parseLine(nick, target, line string) addressing {
	a := addressing{
		text:    line,
		private: target == "" || !girc.IsValidChannel(target),
	}
	if nick == "" || !strings.HasPrefix(line, nick) {
		return a
	}
	rest := line[len(nick):]
	if rest != "" && !strings.ContainsRune(" :,", rune(rest[0])) {
		return a
	}
	a.addressed = true
	a.text = strings.TrimLeft(rest, " :,")
	return a
}

// forAssistant reports whether the line should be dispatched: it must be
// addressed or private, and carry some text.
func (a addressing) forAssistant() bool {
	return (a.addressed || a.private) && strings.TrimSpace(a.text) != ""
}

// isAdmin matches a full nick!user@host mask. An empty list makes
// everyone an admin.
func isAdmin(hostmask string, admins []string) bool {
	return len(admins) == 0 || slices.Contains(admins, hostmask)
}
