package commands

import (
	"errors"
	"regexp"
	"strings"
)

var (
	nickPattern = regexp.MustCompile("^[A-Za-z\\[\\]\\\\`_^{|}][A-Za-z0-9\\[\\]\\\\`_^{|}-]*$")
	userPattern = regexp.MustCompile(`^~?[A-Za-z0-9._-]+$`)
	hostPattern = regexp.MustCompile(`^[A-Za-z0-9:-]+(\.[A-Za-z0-9:-]+)*$`)
)

// ValidateHostmask checks that s is a full nick!user@host mask.
func ValidateHostmask(s string) error {
	if s == "" {
		return errors.New("hostmask cannot be empty")
	}
	bang := strings.IndexByte(s, '!')
	if bang == -1 {
		return errors.New("hostmask must contain '!'")
	}
	at := strings.IndexByte(s, '@')
	if at == -1 {
		return errors.New("hostmask must contain '@'")
	}
	if bang > at {
		return errors.New("hostmask '!' must come before '@'")
	}

	nick, user, host := s[:bang], s[bang+1:at], s[at+1:]
	switch {
	case nick == "":
		return errors.New("hostmask nick cannot be empty")
	case user == "":
		return errors.New("hostmask user cannot be empty")
	case host == "":
		return errors.New("hostmask host cannot be empty")
	case !nickPattern.MatchString(nick):
		return errors.New("invalid nick in hostmask: " + nick)
	case !userPattern.MatchString(user):
		return errors.New("invalid user in hostmask: " + user)
	case !hostPattern.MatchString(host):
		return errors.New("invalid host in hostmask: " + host)
	}
	return nil
}
