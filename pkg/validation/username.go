package validation

import (
	"fmt"
	"strings"
)

const (
	minUsernameLen = 5
	maxUsernameLen = 32
)

var usernamePrefixes = []string{"https://t.me/", "http://t.me/", "t.me/", "@"}

// ValidateChannelUsername validates a Telegram public username format
func ValidateChannelUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	normalized := NormalizeChannelUsername(username)

	if len(normalized) < minUsernameLen || len(normalized) > maxUsernameLen {
		return fmt.Errorf("invalid username length: expected %d-%d characters, got %d",
			minUsernameLen, maxUsernameLen, len(normalized))
	}

	if !isLetter(normalized[0]) {
		return fmt.Errorf("username must start with a letter")
	}
	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return fmt.Errorf("invalid character %q in username", c)
		}
	}

	return nil
}

// NormalizeChannelUsername strips @ and t.me link prefixes from a username
func NormalizeChannelUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range usernamePrefixes {
		if len(username) >= len(prefix) && strings.EqualFold(username[:len(prefix)], prefix) {
			username = username[len(prefix):]
			break
		}
	}
	return strings.TrimSuffix(username, "/")
}

// ValidateAndNormalizeChannelUsername validates a username and returns its normalized form
func ValidateAndNormalizeChannelUsername(username string) (string, error) {
	if err := ValidateChannelUsername(username); err != nil {
		return "", err
	}
	return NormalizeChannelUsername(username), nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
