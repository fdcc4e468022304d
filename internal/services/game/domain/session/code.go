package session

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// CodeLength is the length of a join code.
	CodeLength = 6
	// MaxTitleLength bounds the session title in characters.
	MaxTitleLength = 100
	// MaxLocationLength bounds the free-text location in characters.
	MaxLocationLength = 200

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrCodeInvalid     = errors.New("game code must be exactly 6 letters or digits")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title must be 100 characters or less")
	ErrLocationTooLong = errors.New("location must be 200 characters or less")
)

// Roller yields uniform integers in [0, n).
type Roller interface {
	Intn(n int) int
}

// NewCode returns a random join code.
func NewCode(roller Roller) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[roller.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// FallbackCode derives a code from the clock when random codes keep
// colliding: "G" followed by the last five base36 digits of the unix
// milliseconds.
func FallbackCode(now time.Time) string {
	encoded := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(encoded) > CodeLength-1 {
		encoded = encoded[len(encoded)-(CodeLength-1):]
	}
	return "G" + strings.Repeat("0", CodeLength-1-len(encoded)) + encoded
}

// NormalizeCode upper-cases and validates a join code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", ErrCodeInvalid
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return "", ErrCodeInvalid
		}
	}
	return code, nil
}

// NormalizeTitle trims and validates a session title.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// NormalizeLocation trims and validates a location. Empty clears it.
func NormalizeLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return "", ErrLocationTooLong
	}
	return location, nil
}
