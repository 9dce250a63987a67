package reset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Separator splits commands in a custom sequence string
const Separator = "|"

// SyntaxError describes the first invalid command of a custom sequence
type SyntaxError struct {
	Index  int    // position of the command in the sequence
	Token  string // the offending command text
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid reset command %d %q: %s", e.Index, e.Token, e.Reason)
}

// Parse turns a custom sequence string into a Sequence. It stops at the first
// invalid command and returns a *SyntaxError describing it.
//
// Grammar:
//
//	sequence := command ('|' command)*
//	command  := 'D' bit | 'R' bit | 'W' digits | 'S'
//	bit      := '0' | '1'
//	digits   := [0-9]+    value in 1..4294967295
//
// Anything following S is ignored, so "S" and "Sx" both commit.
func Parse(s string) (Sequence, error) {
	tokens := strings.Split(s, Separator)
	seq := make(Sequence, 0, len(tokens))
	for i, token := range tokens {
		cmd, reason := parseCommand(token)
		if reason != "" {
			return nil, &SyntaxError{Index: i, Token: token, Reason: reason}
		}
		seq = append(seq, cmd)
	}
	return seq, nil
}

// Validate reports whether s is a valid custom sequence
func Validate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func parseCommand(token string) (Command, string) {
	if token == "" {
		return Command{}, "empty command"
	}

	code, arg := token[0], token[1:]
	switch code {
	case 'D', 'R':
		var level bool
		switch arg {
		case "0":
		case "1":
			level = true
		default:
			return Command{}, "line value must be 0 or 1"
		}
		if code == 'D' {
			return SetDTR(level), ""
		}
		return SetRTS(level), ""

	case 'W':
		if arg == "" || strings.Trim(arg, "0123456789") != "" {
			return Command{}, "delay must be a decimal number of milliseconds"
		}
		ms, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return Command{}, "delay out of range"
		}
		if ms == 0 {
			return Command{}, "delay must be greater than zero"
		}
		return Wait(time.Duration(ms) * time.Millisecond), ""

	case 'S':
		return Commit(), ""

	default:
		return Command{}, fmt.Sprintf("unknown command code %q", code)
	}
}
