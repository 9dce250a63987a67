// Package reset drives a chip into its bootloader or out of reset by toggling
// DTR and RTS in timed sequences.
//
// A Sequence is an ordered list of Commands. Sequences come from the built-in
// strategies (Classic, USBJTAGSerial, Hard) or from a custom string such as
//
//	D0|R1|S|W100|D1|R0|S|W50|D0|S
//
// where D and R stage DTR and RTS (1 = asserted), S commits both lines to the
// port and W waits the given number of milliseconds.
package reset

import (
	"strconv"
	"strings"
	"time"
)

// Op identifies the kind of a Command
type Op int

const (
	OpSetDTR Op = iota + 1
	OpSetRTS
	OpCommit
	OpWait
)

func (o Op) String() string {
	switch o {
	case OpSetDTR:
		return "SetDTR"
	case OpSetRTS:
		return "SetRTS"
	case OpCommit:
		return "Commit"
	case OpWait:
		return "Wait"
	default:
		return "Unknown"
	}
}

// Command is one step of a reset sequence. The zero value is not a valid
// command; use SetDTR, SetRTS, Commit or Wait.
type Command struct {
	op    Op
	level bool
	delay time.Duration
}

// SetDTR stages the DTR line
func SetDTR(level bool) Command {
	return Command{op: OpSetDTR, level: level}
}

// SetRTS stages the RTS line
func SetRTS(level bool) Command {
	return Command{op: OpSetRTS, level: level}
}

// Commit pushes the staged DTR and RTS values to the port
func Commit() Command {
	return Command{op: OpCommit}
}

// Wait pauses the sequence. Delays are expressed in the DSL with millisecond
// resolution.
func Wait(d time.Duration) Command {
	return Command{op: OpWait, delay: d}
}

func (c Command) Op() Op { return c.op }

// Level is the staged line value of a SetDTR or SetRTS command
func (c Command) Level() bool { return c.level }

// Delay is the pause of a Wait command
func (c Command) Delay() time.Duration { return c.delay }

// String renders the command in the custom sequence syntax
func (c Command) String() string {
	switch c.op {
	case OpSetDTR:
		return "D" + levelString(c.level)
	case OpSetRTS:
		return "R" + levelString(c.level)
	case OpCommit:
		return "S"
	case OpWait:
		return "W" + strconv.FormatInt(c.delay.Milliseconds(), 10)
	default:
		return "?"
	}
}

func levelString(level bool) string {
	if level {
		return "1"
	}
	return "0"
}

// Sequence is an ordered list of commands, executed strictly in order
type Sequence []Command

// String renders the sequence in the custom sequence syntax
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, "|")
}
