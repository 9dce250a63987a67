package bootserial

import "strings"

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// SignalMask identifies which input signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD
)

func (m SignalMask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	for _, s := range []struct {
		bit  SignalMask
		name string
	}{{SignalCTS, "CTS"}, {SignalDSR, "DSR"}, {SignalRI, "RI"}, {SignalDCD, "DCD"}} {
		if m&s.bit != 0 {
			names = append(names, s.name)
		}
	}
	return strings.Join(names, "|")
}
