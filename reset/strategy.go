package reset

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultResetDelay is how long Classic holds the chip in reset with
// IO0 pulled low before releasing it.
const DefaultResetDelay = 50 * time.Millisecond

// Classic returns the reset strategy for boards with the usual two-transistor
// auto-reset circuit: EN is pulsed low while IO0 is held low, then released.
// A delay of zero or less uses DefaultResetDelay.
func Classic(delay time.Duration) Sequence {
	if delay <= 0 {
		delay = DefaultResetDelay
	}
	return Sequence{
		SetDTR(false), SetRTS(true), Commit(),
		Wait(100 * time.Millisecond),
		SetDTR(true), SetRTS(false), Commit(),
		Wait(delay),
		SetDTR(false), Commit(),
	}
}

// USBJTAGSerial returns the reset strategy for chips attached through their
// built-in USB-JTAG-Serial peripheral.
func USBJTAGSerial() Sequence {
	return Sequence{
		SetRTS(false), SetDTR(false), Commit(),
		Wait(100 * time.Millisecond),
		SetDTR(true), SetRTS(false), Commit(),
		Wait(100 * time.Millisecond),
		SetRTS(true), SetDTR(false), Commit(),
		Wait(100 * time.Millisecond),
		SetRTS(false), SetDTR(false), Commit(),
	}
}

// Hard returns a plain reset that releases RTS and leaves DTR untouched.
// Devices on USB-OTG re-enumerate during reset and get longer pauses.
func Hard(usingUSBOTG bool) Sequence {
	if usingUSBOTG {
		return Sequence{
			Wait(200 * time.Millisecond),
			SetRTS(false), Commit(),
			Wait(200 * time.Millisecond),
		}
	}
	return Sequence{
		Wait(100 * time.Millisecond),
		SetRTS(false), Commit(),
	}
}

// Strategy selects one of the reset sequences
type Strategy int

const (
	StrategyClassic Strategy = iota
	StrategyUSBJTAGSerial
	StrategyHard
	StrategyHardOTG
	StrategyCustom
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names
var ErrUnknownStrategy = errors.New("unknown reset strategy")

var strategyNames = map[Strategy]string{
	StrategyClassic:       "classic",
	StrategyUSBJTAGSerial: "usb-jtag-serial",
	StrategyHard:          "hard",
	StrategyHardOTG:       "hard-otg",
	StrategyCustom:        "custom",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy looks up a strategy by name, ignoring case
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// StrategyNames lists the accepted strategy names in declaration order
func StrategyNames() []string {
	names := make([]string, 0, len(strategyNames))
	for s := StrategyClassic; s <= StrategyCustom; s++ {
		names = append(names, strategyNames[s])
	}
	return names
}
