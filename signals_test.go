package bootserial

import "testing"

func TestSignalMaskString(t *testing.T) {
	tests := []struct {
		mask SignalMask
		want string
	}{
		{0, "none"},
		{SignalCTS, "CTS"},
		{SignalDSR | SignalDCD, "DSR|DCD"},
		{SignalCTS | SignalDSR | SignalRI | SignalDCD, "CTS|DSR|RI|DCD"},
	}

	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.want {
			t.Errorf("SignalMask(%d).String() = %q, want %q", int(tt.mask), got, tt.want)
		}
	}
}
