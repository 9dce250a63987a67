// Package slip implements SLIP packet framing (RFC 1055 style, with a leading
// END byte) as used by ROM bootloaders on serial links.
//
// A frame is an END byte, the escaped payload and a closing END byte. Inside
// the frame END is sent as ESC ESC_END and ESC is sent as ESC ESC_ESC.
package slip

const (
	End    byte = 0xC0
	Esc    byte = 0xDB
	EscEnd byte = 0xDC
	EscEsc byte = 0xDD
)

// EncodedLen returns the length of Encode(payload) without encoding it.
func EncodedLen(payload []byte) int {
	n := 2 + len(payload)
	for _, b := range payload {
		if b == End || b == Esc {
			n++
		}
	}
	return n
}

// Encode wraps payload in a SLIP frame.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, EncodedLen(payload))
	out = append(out, End)
	for _, b := range payload {
		switch b {
		case End:
			out = append(out, Esc, EscEnd)
		case Esc:
			out = append(out, Esc, EscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, End)
}

// Decode extracts the first complete frame from buf.
//
// When buf holds no END byte, or an opening END without a closing one, Decode
// returns ok == false and rest == buf so the caller can append more bytes and
// try again. Otherwise payload is the un-escaped content between the two
// markers and rest is everything after the closing marker. An opening END
// followed directly by a closing END yields an empty, non-nil payload.
//
// Decode never fails: an ESC that is not followed by ESC_END or ESC_ESC is
// copied through unchanged. The returned payload never shares memory with buf.
func Decode(buf []byte) (payload []byte, rest []byte, ok bool) {
	start := -1
	for i, b := range buf {
		if b == End {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, buf, false
	}

	end := -1
	for i := start + 1; i < len(buf); i++ {
		if buf[i] == End {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, buf, false
	}

	return unescape(buf[start+1 : end]), buf[end+1:], true
}

func unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == Esc && i+1 < len(data) {
			switch data[i+1] {
			case EscEnd:
				out = append(out, End)
				i++
				continue
			case EscEsc:
				out = append(out, Esc)
				i++
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
