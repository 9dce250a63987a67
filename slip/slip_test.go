package slip

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    []byte
	}{
		{"empty", nil, []byte{0xC0, 0xC0}},
		{"plain", []byte{0x01, 0x02}, []byte{0xC0, 0x01, 0x02, 0xC0}},
		{"end byte", []byte{0xC0}, []byte{0xC0, 0xDB, 0xDC, 0xC0}},
		{"esc byte", []byte{0xDB}, []byte{0xC0, 0xDB, 0xDD, 0xC0}},
		{"esc then end", []byte{0xDB, 0xC0}, []byte{0xC0, 0xDB, 0xDD, 0xDB, 0xDC, 0xC0}},
		{"escape values left alone", []byte{0xDC, 0xDD}, []byte{0xC0, 0xDC, 0xDD, 0xC0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.payload)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(got), EncodedLen(tt.payload))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		wantPayload []byte
		wantRest    []byte
		wantOK      bool
	}{
		{
			name:     "no start marker",
			buf:      []byte{0x01, 0x02, 0x03},
			wantRest: []byte{0x01, 0x02, 0x03},
		},
		{
			name:     "start without end",
			buf:      []byte{0x00, 0xC0, 0x01, 0x02},
			wantRest: []byte{0x00, 0xC0, 0x01, 0x02},
		},
		{
			name:        "empty frame",
			buf:         []byte{0xC0, 0xC0},
			wantPayload: []byte{},
			wantRest:    []byte{},
			wantOK:      true,
		},
		{
			name:        "garbage before start is dropped",
			buf:         []byte{0x55, 0x66, 0xC0, 0x01, 0xC0, 0x02},
			wantPayload: []byte{0x01},
			wantRest:    []byte{0x02},
			wantOK:      true,
		},
		{
			name:        "escapes",
			buf:         []byte{0xC0, 0xDB, 0xDC, 0xDB, 0xDD, 0x07, 0xC0},
			wantPayload: []byte{0xC0, 0xDB, 0x07},
			wantRest:    []byte{},
			wantOK:      true,
		},
		{
			name:        "unknown escape copied through",
			buf:         []byte{0xC0, 0xDB, 0x01, 0xC0},
			wantPayload: []byte{0xDB, 0x01},
			wantRest:    []byte{},
			wantOK:      true,
		},
		{
			name:        "trailing escape copied through",
			buf:         []byte{0xC0, 0x01, 0xDB, 0xC0},
			wantPayload: []byte{0x01, 0xDB},
			wantRest:    []byte{},
			wantOK:      true,
		},
		{
			name:        "second frame left in rest",
			buf:         []byte{0xC0, 0x01, 0xC0, 0xC0, 0x02, 0xC0},
			wantPayload: []byte{0x01},
			wantRest:    []byte{0xC0, 0x02, 0xC0},
			wantOK:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, rest, ok := Decode(tt.buf)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPayload, payload)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestDecodePartialIsIdempotent(t *testing.T) {
	partial := []byte{0xC0, 0x10, 0xDB, 0xDC, 0x20}
	for i := 0; i < 3; i++ {
		payload, rest, ok := Decode(partial)
		require.False(t, ok)
		assert.Nil(t, payload)
		assert.Equal(t, []byte{0xC0, 0x10, 0xDB, 0xDC, 0x20}, rest)
	}
}

func TestDecodeDoesNotAlias(t *testing.T) {
	buf := []byte{0xC0, 0x01, 0x02, 0xC0}
	payload, _, ok := Decode(buf)
	require.True(t, ok)
	payload[0] = 0xFF
	assert.Equal(t, byte(0x01), buf[1])
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabet := []byte{0x00, 0x01, 0x7F, 0xC0, 0xDB, 0xDC, 0xDD, 0xFF}

	for i := 0; i < 500; i++ {
		payload := make([]byte, rng.Intn(64))
		for j := range payload {
			if rng.Intn(2) == 0 {
				payload[j] = alphabet[rng.Intn(len(alphabet))]
			} else {
				payload[j] = byte(rng.Intn(256))
			}
		}

		encoded := Encode(payload)
		require.Equal(t, EncodedLen(payload), len(encoded))

		// END may only appear as the first and last byte.
		assert.Equal(t, End, encoded[0])
		assert.Equal(t, End, encoded[len(encoded)-1])
		assert.Equal(t, -1, bytes.IndexByte(encoded[1:len(encoded)-1], End), "payload %X", payload)

		decoded, rest, ok := Decode(encoded)
		require.True(t, ok)
		assert.Empty(t, rest)
		assert.True(t, bytes.Equal(payload, decoded), "payload %X decoded %X", payload, decoded)
	}
}
