package isis

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSIDLabel(t *testing.T) {
	s, err := DecodeSIDLabel([]byte{0x00, 0x3e, 0x80})
	require.NoError(t, err)
	assert.Equal(t, NewLabel(16000), s)
	assert.True(t, s.IsLabel())
	assert.Equal(t, 3, s.Len())

	s, err = DecodeSIDLabel([]byte{0x00, 0x00, 0x00, 0x64})
	require.NoError(t, err)
	assert.Equal(t, NewIndex(100), s)
	assert.Equal(t, 4, s.Len())

	for _, n := range []int{0, 1, 2, 5, 16} {
		_, err := DecodeSIDLabel(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformed, "length %d", n)
	}
}

func TestSIDLabel_AppendTo(t *testing.T) {
	assert.Equal(t, []byte{0x0f, 0xff, 0xff}, NewLabel(0xfffff).AppendTo(nil))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, NewIndex(0xffffffff).AppendTo(nil))
	// Labels are 24 bits wide.
	assert.Equal(t, uint32(0x345678), NewLabel(0x12345678).Value)
}

func TestPrefixSID_IndexAndLabel(t *testing.T) {
	// 10.0.0.1/32 metric 10 with a Prefix-SID sub-TLV, V=0 L=0, index 100.
	indexTLV := []byte{
		135, 18,
		0, 0, 0, 10, 0x60, 10, 0, 0, 1,
		8, 3, 6, 0x00, 0, 0, 0, 0, 100,
	}
	// Same prefix with V=1 L=1 and a 3-octet label 16000.
	labelTLV := []byte{
		135, 17,
		0, 0, 0, 10, 0x60, 10, 0, 0, 1,
		7, 3, 5, 0x0c, 0, 0x00, 0x3e, 0x80,
	}

	tests := []struct {
		name  string
		raw   []byte
		flags PrefixSIDFlags
		sid   SIDLabel
	}{
		{"index", indexTLV, PrefixSIDFlags{}, NewIndex(100)},
		{"label", labelTLV, PrefixSIDFlags{Value: true, Local: true}, NewLabel(16000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlv, rest, err := ParseTLV(tt.raw)
			require.NoError(t, err)
			assert.Empty(t, rest)

			want := &ExtIPReachTLV{Entries: []ExtIPReachEntry{{
				Metric: 10,
				Flags:  ExtIPReachFlags{SubTLVs: true},
				Prefix: netip.MustParsePrefix("10.0.0.1/32"),
				Subs:   []PrefixSubTLV{&PrefixSIDSub{Flags: tt.flags, SID: tt.sid}},
			}}}
			assert.Equal(t, want, tlv)

			enc, err := AppendTLV(nil, tlv)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, enc)
		})
	}
}
