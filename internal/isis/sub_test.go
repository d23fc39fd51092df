package isis

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighSubs_RoundTrip(t *testing.T) {
	subs := []NeighSubTLV{
		&IPv4IfAddrSub{Addr: netip.MustParseAddr("10.0.12.1")},
		&IPv4NeighAddrSub{Addr: netip.MustParseAddr("10.0.12.2")},
		&IPv6IfAddrSub{Addr: netip.MustParseAddr("2001:db8:12::1")},
		&IPv6NeighAddrSub{Addr: netip.MustParseAddr("2001:db8:12::2")},
		&AdjSIDSub{Flags: AdjSIDFlags{Value: true, Local: true}, Weight: 1, SID: NewLabel(24001)},
		&LANAdjSIDSub{
			Flags:    AdjSIDFlags{Backup: true, Persistent: true},
			Weight:   2,
			Neighbor: SystemID{0, 0, 0, 0, 0, 2},
			SID:      NewIndex(7),
		},
		&UnknownNeighSub{Type: 250, Value: []byte{0xca, 0xfe}},
	}

	enc := appendSubs(nil, subs)
	assert.Len(t, enc, subsLen(subs))
	for _, s := range subs {
		assert.Len(t, s.AppendValue(nil), s.Len(), "code %d", s.Code())
	}

	got, err := ParseNeighSubs(enc)
	require.NoError(t, err)
	assert.Equal(t, subs, got)
	assert.Equal(t, enc, appendSubs(nil, got))
}

func TestNeighSubs_AdjSIDBytes(t *testing.T) {
	raw := []byte{
		31, 5, 0xb0, 0x00, 0x00, 0x5d, 0xc1,
		32, 12, 0x30, 0x05, 1, 2, 3, 4, 5, 6, 0, 0, 0, 9,
	}
	got, err := ParseNeighSubs(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)

	adj := got[0].(*AdjSIDSub)
	assert.Equal(t, AdjSIDFlags{AddressFamily: true, Value: true, Local: true}, adj.Flags)
	assert.Equal(t, NewLabel(24001), adj.SID)

	lan := got[1].(*LANAdjSIDSub)
	assert.Equal(t, uint8(5), lan.Weight)
	assert.Equal(t, SystemID{1, 2, 3, 4, 5, 6}, lan.Neighbor)
	assert.Equal(t, NewIndex(9), lan.SID)

	assert.Equal(t, raw, appendSubs(nil, got))
}

func TestPrefixSubs_RoundTrip(t *testing.T) {
	subs := []PrefixSubTLV{
		&PrefixSIDSub{Flags: PrefixSIDFlags{NodeSID: true}, Algorithm: 0, SID: NewIndex(1)},
		&PrefixSIDSub{Flags: PrefixSIDFlags{Value: true, Local: true, Reserved: 0x03}, Algorithm: 1, SID: NewLabel(3)},
		&UnknownPrefixSub{Type: 4, Value: []byte{0x80}},
	}
	enc := appendSubs(nil, subs)
	got, err := ParsePrefixSubs(enc)
	require.NoError(t, err)
	assert.Equal(t, subs, got)
	assert.Equal(t, enc, appendSubs(nil, got))
}

func TestCapSubs_RoundTrip(t *testing.T) {
	subs := []CapSubTLV{
		&SRCapabilitySub{
			Flags:  SRCapFlags{MPLSIPv4: true, MPLSIPv6: true},
			Ranges: []SRRange{{Range: 8000, SID: NewLabel(16000)}, {Range: 100, SID: NewIndex(900000)}},
		},
		&SRAlgorithmSub{Algorithms: []uint8{0, 1}},
		&SRLocalBlockSub{Ranges: []SRRange{{Range: 1000, SID: NewLabel(15000)}}},
		&NodeMSDSub{Flags: 1, Depth: 10},
		&UnknownCapSub{Type: 24, Value: []byte{1, 2, 3}},
	}
	enc := appendSubs(nil, subs)
	assert.Len(t, enc, subsLen(subs))

	got, err := ParseCapSubs(enc)
	require.NoError(t, err)
	assert.Equal(t, subs, got)
	assert.Equal(t, enc, appendSubs(nil, got))
}

func TestCapSubs_SRCapabilityBytes(t *testing.T) {
	s := &SRCapabilitySub{
		Flags:  SRCapFlags{MPLSIPv4: true, MPLSIPv6: true},
		Ranges: []SRRange{{Range: 8000, SID: NewLabel(16000)}},
	}
	want := []byte{2, 9, 0xc0, 0x00, 0x1f, 0x40, 1, 3, 0x00, 0x3e, 0x80}
	assert.Equal(t, want, appendSubs(nil, []CapSubTLV{s}))
}

// The same code means different things in different containers.
func TestSubNamespaces_Scoped(t *testing.T) {
	// 3 is Prefix-SID only inside a prefix entry.
	neigh, err := ParseNeighSubs([]byte{3, 6, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.IsType(t, &UnknownNeighSub{}, neigh[0])

	pfx, err := ParsePrefixSubs([]byte{3, 6, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.IsType(t, &PrefixSIDSub{}, pfx[0])

	// 6 is an IPv4 interface address only inside an IS reachability entry.
	pfx, err = ParsePrefixSubs([]byte{6, 4, 10, 0, 0, 1})
	require.NoError(t, err)
	assert.IsType(t, &UnknownPrefixSub{}, pfx[0])

	// 22 is the SR local block inside a Router Capability TLV.
	caps, err := ParseCapSubs([]byte{22, 1, 0})
	require.NoError(t, err)
	assert.IsType(t, &SRLocalBlockSub{}, caps[0])

	caps, err = ParseCapSubs([]byte{31, 1, 0})
	require.NoError(t, err)
	assert.IsType(t, &UnknownCapSub{}, caps[0])
}

func TestSubs_Errors(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) error
		raw   []byte
		want  error
	}{
		{"neigh header", parseNeigh, []byte{31}, ErrIncomplete},
		{"neigh overrun", parseNeigh, []byte{6, 4, 10, 0}, ErrIncomplete},
		{"adj-sid short", parseNeigh, []byte{31, 1, 0x30}, ErrIncomplete},
		{"adj-sid bad sid", parseNeigh, []byte{31, 4, 0x30, 0, 1, 2}, ErrMalformed},
		{"lan adj-sid short", parseNeigh, []byte{32, 5, 0, 0, 1, 2, 3}, ErrIncomplete},
		{"ipv4 addr size", parseNeigh, []byte{8, 3, 10, 0, 0}, ErrMalformed},
		{"ipv6 addr size", parseNeigh, []byte{12, 4, 0, 0, 0, 0}, ErrMalformed},
		{"prefix-sid short", parsePrefix, []byte{3, 1, 0}, ErrIncomplete},
		{"prefix-sid bad sid", parsePrefix, []byte{3, 7, 0, 0, 1, 2, 3, 4, 5}, ErrMalformed},
		{"sr cap empty", parseCap, []byte{2, 0}, ErrIncomplete},
		{"sr cap short range", parseCap, []byte{2, 3, 0x80, 0, 0}, ErrIncomplete},
		{"sr cap sid overrun", parseCap, []byte{2, 7, 0x80, 0, 0, 1, 1, 3, 0}, ErrIncomplete},
		{"sr cap bad sid", parseCap, []byte{2, 7, 0x80, 0, 0, 1, 1, 1, 0}, ErrMalformed},
		{"msd size", parseCap, []byte{23, 3, 1, 2, 3}, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.parse(tt.raw), tt.want)
		})
	}
}

func parseNeigh(b []byte) error {
	_, err := ParseNeighSubs(b)
	return err
}

func parsePrefix(b []byte) error {
	_, err := ParsePrefixSubs(b)
	return err
}

func parseCap(b []byte) error {
	_, err := ParseCapSubs(b)
	return err
}
