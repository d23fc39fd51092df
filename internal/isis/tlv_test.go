package isis

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripTLV encodes tlv, decodes it again and checks both directions.
func roundTripTLV(t *testing.T, tlv TLV) {
	t.Helper()
	enc, err := AppendTLV(nil, tlv)
	require.NoError(t, err)
	require.Len(t, enc, 2+tlv.Len())
	assert.Equal(t, byte(tlv.Len()), enc[1])

	got, rest, err := ParseTLV(enc)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, tlv, got)

	again, err := AppendTLV(nil, got)
	require.NoError(t, err)
	assert.Equal(t, enc, again)
}

// richTLVs returns one instance of every TLV kind, nested sub-TLVs included.
func richTLVs() []TLV {
	sid := SystemID{0x19, 0x21, 0x68, 0x00, 0x00, 0x01}
	return []TLV{
		&AreaAddrTLV{Areas: [][]byte{{0x49, 0x00, 0x01}, {0x49, 0x00, 0x02}}},
		&ProtocolsSupportedTLV{NLPIDs: []uint8{NLPIDIPv4, NLPIDIPv6}},
		&HostnameTLV{Hostname: "core-1"},
		&IPv4IfAddrTLV{Addrs: []netip.Addr{netip.MustParseAddr("10.0.12.1"), netip.MustParseAddr("10.0.13.1")}},
		&TERouterIDTLV{RouterID: netip.MustParseAddr("192.168.0.1")},
		&IPv6TERouterIDTLV{RouterID: netip.MustParseAddr("2001:db8::1")},
		&IPv6IfAddrTLV{Addrs: []netip.Addr{netip.MustParseAddr("fe80::1")}},
		&IPv6GlobalIfAddrTLV{Addrs: []netip.Addr{netip.MustParseAddr("2001:db8:12::1")}},
		&ExtISReachTLV{Entries: []ExtISReachEntry{
			{
				Neighbor: NewNeighborID(SystemID{0x19, 0x21, 0x68, 0x00, 0x00, 0x02}, 0),
				Metric:   10,
				Subs: []NeighSubTLV{
					&IPv4IfAddrSub{Addr: netip.MustParseAddr("10.0.12.1")},
					&IPv4NeighAddrSub{Addr: netip.MustParseAddr("10.0.12.2")},
					&AdjSIDSub{Flags: AdjSIDFlags{Value: true, Local: true}, SID: NewLabel(24001)},
				},
			},
			{
				Neighbor: NewNeighborID(sid, 3),
				Metric:   0xffffff,
				Subs: []NeighSubTLV{
					&IPv6IfAddrSub{Addr: netip.MustParseAddr("2001:db8:13::1")},
					&IPv6NeighAddrSub{Addr: netip.MustParseAddr("2001:db8:13::2")},
					&LANAdjSIDSub{Flags: AdjSIDFlags{AddressFamily: true}, Neighbor: sid, SID: NewIndex(3)},
					&UnknownNeighSub{Type: 250, Value: []byte{1, 2}},
				},
			},
			{Neighbor: NewNeighborID(sid, 4), Metric: 1},
		}},
		&ExtIPReachTLV{Entries: []ExtIPReachEntry{
			{
				Metric: 0,
				Flags:  ExtIPReachFlags{SubTLVs: true},
				Prefix: netip.MustParsePrefix("192.168.0.1/32"),
				Subs:   []PrefixSubTLV{&PrefixSIDSub{Flags: PrefixSIDFlags{NodeSID: true}, SID: NewIndex(1)}},
			},
			{Metric: 10, Prefix: netip.MustParsePrefix("0.0.0.0/0")},
			{Metric: 20, Flags: ExtIPReachFlags{Down: true, SubTLVs: true}, Prefix: netip.MustParsePrefix("10.1.0.0/16")},
			{
				Metric: 30,
				Flags:  ExtIPReachFlags{SubTLVs: true},
				Prefix: netip.MustParsePrefix("172.16.0.0/12"),
				Subs:   []PrefixSubTLV{&UnknownPrefixSub{Type: 4, Value: []byte{0x40}}},
			},
		}},
		&MTIPReachTLV{MTID: 2, Entries: []ExtIPReachEntry{{Metric: 5, Prefix: netip.MustParsePrefix("10.2.0.0/24")}}},
		&IPv6ReachTLV{Entries: []IPv6ReachEntry{
			{
				Metric: 10,
				Flags:  IPv6ReachFlags{SubTLVs: true},
				Prefix: netip.MustParsePrefix("2001:db8::1/128"),
				Subs:   []PrefixSubTLV{&PrefixSIDSub{Flags: PrefixSIDFlags{Value: true, Local: true}, SID: NewLabel(16001)}},
			},
			{Metric: 20, Flags: IPv6ReachFlags{Down: true, External: true}, Prefix: netip.MustParsePrefix("2001:db8:100::/40")},
		}},
		&MTIPv6ReachTLV{MTID: 0x8002, Entries: []IPv6ReachEntry{{Metric: 1, Prefix: netip.MustParsePrefix("::/0")}}},
		&RouterCapTLV{
			RouterID: netip.MustParseAddr("192.168.0.1"),
			Flags:    RouterCapFlags{Scope: true},
			Subs: []CapSubTLV{
				&SRCapabilitySub{
					Flags:  SRCapFlags{MPLSIPv4: true, MPLSIPv6: true},
					Ranges: []SRRange{{Range: 8000, SID: NewLabel(16000)}},
				},
				&SRAlgorithmSub{Algorithms: []uint8{0, 1}},
				&SRLocalBlockSub{Ranges: []SRRange{{Range: 1000, SID: NewLabel(15000)}}},
				&NodeMSDSub{Flags: 1, Depth: 10},
				&UnknownCapSub{Type: 21, Value: []byte{0xff}},
			},
		},
		&UnknownTLV{Code: 250, Value: []byte{0xde, 0xad, 0xbe, 0xef}},
	}
}

func TestTLVs_RoundTrip(t *testing.T) {
	for _, tlv := range richTLVs() {
		roundTripTLV(t, tlv)
	}
}

func TestTLVs_LengthAccounting(t *testing.T) {
	for _, tlv := range richTLVs() {
		assert.Len(t, tlv.AppendValue(nil), tlv.Len(), "tlv %d", tlv.Type())

		switch v := tlv.(type) {
		case *ExtISReachTLV:
			for i := range v.Entries {
				e := &v.Entries[i]
				enc := e.appendTo(nil)
				require.Len(t, enc, e.Len())
				assert.Equal(t, byte(subsLen(e.Subs)), enc[isReachFixedLen-1])
				for _, s := range e.Subs {
					assert.Len(t, s.AppendValue(nil), s.Len())
				}
			}
		case *ExtIPReachTLV:
			for i := range v.Entries {
				e := &v.Entries[i]
				assert.Len(t, e.appendTo(nil), e.Len())
			}
		case *IPv6ReachTLV:
			for i := range v.Entries {
				e := &v.Entries[i]
				assert.Len(t, e.appendTo(nil), e.Len())
			}
		case *RouterCapTLV:
			for _, s := range v.Subs {
				assert.Len(t, s.AppendValue(nil), s.Len(), "cap sub %d", s.Code())
			}
		}
	}
}

func TestParseTLVs_Greedy(t *testing.T) {
	tlvs := richTLVs()
	enc, err := AppendTLVs(nil, tlvs)
	require.NoError(t, err)
	assert.Len(t, enc, TLVsLen(tlvs))

	got, err := ParseTLVs(enc)
	require.NoError(t, err)
	assert.Equal(t, tlvs, got)
}

func TestParseTLV_Unknown(t *testing.T) {
	raw := []byte{250, 3, 0xaa, 0xbb, 0xcc, 1, 0}
	tlv, rest, err := ParseTLV(raw)
	require.NoError(t, err)
	assert.Equal(t, &UnknownTLV{Code: 250, Value: []byte{0xaa, 0xbb, 0xcc}}, tlv)
	assert.Equal(t, []byte{1, 0}, rest)

	// The decoded value is a copy.
	raw[2] = 0
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, tlv.(*UnknownTLV).Value)

	enc, err := AppendTLV(nil, tlv)
	require.NoError(t, err)
	assert.Equal(t, []byte{250, 3, 0xaa, 0xbb, 0xcc}, enc)
}

func TestParseTLV_DeclaredLengthOverrun(t *testing.T) {
	for _, code := range []uint8{TLVAreaAddr, TLVExtISReach, TLVExtIPReach, TLVHostname, TLVRouterCap, 250} {
		for n := 1; n <= 255; n++ {
			for _, have := range []int{0, n / 2, n - 1} {
				raw := append([]byte{code, byte(n)}, make([]byte, have)...)
				_, _, err := ParseTLV(raw)
				require.ErrorIs(t, err, ErrIncomplete, "code %d len %d have %d", code, n, have)
			}
		}
	}

	_, _, err := ParseTLV([]byte{TLVHostname})
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseTLV_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"is neighbors", []byte{TLVISNeighbor, 7, 1, 2, 3, 4, 5, 6, 7}},
		{"lsp entries", []byte{TLVLSPEntries, 15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"ipv4 interface", []byte{TLVIPv4IfAddr, 5, 10, 0, 0, 1, 0}},
		{"te router id", []byte{TLVTERouterID, 3, 10, 0, 0}},
		{"ipv6 te router id", []byte{TLVIPv6TERouterID, 4, 0, 0, 0, 0}},
		{"ipv6 interface", []byte{TLVIPv6IfAddr, 4, 0, 0, 0, 0}},
		{"ipv6 prefix length", []byte{TLVIPv6Reach, 6, 0, 0, 0, 1, 0, 129}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseTLV(tt.raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseTLV_EntryTruncation(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		// Entry needs 11 octets before its sub-TLVs.
		{"is reach fixed", []byte{TLVExtISReach, 5, 0, 0, 0, 0, 0}},
		// sublen 4 with 2 octets left inside the TLV.
		{"is reach sublen", []byte{TLVExtISReach, 13, 1, 2, 3, 4, 5, 6, 0, 0, 0, 10, 4, 6, 4}},
		// /24 needs three prefix octets.
		{"ipv4 prefix", []byte{TLVExtIPReach, 7, 0, 0, 0, 1, 24, 10, 0}},
		// S bit set with no sublen octet.
		{"ipv4 sublen", []byte{TLVExtIPReach, 5, 0, 0, 0, 1, 0x40}},
		{"mt id", []byte{TLVMTIPReach, 1, 0}},
		{"router cap", []byte{TLVRouterCap, 3, 10, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseTLV(tt.raw)
			assert.ErrorIs(t, err, ErrIncomplete)
		})
	}
}

func TestExtIPReach_SubBitWithoutSubs(t *testing.T) {
	// S bit set and an empty sub-TLV block.
	raw := []byte{TLVExtIPReach, 9, 0, 0, 0, 1, 0x58, 10, 1, 0, 0}
	tlv, _, err := ParseTLV(raw)
	require.NoError(t, err)

	e := tlv.(*ExtIPReachTLV).Entries[0]
	assert.True(t, e.Flags.SubTLVs)
	assert.Empty(t, e.Subs)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/24"), e.Prefix)

	enc, err := AppendTLV(nil, tlv)
	require.NoError(t, err)
	assert.Equal(t, raw, enc)
}

func TestExtIPReach_SubsSetSBit(t *testing.T) {
	tlv := &ExtIPReachTLV{Entries: []ExtIPReachEntry{{
		Metric: 1,
		Prefix: netip.MustParsePrefix("10.0.0.0/8"),
		Subs:   []PrefixSubTLV{&UnknownPrefixSub{Type: 9}},
	}}}
	enc, err := AppendTLV(nil, tlv)
	require.NoError(t, err)
	assert.Equal(t, []byte{TLVExtIPReach, 9, 0, 0, 0, 1, 0x48, 10, 2, 9, 0}, enc)
}

func TestHostname_Lossy(t *testing.T) {
	tlv, _, err := ParseTLV([]byte{TLVHostname, 3, 'a', 0xff, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", tlv.(*HostnameTLV).Hostname)
}

func TestAppendTLV_ValueTooLong(t *testing.T) {
	_, err := AppendTLV(nil, &HostnameTLV{Hostname: strings.Repeat("x", 256)})
	assert.ErrorIs(t, err, ErrValueTooLong)

	enc, err := AppendTLV(nil, &HostnameTLV{Hostname: strings.Repeat("x", 255)})
	require.NoError(t, err)
	assert.Len(t, enc, 257)

	// An oversized sub-TLV makes its TLV oversized as well.
	big := &RouterCapTLV{
		RouterID: netip.MustParseAddr("10.0.0.1"),
		Subs:     []CapSubTLV{&UnknownCapSub{Type: 99, Value: make([]byte, 300)}},
	}
	_, err = AppendTLV(nil, big)
	assert.ErrorIs(t, err, ErrValueTooLong)
}

func TestAppendTLV_RejectsUnencodableFields(t *testing.T) {
	tests := []struct {
		name string
		tlv  TLV
	}{
		{"is metric above 24 bits", &ExtISReachTLV{Entries: []ExtISReachEntry{{Metric: MaxWideMetric + 2}}}},
		{"router cap without router id", &RouterCapTLV{}},
		{"router cap with ipv6 router id", &RouterCapTLV{RouterID: netip.MustParseAddr("2001:db8::1")}},
		{"te router id unset", &TERouterIDTLV{}},
		{"ipv6 te router id holds ipv4", &IPv6TERouterIDTLV{RouterID: netip.MustParseAddr("192.0.2.1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := AppendTLV([]byte{0xaa}, tt.tlv)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Equal(t, []byte{0xaa}, enc)
		})
	}

	ok := &ExtISReachTLV{Entries: []ExtISReachEntry{{Metric: MaxWideMetric}}}
	enc, err := AppendTLV(nil, ok)
	require.NoError(t, err)
	got, _, err := ParseTLV(enc)
	require.NoError(t, err)
	assert.Equal(t, ok, got)
}

func TestParseTLV_LSPEntries(t *testing.T) {
	raw := []byte{
		TLVLSPEntries, 16,
		0x04, 0xaf,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x01, 0x02,
		0x00, 0x00, 0x00, 0x09,
		0xbe, 0xef,
	}
	got, rest, err := ParseTLV(raw)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, &LSPEntriesTLV{Entries: []LSPEntry{{
		Lifetime: 1199,
		LSPID:    NewLSPID(SystemID{1, 2, 3, 4, 5, 6}, 1, 2),
		SeqNum:   9,
		Checksum: 0xbeef,
	}}}, got)
}

func TestNewPadding(t *testing.T) {
	p := NewPadding(4)
	enc, err := AppendTLV(nil, p)
	require.NoError(t, err)
	assert.Equal(t, []byte{TLVPadding, 4, 0, 0, 0, 0}, enc)
}

func TestRouterCap_SRCapability(t *testing.T) {
	var rc *RouterCapTLV
	for _, tlv := range richTLVs() {
		if v, ok := tlv.(*RouterCapTLV); ok {
			rc = v
		}
	}
	require.NotNil(t, rc)
	sr, ok := rc.SRCapability()
	require.True(t, ok)
	assert.Equal(t, uint32(8000), sr.Ranges[0].Range)

	_, ok = (&RouterCapTLV{}).SRCapability()
	assert.False(t, ok)
}
