package isis

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strings"
)

// NLPIDs carried in the Protocols Supported TLV.
const (
	NLPIDIPv4 uint8 = 0xcc
	NLPIDIPv6 uint8 = 0x8e
)

// AreaAddrTLV lists area addresses. Each area carries its own length octet.
type AreaAddrTLV struct {
	Areas [][]byte
}

func (*AreaAddrTLV) Type() uint8 { return TLVAreaAddr }

func (t *AreaAddrTLV) Len() int {
	n := 0
	for _, a := range t.Areas {
		n += 1 + len(a)
	}
	return n
}

func (t *AreaAddrTLV) AppendValue(b []byte) []byte {
	for _, a := range t.Areas {
		b = append(b, byte(len(a)))
		b = append(b, a...)
	}
	return b
}

func decodeAreaAddr(v []byte) (TLV, error) {
	t := &AreaAddrTLV{}
	r := newReader(v, "area address")
	for !r.empty() {
		n, err := r.u8()
		if err != nil {
			return nil, err
		}
		a, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		t.Areas = append(t.Areas, clone(a))
	}
	return t, nil
}

// MACAddr is a LAN SNPA.
type MACAddr [6]byte

func (m MACAddr) String() string { return net.HardwareAddr(m[:]).String() }

// ISNeighborTLV lists the SNPAs of LAN neighbors seen in Hellos.
type ISNeighborTLV struct {
	Neighbors []MACAddr
}

func (*ISNeighborTLV) Type() uint8 { return TLVISNeighbor }
func (t *ISNeighborTLV) Len() int  { return 6 * len(t.Neighbors) }

func (t *ISNeighborTLV) AppendValue(b []byte) []byte {
	for _, m := range t.Neighbors {
		b = append(b, m[:]...)
	}
	return b
}

func decodeISNeighbor(v []byte) (TLV, error) {
	if len(v)%6 != 0 {
		return nil, malformed("is neighbors", "length %d is not a multiple of 6", len(v))
	}
	t := &ISNeighborTLV{}
	for i := 0; i < len(v); i += 6 {
		t.Neighbors = append(t.Neighbors, MACAddr(v[i:i+6]))
	}
	return t, nil
}

type PaddingTLV struct {
	Data []byte
}

// NewPadding returns a padding TLV with n zero octets.
func NewPadding(n int) *PaddingTLV {
	return &PaddingTLV{Data: make([]byte, n)}
}

func (*PaddingTLV) Type() uint8                   { return TLVPadding }
func (t *PaddingTLV) Len() int                    { return len(t.Data) }
func (t *PaddingTLV) AppendValue(b []byte) []byte { return append(b, t.Data...) }

// LSPEntry summarizes one LSP inside a CSNP or PSNP.
type LSPEntry struct {
	Lifetime uint16
	LSPID    LSPID
	SeqNum   uint32
	Checksum uint16
}

const lspEntryLen = 2 + LSPIDLen + 4 + 2

type LSPEntriesTLV struct {
	Entries []LSPEntry
}

func (*LSPEntriesTLV) Type() uint8 { return TLVLSPEntries }
func (t *LSPEntriesTLV) Len() int  { return lspEntryLen * len(t.Entries) }

func (t *LSPEntriesTLV) AppendValue(b []byte) []byte {
	for _, e := range t.Entries {
		b = append(b, byte(e.Lifetime>>8), byte(e.Lifetime))
		b = append(b, e.LSPID[:]...)
		b = append(b, byte(e.SeqNum>>24), byte(e.SeqNum>>16), byte(e.SeqNum>>8), byte(e.SeqNum))
		b = append(b, byte(e.Checksum>>8), byte(e.Checksum))
	}
	return b
}

func decodeLSPEntries(v []byte) (TLV, error) {
	if len(v)%lspEntryLen != 0 {
		return nil, malformed("lsp entries", "length %d is not a multiple of %d", len(v), lspEntryLen)
	}
	t := &LSPEntriesTLV{}
	for i := 0; i < len(v); i += lspEntryLen {
		rec := v[i : i+lspEntryLen]
		t.Entries = append(t.Entries, LSPEntry{
			Lifetime: binary.BigEndian.Uint16(rec[0:2]),
			LSPID:    LSPID(rec[2:10]),
			SeqNum:   binary.BigEndian.Uint32(rec[10:14]),
			Checksum: binary.BigEndian.Uint16(rec[14:16]),
		})
	}
	return t, nil
}

type ProtocolsSupportedTLV struct {
	NLPIDs []uint8
}

func (*ProtocolsSupportedTLV) Type() uint8                   { return TLVProtocolsSupported }
func (t *ProtocolsSupportedTLV) Len() int                    { return len(t.NLPIDs) }
func (t *ProtocolsSupportedTLV) AppendValue(b []byte) []byte { return append(b, t.NLPIDs...) }

type IPv4IfAddrTLV struct {
	Addrs []netip.Addr
}

func (*IPv4IfAddrTLV) Type() uint8 { return TLVIPv4IfAddr }
func (t *IPv4IfAddrTLV) Len() int  { return 4 * len(t.Addrs) }

func (t *IPv4IfAddrTLV) AppendValue(b []byte) []byte {
	for _, a := range t.Addrs {
		b = appendIPv4(b, a)
	}
	return b
}

func decodeIPv4IfAddr(v []byte) (TLV, error) {
	if len(v)%4 != 0 {
		return nil, malformed("ipv4 interface address", "length %d is not a multiple of 4", len(v))
	}
	t := &IPv4IfAddrTLV{}
	for i := 0; i < len(v); i += 4 {
		t.Addrs = append(t.Addrs, netip.AddrFrom4([4]byte(v[i:i+4])))
	}
	return t, nil
}

type TERouterIDTLV struct {
	RouterID netip.Addr
}

func (*TERouterIDTLV) Type() uint8                   { return TLVTERouterID }
func (*TERouterIDTLV) Len() int                      { return 4 }
func (t *TERouterIDTLV) AppendValue(b []byte) []byte { return appendIPv4(b, t.RouterID) }
func (t *TERouterIDTLV) validate() error             { return checkIPv4(t.RouterID, "te router id") }

func decodeTERouterID(v []byte) (TLV, error) {
	if len(v) != 4 {
		return nil, malformed("te router id", "length %d, want 4", len(v))
	}
	return &TERouterIDTLV{RouterID: netip.AddrFrom4([4]byte(v))}, nil
}

// HostnameTLV is the dynamic hostname (RFC 5301). Invalid UTF-8 is replaced
// on decode, so such names do not re-encode to the same bytes.
type HostnameTLV struct {
	Hostname string
}

func (*HostnameTLV) Type() uint8                   { return TLVHostname }
func (t *HostnameTLV) Len() int                    { return len(t.Hostname) }
func (t *HostnameTLV) AppendValue(b []byte) []byte { return append(b, t.Hostname...) }

func decodeHostname(v []byte) TLV {
	return &HostnameTLV{Hostname: strings.ToValidUTF8(string(v), "\uFFFD")}
}

type IPv6TERouterIDTLV struct {
	RouterID netip.Addr
}

func (*IPv6TERouterIDTLV) Type() uint8                   { return TLVIPv6TERouterID }
func (*IPv6TERouterIDTLV) Len() int                      { return 16 }
func (t *IPv6TERouterIDTLV) AppendValue(b []byte) []byte { return appendIPv6(b, t.RouterID) }
func (t *IPv6TERouterIDTLV) validate() error             { return checkIPv6(t.RouterID, "ipv6 te router id") }

func decodeIPv6TERouterID(v []byte) (TLV, error) {
	if len(v) != 16 {
		return nil, malformed("ipv6 te router id", "length %d, want 16", len(v))
	}
	return &IPv6TERouterIDTLV{RouterID: netip.AddrFrom16([16]byte(v))}, nil
}

type IPv6IfAddrTLV struct {
	Addrs []netip.Addr
}

func (*IPv6IfAddrTLV) Type() uint8                   { return TLVIPv6IfAddr }
func (t *IPv6IfAddrTLV) Len() int                    { return 16 * len(t.Addrs) }
func (t *IPv6IfAddrTLV) AppendValue(b []byte) []byte { return appendIPv6List(b, t.Addrs) }

type IPv6GlobalIfAddrTLV struct {
	Addrs []netip.Addr
}

func (*IPv6GlobalIfAddrTLV) Type() uint8                   { return TLVIPv6GlobalIfAddr }
func (t *IPv6GlobalIfAddrTLV) Len() int                    { return 16 * len(t.Addrs) }
func (t *IPv6GlobalIfAddrTLV) AppendValue(b []byte) []byte { return appendIPv6List(b, t.Addrs) }

func appendIPv6List(b []byte, addrs []netip.Addr) []byte {
	for _, a := range addrs {
		b = appendIPv6(b, a)
	}
	return b
}

func decodeIPv6List(v []byte, ctx string) ([]netip.Addr, error) {
	if len(v)%16 != 0 {
		return nil, malformed(ctx, "length %d is not a multiple of 16", len(v))
	}
	var addrs []netip.Addr
	for i := 0; i < len(v); i += 16 {
		addrs = append(addrs, netip.AddrFrom16([16]byte(v[i:i+16])))
	}
	return addrs, nil
}
