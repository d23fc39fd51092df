package isis

import (
	"net/netip"
)

// Sub-TLV codes valid inside an Extended IS Reachability entry.
const (
	NeighSubIPv4IfAddr    uint8 = 6
	NeighSubIPv4NeighAddr uint8 = 8
	NeighSubIPv6IfAddr    uint8 = 12
	NeighSubIPv6NeighAddr uint8 = 13
	NeighSubAdjSID        uint8 = 31
	NeighSubLANAdjSID     uint8 = 32
)

// NeighSubTLV is a sub-TLV of an Extended IS Reachability entry.
type NeighSubTLV interface {
	Code() uint8
	Len() int
	AppendValue(b []byte) []byte
	neighSub()
}

type IPv4IfAddrSub struct{ Addr netip.Addr }

type IPv4NeighAddrSub struct{ Addr netip.Addr }

type IPv6IfAddrSub struct{ Addr netip.Addr }

type IPv6NeighAddrSub struct{ Addr netip.Addr }

// AdjSIDSub is the point-to-point Adjacency Segment Identifier.
type AdjSIDSub struct {
	Flags  AdjSIDFlags
	Weight uint8
	SID    SIDLabel
}

// LANAdjSIDSub is the LAN Adjacency Segment Identifier. It names the
// neighbor the SID points at.
type LANAdjSIDSub struct {
	Flags    AdjSIDFlags
	Weight   uint8
	Neighbor SystemID
	SID      SIDLabel
}

type UnknownNeighSub struct {
	Type  uint8
	Value []byte
}

func (*IPv4IfAddrSub) Code() uint8     { return NeighSubIPv4IfAddr }
func (*IPv4NeighAddrSub) Code() uint8  { return NeighSubIPv4NeighAddr }
func (*IPv6IfAddrSub) Code() uint8     { return NeighSubIPv6IfAddr }
func (*IPv6NeighAddrSub) Code() uint8  { return NeighSubIPv6NeighAddr }
func (*AdjSIDSub) Code() uint8         { return NeighSubAdjSID }
func (*LANAdjSIDSub) Code() uint8      { return NeighSubLANAdjSID }
func (s *UnknownNeighSub) Code() uint8 { return s.Type }

func (*IPv4IfAddrSub) Len() int     { return 4 }
func (*IPv4NeighAddrSub) Len() int  { return 4 }
func (*IPv6IfAddrSub) Len() int     { return 16 }
func (*IPv6NeighAddrSub) Len() int  { return 16 }
func (s *AdjSIDSub) Len() int       { return 2 + s.SID.Len() }
func (s *LANAdjSIDSub) Len() int    { return 2 + SystemIDLen + s.SID.Len() }
func (s *UnknownNeighSub) Len() int { return len(s.Value) }

func (s *IPv4IfAddrSub) AppendValue(b []byte) []byte    { return appendIPv4(b, s.Addr) }
func (s *IPv4NeighAddrSub) AppendValue(b []byte) []byte { return appendIPv4(b, s.Addr) }
func (s *IPv6IfAddrSub) AppendValue(b []byte) []byte    { return appendIPv6(b, s.Addr) }
func (s *IPv6NeighAddrSub) AppendValue(b []byte) []byte { return appendIPv6(b, s.Addr) }

func (s *AdjSIDSub) AppendValue(b []byte) []byte {
	b = append(b, s.Flags.Byte(), s.Weight)
	return s.SID.AppendTo(b)
}

func (s *LANAdjSIDSub) AppendValue(b []byte) []byte {
	b = append(b, s.Flags.Byte(), s.Weight)
	b = append(b, s.Neighbor[:]...)
	return s.SID.AppendTo(b)
}

func (s *UnknownNeighSub) AppendValue(b []byte) []byte { return append(b, s.Value...) }

func (*IPv4IfAddrSub) neighSub()    {}
func (*IPv4NeighAddrSub) neighSub() {}
func (*IPv6IfAddrSub) neighSub()    {}
func (*IPv6NeighAddrSub) neighSub() {}
func (*AdjSIDSub) neighSub()        {}
func (*LANAdjSIDSub) neighSub()     {}
func (*UnknownNeighSub) neighSub()  {}

// ParseNeighSubs decodes the sub-TLV block of an IS reachability entry.
func ParseNeighSubs(b []byte) ([]NeighSubTLV, error) {
	return parseSubs(b, "neighbor sub-tlv", decodeNeighSub)
}

func decodeNeighSub(code uint8, v []byte) (NeighSubTLV, error) {
	switch code {
	case NeighSubIPv4IfAddr, NeighSubIPv4NeighAddr:
		if len(v) != 4 {
			return nil, malformed("neighbor sub-tlv", "code %d length %d, want 4", code, len(v))
		}
		a := netip.AddrFrom4([4]byte(v))
		if code == NeighSubIPv4IfAddr {
			return &IPv4IfAddrSub{Addr: a}, nil
		}
		return &IPv4NeighAddrSub{Addr: a}, nil
	case NeighSubIPv6IfAddr, NeighSubIPv6NeighAddr:
		if len(v) != 16 {
			return nil, malformed("neighbor sub-tlv", "code %d length %d, want 16", code, len(v))
		}
		a := netip.AddrFrom16([16]byte(v))
		if code == NeighSubIPv6IfAddr {
			return &IPv6IfAddrSub{Addr: a}, nil
		}
		return &IPv6NeighAddrSub{Addr: a}, nil
	case NeighSubAdjSID:
		if len(v) < 2 {
			return nil, incomplete("adj-sid", 2, len(v))
		}
		sid, err := DecodeSIDLabel(v[2:])
		if err != nil {
			return nil, err
		}
		return &AdjSIDSub{Flags: AdjSIDFlagsFromByte(v[0]), Weight: v[1], SID: sid}, nil
	case NeighSubLANAdjSID:
		if len(v) < 2+SystemIDLen {
			return nil, incomplete("lan adj-sid", 2+SystemIDLen, len(v))
		}
		sid, err := DecodeSIDLabel(v[2+SystemIDLen:])
		if err != nil {
			return nil, err
		}
		return &LANAdjSIDSub{
			Flags:    AdjSIDFlagsFromByte(v[0]),
			Weight:   v[1],
			Neighbor: SystemID(v[2 : 2+SystemIDLen]),
			SID:      sid,
		}, nil
	default:
		return &UnknownNeighSub{Type: code, Value: clone(v)}, nil
	}
}
