package isis

import (
	"encoding/binary"
	"net/netip"
)

const (
	isReachFixedLen   = NeighborIDLen + 3 + 1
	ipv4ReachFixedLen = 4 + 1
	ipv6ReachFixedLen = 4 + 1 + 1
	mtIDLen           = 2

	// MaxWideMetric is the largest metric of an extended IS reachability
	// entry.
	MaxWideMetric = 0xffffff
)

// ExtISReachEntry is one neighbor of the Extended IS Reachability TLV. The
// sub-TLV length octet is always present on the wire.
type ExtISReachEntry struct {
	Neighbor NeighborID
	Metric   uint32 // 24 bits
	Subs     []NeighSubTLV
}

func (e *ExtISReachEntry) Len() int {
	return isReachFixedLen + subsLen(e.Subs)
}

func (e *ExtISReachEntry) appendTo(b []byte) []byte {
	b = append(b, e.Neighbor[:]...)
	b = appendU24(b, e.Metric)
	b = append(b, byte(subsLen(e.Subs)))
	return appendSubs(b, e.Subs)
}

type ExtISReachTLV struct {
	Entries []ExtISReachEntry
}

func (*ExtISReachTLV) Type() uint8 { return TLVExtISReach }

func (t *ExtISReachTLV) Len() int {
	n := 0
	for i := range t.Entries {
		n += t.Entries[i].Len()
	}
	return n
}

func (t *ExtISReachTLV) validate() error {
	for i := range t.Entries {
		if m := t.Entries[i].Metric; m > MaxWideMetric {
			return malformed("is reachability entry", "metric %d exceeds 24 bits", m)
		}
	}
	return nil
}

func (t *ExtISReachTLV) AppendValue(b []byte) []byte {
	for i := range t.Entries {
		b = t.Entries[i].appendTo(b)
	}
	return b
}

func decodeExtISReach(v []byte) (TLV, error) {
	t := &ExtISReachTLV{}
	r := newReader(v, "is reachability entry")
	for !r.empty() {
		fixed, err := r.take(isReachFixedLen)
		if err != nil {
			return nil, err
		}
		e := ExtISReachEntry{
			Neighbor: NeighborID(fixed[:NeighborIDLen]),
			Metric:   uint32(fixed[7])<<16 | uint32(fixed[8])<<8 | uint32(fixed[9]),
		}
		sub, err := r.take(int(fixed[10]))
		if err != nil {
			return nil, err
		}
		if e.Subs, err = ParseNeighSubs(sub); err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

// ExtIPReachEntry is one IPv4 prefix of TLV 135 or 235. Prefix must be an
// IPv4 prefix; anything else encodes as 0.0.0.0/0.
type ExtIPReachEntry struct {
	Metric uint32
	Flags  ExtIPReachFlags
	Prefix netip.Prefix
	Subs   []PrefixSubTLV
}

func (e *ExtIPReachEntry) prefix() netip.Prefix {
	if !e.Prefix.IsValid() || !e.Prefix.Addr().Is4() {
		return netip.PrefixFrom(netip.IPv4Unspecified(), 0)
	}
	return e.Prefix
}

// hasSubBlock reports whether the S bit goes on the wire.
func (e *ExtIPReachEntry) hasSubBlock() bool {
	return e.Flags.SubTLVs || len(e.Subs) > 0
}

func (e *ExtIPReachEntry) Len() int {
	n := ipv4ReachFixedLen + PrefixBytes(e.prefix().Bits())
	if e.hasSubBlock() {
		n += 1 + subsLen(e.Subs)
	}
	return n
}

func (e *ExtIPReachEntry) appendTo(b []byte) []byte {
	p := e.prefix()
	b = binary.BigEndian.AppendUint32(b, e.Metric)
	ctl := bit(e.Flags.Down, ipv4CtlDown) | bit(e.hasSubBlock(), ipv4CtlSubTLVs) | uint8(p.Bits())&ipv4CtlLenMask
	b = append(b, ctl)
	b = AppendPrefix(b, p)
	if e.hasSubBlock() {
		b = append(b, byte(subsLen(e.Subs)))
		b = appendSubs(b, e.Subs)
	}
	return b
}

// IPv6ReachEntry is one IPv6 prefix of TLV 236 or 237.
type IPv6ReachEntry struct {
	Metric uint32
	Flags  IPv6ReachFlags
	Prefix netip.Prefix
	Subs   []PrefixSubTLV
}

func (e *IPv6ReachEntry) prefix() netip.Prefix {
	if !e.Prefix.IsValid() || !e.Prefix.Addr().Is6() {
		return netip.PrefixFrom(netip.IPv6Unspecified(), 0)
	}
	return e.Prefix
}

func (e *IPv6ReachEntry) hasSubBlock() bool {
	return e.Flags.SubTLVs || len(e.Subs) > 0
}

func (e *IPv6ReachEntry) Len() int {
	n := ipv6ReachFixedLen + PrefixBytes(e.prefix().Bits())
	if e.hasSubBlock() {
		n += 1 + subsLen(e.Subs)
	}
	return n
}

func (e *IPv6ReachEntry) appendTo(b []byte) []byte {
	p := e.prefix()
	flags := e.Flags
	flags.SubTLVs = e.hasSubBlock()
	b = binary.BigEndian.AppendUint32(b, e.Metric)
	b = append(b, flags.Byte(), uint8(p.Bits()))
	b = AppendPrefix(b, p)
	if e.hasSubBlock() {
		b = append(b, byte(subsLen(e.Subs)))
		b = appendSubs(b, e.Subs)
	}
	return b
}

type ExtIPReachTLV struct {
	Entries []ExtIPReachEntry
}

func (*ExtIPReachTLV) Type() uint8                   { return TLVExtIPReach }
func (t *ExtIPReachTLV) Len() int                    { return ipv4EntriesLen(t.Entries) }
func (t *ExtIPReachTLV) AppendValue(b []byte) []byte { return appendIPv4Entries(b, t.Entries) }

type IPv6ReachTLV struct {
	Entries []IPv6ReachEntry
}

func (*IPv6ReachTLV) Type() uint8                   { return TLVIPv6Reach }
func (t *IPv6ReachTLV) Len() int                    { return ipv6EntriesLen(t.Entries) }
func (t *IPv6ReachTLV) AppendValue(b []byte) []byte { return appendIPv6Entries(b, t.Entries) }

// MTIPReachTLV is the multi-topology form of TLV 135 (RFC 5120). MTID holds
// the whole 16-bit field; the topology is the low 12 bits.
type MTIPReachTLV struct {
	MTID    uint16
	Entries []ExtIPReachEntry
}

func (*MTIPReachTLV) Type() uint8 { return TLVMTIPReach }
func (t *MTIPReachTLV) Len() int  { return mtIDLen + ipv4EntriesLen(t.Entries) }

func (t *MTIPReachTLV) AppendValue(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, t.MTID)
	return appendIPv4Entries(b, t.Entries)
}

// Topology is the multi-topology ID without the reserved bits.
func (t *MTIPReachTLV) Topology() uint16 { return t.MTID & 0x0fff }

type MTIPv6ReachTLV struct {
	MTID    uint16
	Entries []IPv6ReachEntry
}

func (*MTIPv6ReachTLV) Type() uint8 { return TLVMTIPv6Reach }
func (t *MTIPv6ReachTLV) Len() int  { return mtIDLen + ipv6EntriesLen(t.Entries) }

func (t *MTIPv6ReachTLV) AppendValue(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, t.MTID)
	return appendIPv6Entries(b, t.Entries)
}

func (t *MTIPv6ReachTLV) Topology() uint16 { return t.MTID & 0x0fff }

func decodeMTIPReach(v []byte) (TLV, error) {
	if len(v) < mtIDLen {
		return nil, incomplete("mt id", mtIDLen, len(v))
	}
	entries, err := parseIPv4Entries(v[mtIDLen:])
	if err != nil {
		return nil, err
	}
	return &MTIPReachTLV{MTID: binary.BigEndian.Uint16(v), Entries: entries}, nil
}

func decodeMTIPv6Reach(v []byte) (TLV, error) {
	if len(v) < mtIDLen {
		return nil, incomplete("mt id", mtIDLen, len(v))
	}
	entries, err := parseIPv6Entries(v[mtIDLen:])
	if err != nil {
		return nil, err
	}
	return &MTIPv6ReachTLV{MTID: binary.BigEndian.Uint16(v), Entries: entries}, nil
}

func ipv4EntriesLen(es []ExtIPReachEntry) int {
	n := 0
	for i := range es {
		n += es[i].Len()
	}
	return n
}

func appendIPv4Entries(b []byte, es []ExtIPReachEntry) []byte {
	for i := range es {
		b = es[i].appendTo(b)
	}
	return b
}

func ipv6EntriesLen(es []IPv6ReachEntry) int {
	n := 0
	for i := range es {
		n += es[i].Len()
	}
	return n
}

func appendIPv6Entries(b []byte, es []IPv6ReachEntry) []byte {
	for i := range es {
		b = es[i].appendTo(b)
	}
	return b
}

func parseIPv4Entries(v []byte) ([]ExtIPReachEntry, error) {
	var out []ExtIPReachEntry
	r := newReader(v, "ipv4 prefix entry")
	for !r.empty() {
		var e ExtIPReachEntry
		var err error
		if e.Metric, err = r.u32(); err != nil {
			return nil, err
		}
		ctl, err := r.u8()
		if err != nil {
			return nil, err
		}
		e.Flags = ExtIPReachFlags{Down: ctl&ipv4CtlDown != 0, SubTLVs: ctl&ipv4CtlSubTLVs != 0}
		p, n, err := DecodeIPv4Prefix(r.b, int(ctl&ipv4CtlLenMask))
		if err != nil {
			return nil, err
		}
		e.Prefix = p
		r.b = r.b[n:]
		if e.Flags.SubTLVs {
			if e.Subs, err = parsePrefixSubBlock(r); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func parseIPv6Entries(v []byte) ([]IPv6ReachEntry, error) {
	var out []IPv6ReachEntry
	r := newReader(v, "ipv6 prefix entry")
	for !r.empty() {
		var e IPv6ReachEntry
		var err error
		if e.Metric, err = r.u32(); err != nil {
			return nil, err
		}
		flags, err := r.u8()
		if err != nil {
			return nil, err
		}
		e.Flags = IPv6ReachFlagsFromByte(flags)
		bits, err := r.u8()
		if err != nil {
			return nil, err
		}
		p, n, err := DecodeIPv6Prefix(r.b, int(bits))
		if err != nil {
			return nil, err
		}
		e.Prefix = p
		r.b = r.b[n:]
		if e.Flags.SubTLVs {
			if e.Subs, err = parsePrefixSubBlock(r); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func parsePrefixSubBlock(r *reader) ([]PrefixSubTLV, error) {
	n, err := r.u8()
	if err != nil {
		return nil, err
	}
	sub, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return ParsePrefixSubs(sub)
}
