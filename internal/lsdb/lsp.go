package lsdb

import (
	"net/netip"

	"github.com/route-beacon/isis-ingester/internal/isis"
)

// LSPUpdate is the state-relevant content of one received LSP.
type LSPUpdate struct {
	Collector string
	Level     isis.Level
	LSPID     isis.LSPID
	SeqNum    uint32
	Lifetime  uint16
	Checksum  uint16
	Flags     isis.LSPFlags
	Hostname  string
	Prefixes  []Prefix
}

// Purge reports whether the LSP is a purge (remaining lifetime zero).
func (u *LSPUpdate) Purge() bool { return u.Lifetime == 0 }

// Prefix is one reachability entry advertised in an LSP.
type Prefix struct {
	MTID     uint16 // 0 outside the multi-topology TLVs
	Prefix   netip.Prefix
	Metric   uint32
	Down     bool
	External bool // IPv6 only
	SID      *isis.SIDLabel
}

// NewLSPUpdate extracts the hostname and the IPv4/IPv6 prefixes of an LSP.
func NewLSPUpdate(collector string, lsp *isis.LSP) *LSPUpdate {
	u := &LSPUpdate{
		Collector: collector,
		Level:     lsp.Level,
		LSPID:     lsp.LSPID,
		SeqNum:    lsp.SeqNum,
		Lifetime:  lsp.Lifetime,
		Checksum:  lsp.Checksum,
		Flags:     lsp.Flags,
	}
	for _, t := range lsp.TLVs {
		switch v := t.(type) {
		case *isis.HostnameTLV:
			u.Hostname = v.Hostname
		case *isis.ExtIPReachTLV:
			u.Prefixes = appendIPv4(u.Prefixes, 0, v.Entries)
		case *isis.MTIPReachTLV:
			u.Prefixes = appendIPv4(u.Prefixes, v.Topology(), v.Entries)
		case *isis.IPv6ReachTLV:
			u.Prefixes = appendIPv6(u.Prefixes, 0, v.Entries)
		case *isis.MTIPv6ReachTLV:
			u.Prefixes = appendIPv6(u.Prefixes, v.Topology(), v.Entries)
		}
	}
	return u
}

func appendIPv4(out []Prefix, mtid uint16, es []isis.ExtIPReachEntry) []Prefix {
	for _, e := range es {
		out = append(out, Prefix{
			MTID:   mtid,
			Prefix: e.Prefix,
			Metric: e.Metric,
			Down:   e.Flags.Down,
			SID:    prefixSID(e.Subs),
		})
	}
	return out
}

func appendIPv6(out []Prefix, mtid uint16, es []isis.IPv6ReachEntry) []Prefix {
	for _, e := range es {
		out = append(out, Prefix{
			MTID:     mtid,
			Prefix:   e.Prefix,
			Metric:   e.Metric,
			Down:     e.Flags.Down,
			External: e.Flags.External,
			SID:      prefixSID(e.Subs),
		})
	}
	return out
}

// prefixSID returns the first algorithm-0 Prefix-SID, if any.
func prefixSID(subs []isis.PrefixSubTLV) *isis.SIDLabel {
	for _, s := range subs {
		if ps, ok := s.(*isis.PrefixSIDSub); ok && ps.Algorithm == 0 {
			sid := ps.SID
			return &sid
		}
	}
	return nil
}
