package isis

import (
	"net/netip"
)

const routerCapFixedLen = 4 + 1

// RouterCapTLV is the IS-IS Router Capability TLV (RFC 7981).
type RouterCapTLV struct {
	RouterID netip.Addr
	Flags    RouterCapFlags
	Subs     []CapSubTLV
}

func (*RouterCapTLV) Type() uint8 { return TLVRouterCap }
func (t *RouterCapTLV) Len() int  { return routerCapFixedLen + subsLen(t.Subs) }

func (t *RouterCapTLV) validate() error {
	return checkIPv4(t.RouterID, "router capability")
}

func (t *RouterCapTLV) AppendValue(b []byte) []byte {
	b = appendIPv4(b, t.RouterID)
	b = append(b, t.Flags.Byte())
	return appendSubs(b, t.Subs)
}

// SRCapability returns the first SR Capabilities sub-TLV, if any.
func (t *RouterCapTLV) SRCapability() (*SRCapabilitySub, bool) {
	for _, s := range t.Subs {
		if c, ok := s.(*SRCapabilitySub); ok {
			return c, true
		}
	}
	return nil, false
}

func decodeRouterCap(v []byte) (TLV, error) {
	r := newReader(v, "router capability")
	id, err := r.ipv4()
	if err != nil {
		return nil, err
	}
	flags, err := r.u8()
	if err != nil {
		return nil, err
	}
	subs, err := ParseCapSubs(r.rest())
	if err != nil {
		return nil, err
	}
	return &RouterCapTLV{RouterID: id, Flags: RouterCapFlagsFromByte(flags), Subs: subs}, nil
}
