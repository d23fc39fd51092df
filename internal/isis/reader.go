package isis

import (
	"encoding/binary"
	"net/netip"
)

// reader walks a bounded byte slice. Every accessor checks the remaining
// length before slicing, so a reader never indexes past its own bound.
type reader struct {
	b   []byte
	ctx string
}

func newReader(b []byte, ctx string) *reader {
	return &reader{b: b, ctx: ctx}
}

func (r *reader) len() int { return len(r.b) }

func (r *reader) empty() bool { return len(r.b) == 0 }

func (r *reader) rest() []byte {
	b := r.b
	r.b = nil
	return b
}

func (r *reader) take(n int) ([]byte, error) {
	if n > len(r.b) {
		return nil, incomplete(r.ctx, n, len(r.b))
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v, nil
}

func (r *reader) u8() (uint8, error) {
	v, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (r *reader) u24() (uint32, error) {
	v, err := r.take(3)
	if err != nil {
		return 0, err
	}
	return uint32(v[0])<<16 | uint32(v[1])<<8 | uint32(v[2]), nil
}

func (r *reader) u32() (uint32, error) {
	v, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}

func (r *reader) ipv4() (netip.Addr, error) {
	v, err := r.take(4)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom4([4]byte(v)), nil
}

func (r *reader) ipv6() (netip.Addr, error) {
	v, err := r.take(16)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom16([16]byte(v)), nil
}

// clone copies b so decoded values never alias the input buffer. Empty input
// yields nil.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func appendU24(b []byte, v uint32) []byte {
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}

// appendIPv4 writes a 4-octet address. Anything that is not an IPv4 (or
// IPv4-mapped) address is written as 0.0.0.0.
func appendIPv4(b []byte, a netip.Addr) []byte {
	a = a.Unmap()
	if !a.Is4() {
		return append(b, 0, 0, 0, 0)
	}
	v := a.As4()
	return append(b, v[:]...)
}

// checkIPv4 rejects addresses that appendIPv4 could not write back as
// themselves.
func checkIPv4(a netip.Addr, ctx string) error {
	if !a.Is4() {
		return malformed(ctx, "address %v is not ipv4", a)
	}
	return nil
}

func checkIPv6(a netip.Addr, ctx string) error {
	if !a.Is6() {
		return malformed(ctx, "address %v is not ipv6", a)
	}
	return nil
}

// appendIPv6 writes a 16-octet address. An invalid address is written as ::.
func appendIPv6(b []byte, a netip.Addr) []byte {
	if !a.IsValid() {
		var zero [16]byte
		return append(b, zero[:]...)
	}
	v := a.As16()
	return append(b, v[:]...)
}
