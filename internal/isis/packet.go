package isis

import (
	"fmt"
)

// Discriminator is the intradomain routing protocol discriminator.
const Discriminator uint8 = 0x83

const commonHeaderLen = 8

// Packet is an IS-IS PDU with its common header. Header fields are kept as
// received; Marshal writes them back unchanged.
type Packet struct {
	Discriminator   uint8
	LengthIndicator uint8
	IDExtension     uint8
	IDLength        uint8 // 0 means 6-octet system IDs
	PDUType         PDUType
	Version         uint8
	Reserved        uint8
	MaxAreaAddr     uint8 // 0 means 3
	PDU             PDU
}

// NewPacket wraps pdu in a standard common header.
func NewPacket(pdu PDU) *Packet {
	return &Packet{
		Discriminator:   Discriminator,
		LengthIndicator: uint8(pdu.Type().FixedHeaderLen()),
		IDExtension:     1,
		IDLength:        0,
		PDUType:         pdu.Type(),
		Version:         1,
		PDU:             pdu,
	}
}

// Parse decodes one packet from b. It returns the number of bytes consumed,
// which is len(b) on success since TLV lists extend to the end of the input.
func Parse(b []byte) (*Packet, int, error) {
	if len(b) < 1 {
		return nil, 0, fmt.Errorf("isis: %w", incomplete("discriminator", 1, 0))
	}
	if b[0] != Discriminator {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrBadDiscriminator, b[0])
	}
	if len(b) < commonHeaderLen {
		return nil, 0, fmt.Errorf("isis: %w", incomplete("common header", commonHeaderLen, len(b)))
	}
	p := &Packet{
		Discriminator:   b[0],
		LengthIndicator: b[1],
		IDExtension:     b[2],
		IDLength:        b[3],
		PDUType:         PDUType(b[4]),
		Version:         b[5],
		Reserved:        b[6],
		MaxAreaAddr:     b[7],
	}
	pdu, err := decodePDU(p.PDUType, b[commonHeaderLen:])
	if err != nil {
		return nil, 0, fmt.Errorf("isis: %s: %w", p.PDUType, err)
	}
	p.PDU = pdu
	return p, len(b), nil
}

// Len is the encoded size of the packet.
func (p *Packet) Len() int {
	if p.PDU == nil {
		return commonHeaderLen
	}
	return p.PDU.Len()
}

func (p *Packet) Marshal() ([]byte, error) {
	return p.AppendTo(make([]byte, 0, p.Len()))
}

// AppendTo appends the encoded packet to b. The PDU length field counts
// from the first octet of this packet, not from the start of b.
func (p *Packet) AppendTo(b []byte) ([]byte, error) {
	if p.PDU == nil {
		return b, fmt.Errorf("isis: packet has no pdu")
	}
	if p.PDU.Type() != p.PDUType {
		return b, fmt.Errorf("isis: header type %s does not match pdu %s", p.PDUType, p.PDU.Type())
	}
	start := len(b)
	b = append(b,
		p.Discriminator,
		p.LengthIndicator,
		p.IDExtension,
		p.IDLength,
		uint8(p.PDUType),
		p.Version,
		p.Reserved,
		p.MaxAreaAddr,
	)
	out, err := p.PDU.appendBody(b, start)
	if err != nil {
		return b[:start], fmt.Errorf("isis: %s: %w", p.PDUType, err)
	}
	return out, nil
}
