package isis

import (
	"encoding/binary"
	"fmt"
)

type PDUType uint8

const (
	TypeL1LANHello PDUType = 0x0f
	TypeL2LANHello PDUType = 0x10
	TypeP2PHello   PDUType = 0x11
	TypeL1LSP      PDUType = 0x12
	TypeL2LSP      PDUType = 0x14
	TypeL1CSNP     PDUType = 0x18
	TypeL2CSNP     PDUType = 0x19
	TypeL1PSNP     PDUType = 0x1a
	TypeL2PSNP     PDUType = 0x1b
)

func (t PDUType) String() string {
	switch t {
	case TypeL1LANHello:
		return "l1-lan-hello"
	case TypeL2LANHello:
		return "l2-lan-hello"
	case TypeP2PHello:
		return "p2p-hello"
	case TypeL1LSP:
		return "l1-lsp"
	case TypeL2LSP:
		return "l2-lsp"
	case TypeL1CSNP:
		return "l1-csnp"
	case TypeL2CSNP:
		return "l2-csnp"
	case TypeL1PSNP:
		return "l1-psnp"
	case TypeL2PSNP:
		return "l2-psnp"
	default:
		return fmt.Sprintf("unknown-0x%02x", uint8(t))
	}
}

// Level returns the routing level encoded in the type, or 0 for the P2P
// Hello and unknown types.
func (t PDUType) Level() Level {
	switch t {
	case TypeL1LANHello, TypeL1LSP, TypeL1CSNP, TypeL1PSNP:
		return Level1
	case TypeL2LANHello, TypeL2LSP, TypeL2CSNP, TypeL2PSNP:
		return Level2
	default:
		return 0
	}
}

// FixedHeaderLen is the header length of the PDU type including the 8-octet
// common header. It is the value of the length indicator.
func (t PDUType) FixedHeaderLen() int {
	switch t {
	case TypeL1LANHello, TypeL2LANHello:
		return lanHelloHeaderLen
	case TypeP2PHello:
		return p2pHelloHeaderLen
	case TypeL1LSP, TypeL2LSP:
		return lspHeaderLen
	case TypeL1CSNP, TypeL2CSNP:
		return csnpHeaderLen
	case TypeL1PSNP, TypeL2PSNP:
		return psnpHeaderLen
	default:
		return commonHeaderLen
	}
}

type Level uint8

const (
	Level1 Level = 1
	Level2 Level = 2
)

func checkLevel(l Level) error {
	if l != Level1 && l != Level2 {
		return malformed("pdu", "level %d is not 1 or 2", l)
	}
	return nil
}

func pickType(l Level, l1, l2 PDUType) PDUType {
	if l == Level2 {
		return l2
	}
	return l1
}

const (
	lanHelloHeaderLen = commonHeaderLen + 1 + SystemIDLen + 2 + 2 + 1 + NeighborIDLen
	p2pHelloHeaderLen = commonHeaderLen + 1 + SystemIDLen + 2 + 2 + 1
	lspHeaderLen      = commonHeaderLen + 2 + 2 + LSPIDLen + 4 + 2 + 1
	csnpHeaderLen     = commonHeaderLen + 2 + NeighborIDLen + 2*LSPIDLen
	psnpHeaderLen     = commonHeaderLen + 2 + NeighborIDLen

	maxPDULen = 0xffff
)

// PDU is the body of a packet following the common header. Len is the
// encoded size of the whole packet, common header included, which is the
// value written to the PDU length field.
type PDU interface {
	Type() PDUType
	TLVList() []TLV
	Len() int
	appendBody(b []byte, start int) ([]byte, error)
}

// Hello is a LAN IS-to-IS Hello.
type Hello struct {
	Level       Level
	CircuitType uint8
	SourceID    SystemID
	HoldTime    uint16
	PDULen      uint16
	Priority    uint8
	LANID       NeighborID
	TLVs        []TLV
}

// P2PHello is a point-to-point IS-to-IS Hello.
type P2PHello struct {
	CircuitType    uint8
	SourceID       SystemID
	HoldTime       uint16
	PDULen         uint16
	LocalCircuitID uint8
	TLVs           []TLV
}

type LSP struct {
	Level    Level
	PDULen   uint16
	Lifetime uint16
	LSPID    LSPID
	SeqNum   uint32
	Checksum uint16
	Flags    LSPFlags
	TLVs     []TLV
}

type CSNP struct {
	Level    Level
	PDULen   uint16
	SourceID NeighborID
	Start    LSPID
	End      LSPID
	TLVs     []TLV
}

type PSNP struct {
	Level    Level
	PDULen   uint16
	SourceID NeighborID
	TLVs     []TLV
}

// UnknownPDU keeps everything after the common header undissected.
type UnknownPDU struct {
	Code    PDUType
	Payload []byte
}

func (p *Hello) Type() PDUType      { return pickType(p.Level, TypeL1LANHello, TypeL2LANHello) }
func (*P2PHello) Type() PDUType     { return TypeP2PHello }
func (p *LSP) Type() PDUType        { return pickType(p.Level, TypeL1LSP, TypeL2LSP) }
func (p *CSNP) Type() PDUType       { return pickType(p.Level, TypeL1CSNP, TypeL2CSNP) }
func (p *PSNP) Type() PDUType       { return pickType(p.Level, TypeL1PSNP, TypeL2PSNP) }
func (p *UnknownPDU) Type() PDUType { return p.Code }

func (p *Hello) TLVList() []TLV    { return p.TLVs }
func (p *P2PHello) TLVList() []TLV { return p.TLVs }
func (p *LSP) TLVList() []TLV      { return p.TLVs }
func (p *CSNP) TLVList() []TLV     { return p.TLVs }
func (p *PSNP) TLVList() []TLV     { return p.TLVs }
func (*UnknownPDU) TLVList() []TLV { return nil }

func (p *Hello) Len() int      { return lanHelloHeaderLen + TLVsLen(p.TLVs) }
func (p *P2PHello) Len() int   { return p2pHelloHeaderLen + TLVsLen(p.TLVs) }
func (p *LSP) Len() int        { return lspHeaderLen + TLVsLen(p.TLVs) }
func (p *CSNP) Len() int       { return csnpHeaderLen + TLVsLen(p.TLVs) }
func (p *PSNP) Len() int       { return psnpHeaderLen + TLVsLen(p.TLVs) }
func (p *UnknownPDU) Len() int { return commonHeaderLen + len(p.Payload) }

// finishPDU appends the TLVs and patches the 16-bit length at lenAt with the
// number of bytes written since start.
func finishPDU(b []byte, tlvs []TLV, lenAt, start int) ([]byte, error) {
	b, err := AppendTLVs(b, tlvs)
	if err != nil {
		return b, err
	}
	n := len(b) - start
	if n > maxPDULen {
		return b, fmt.Errorf("%w: pdu is %d bytes", ErrValueTooLong, n)
	}
	binary.BigEndian.PutUint16(b[lenAt:], uint16(n))
	return b, nil
}

func (p *Hello) appendBody(b []byte, start int) ([]byte, error) {
	if err := checkLevel(p.Level); err != nil {
		return b, err
	}
	b = append(b, p.CircuitType)
	b = append(b, p.SourceID[:]...)
	b = binary.BigEndian.AppendUint16(b, p.HoldTime)
	lenAt := len(b)
	b = append(b, 0, 0, p.Priority)
	b = append(b, p.LANID[:]...)
	return finishPDU(b, p.TLVs, lenAt, start)
}

func (p *P2PHello) appendBody(b []byte, start int) ([]byte, error) {
	b = append(b, p.CircuitType)
	b = append(b, p.SourceID[:]...)
	b = binary.BigEndian.AppendUint16(b, p.HoldTime)
	lenAt := len(b)
	b = append(b, 0, 0, p.LocalCircuitID)
	return finishPDU(b, p.TLVs, lenAt, start)
}

func (p *LSP) appendBody(b []byte, start int) ([]byte, error) {
	if err := checkLevel(p.Level); err != nil {
		return b, err
	}
	lenAt := len(b)
	b = append(b, 0, 0)
	b = binary.BigEndian.AppendUint16(b, p.Lifetime)
	b = append(b, p.LSPID[:]...)
	b = binary.BigEndian.AppendUint32(b, p.SeqNum)
	b = binary.BigEndian.AppendUint16(b, p.Checksum)
	b = append(b, p.Flags.Byte())
	return finishPDU(b, p.TLVs, lenAt, start)
}

func (p *CSNP) appendBody(b []byte, start int) ([]byte, error) {
	if err := checkLevel(p.Level); err != nil {
		return b, err
	}
	lenAt := len(b)
	b = append(b, 0, 0)
	b = append(b, p.SourceID[:]...)
	b = append(b, p.Start[:]...)
	b = append(b, p.End[:]...)
	return finishPDU(b, p.TLVs, lenAt, start)
}

func (p *PSNP) appendBody(b []byte, start int) ([]byte, error) {
	if err := checkLevel(p.Level); err != nil {
		return b, err
	}
	lenAt := len(b)
	b = append(b, 0, 0)
	b = append(b, p.SourceID[:]...)
	return finishPDU(b, p.TLVs, lenAt, start)
}

func (p *UnknownPDU) appendBody(b []byte, _ int) ([]byte, error) {
	return append(b, p.Payload...), nil
}

// decodePDU decodes the bytes following the common header.
func decodePDU(t PDUType, b []byte) (PDU, error) {
	switch t {
	case TypeL1LANHello, TypeL2LANHello:
		return decodeHello(t.Level(), b)
	case TypeP2PHello:
		return decodeP2PHello(b)
	case TypeL1LSP, TypeL2LSP:
		return decodeLSP(t.Level(), b)
	case TypeL1CSNP, TypeL2CSNP:
		return decodeCSNP(t.Level(), b)
	case TypeL1PSNP, TypeL2PSNP:
		return decodePSNP(t.Level(), b)
	default:
		return &UnknownPDU{Code: t, Payload: clone(b)}, nil
	}
}

func decodeHello(l Level, b []byte) (*Hello, error) {
	r := newReader(b, "lan hello header")
	fixed, err := r.take(lanHelloHeaderLen - commonHeaderLen)
	if err != nil {
		return nil, err
	}
	p := &Hello{
		Level:       l,
		CircuitType: fixed[0],
		SourceID:    SystemID(fixed[1:7]),
		HoldTime:    binary.BigEndian.Uint16(fixed[7:9]),
		PDULen:      binary.BigEndian.Uint16(fixed[9:11]),
		Priority:    fixed[11],
		LANID:       NeighborID(fixed[12:19]),
	}
	if p.TLVs, err = parseTLVs(r.rest()); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeP2PHello(b []byte) (*P2PHello, error) {
	r := newReader(b, "p2p hello header")
	fixed, err := r.take(p2pHelloHeaderLen - commonHeaderLen)
	if err != nil {
		return nil, err
	}
	p := &P2PHello{
		CircuitType:    fixed[0],
		SourceID:       SystemID(fixed[1:7]),
		HoldTime:       binary.BigEndian.Uint16(fixed[7:9]),
		PDULen:         binary.BigEndian.Uint16(fixed[9:11]),
		LocalCircuitID: fixed[11],
	}
	if p.TLVs, err = parseTLVs(r.rest()); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeLSP(l Level, b []byte) (*LSP, error) {
	r := newReader(b, "lsp header")
	fixed, err := r.take(lspHeaderLen - commonHeaderLen)
	if err != nil {
		return nil, err
	}
	p := &LSP{
		Level:    l,
		PDULen:   binary.BigEndian.Uint16(fixed[0:2]),
		Lifetime: binary.BigEndian.Uint16(fixed[2:4]),
		LSPID:    LSPID(fixed[4:12]),
		SeqNum:   binary.BigEndian.Uint32(fixed[12:16]),
		Checksum: binary.BigEndian.Uint16(fixed[16:18]),
		Flags:    LSPFlagsFromByte(fixed[18]),
	}
	if p.TLVs, err = parseTLVs(r.rest()); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeCSNP(l Level, b []byte) (*CSNP, error) {
	r := newReader(b, "csnp header")
	fixed, err := r.take(csnpHeaderLen - commonHeaderLen)
	if err != nil {
		return nil, err
	}
	p := &CSNP{
		Level:    l,
		PDULen:   binary.BigEndian.Uint16(fixed[0:2]),
		SourceID: NeighborID(fixed[2:9]),
		Start:    LSPID(fixed[9:17]),
		End:      LSPID(fixed[17:25]),
	}
	if p.TLVs, err = parseTLVs(r.rest()); err != nil {
		return nil, err
	}
	return p, nil
}

func decodePSNP(l Level, b []byte) (*PSNP, error) {
	r := newReader(b, "psnp header")
	fixed, err := r.take(psnpHeaderLen - commonHeaderLen)
	if err != nil {
		return nil, err
	}
	p := &PSNP{
		Level:    l,
		PDULen:   binary.BigEndian.Uint16(fixed[0:2]),
		SourceID: NeighborID(fixed[2:9]),
	}
	if p.TLVs, err = parseTLVs(r.rest()); err != nil {
		return nil, err
	}
	return p, nil
}
