package att

import "encoding/binary"

// A HandleValue is one entry of a Read By Type Response.
type HandleValue struct {
	Handle uint16
	Value  []byte
}

// A GroupValue is one entry of a Read By Group Type Response.
type GroupValue struct {
	Handle    uint16
	EndHandle uint16
	Value     []byte
}

func u16(op byte, v uint16) []byte {
	return []byte{op, byte(v), byte(v >> 8)}
}

// MtuReq builds an Exchange MTU Request.
func MtuReq(mtu uint16) []byte { return u16(OpMtuReq, mtu) }

// MtuResp builds an Exchange MTU Response.
func MtuResp(mtu uint16) []byte { return u16(OpMtuResp, mtu) }

// ReadReq builds a Read Request for handle h.
func ReadReq(h uint16) []byte { return u16(OpReadReq, h) }

// WriteReq builds a Write Request of v to handle h.
func WriteReq(h uint16, v []byte) []byte { return append(u16(OpWriteReq, h), v...) }

// WriteCmd builds a Write Command of v to handle h.
func WriteCmd(h uint16, v []byte) []byte { return append(u16(OpWriteCmd, h), v...) }

// HandleCnf builds a Handle Value Confirmation.
func HandleCnf() []byte { return []byte{OpHandleCnf} }

func rangeReq(op byte, start, end uint16, typ []byte) []byte {
	b := make([]byte, 5, 5+len(typ))
	b[0] = op
	binary.LittleEndian.PutUint16(b[1:], start)
	binary.LittleEndian.PutUint16(b[3:], end)
	return append(b, typ...)
}

// ReadByTypeReq builds a Read By Type Request over [start, end].
// typ is the attribute type in little-endian order, 2 or 16 bytes.
func ReadByTypeReq(start, end uint16, typ []byte) []byte {
	return rangeReq(OpReadByTypeReq, start, end, typ)
}

// ReadByGroupReq builds a Read By Group Type Request over [start, end].
func ReadByGroupReq(start, end uint16, typ []byte) []byte {
	return rangeReq(OpReadByGroupReq, start, end, typ)
}

// FindInfoReq builds a Find Information Request over [start, end].
func FindInfoReq(start, end uint16) []byte {
	return rangeReq(OpFindInfoReq, start, end, nil)
}

// ParseMtu decodes the MTU of an Exchange MTU Request or Response.
func ParseMtu(b []byte) (uint16, error) {
	if len(b) < 3 {
		return 0, ErrShortPDU
	}
	return binary.LittleEndian.Uint16(b[1:]), nil
}

// ParseReadByTypeResp decodes a complete Read By Type Response.
func ParseReadByTypeResp(b []byte) ([]HandleValue, error) {
	if len(b) < 2 || b[0] != OpReadByTypeResp {
		return nil, ErrShortPDU
	}
	n := int(b[1])
	if n < 2 {
		return nil, ErrShortPDU
	}
	var hv []HandleValue
	for b = b[2:]; len(b) >= n; b = b[n:] {
		hv = append(hv, HandleValue{
			Handle: binary.LittleEndian.Uint16(b),
			Value:  append([]byte(nil), b[2:n]...),
		})
	}
	if len(b) != 0 {
		return nil, ErrShortPDU
	}
	return hv, nil
}

// ParseReadByGroupResp decodes a complete Read By Group Type Response.
func ParseReadByGroupResp(b []byte) ([]GroupValue, error) {
	if len(b) < 2 || b[0] != OpReadByGroupResp {
		return nil, ErrShortPDU
	}
	n := int(b[1])
	if n < 4 {
		return nil, ErrShortPDU
	}
	var gv []GroupValue
	for b = b[2:]; len(b) >= n; b = b[n:] {
		gv = append(gv, GroupValue{
			Handle:    binary.LittleEndian.Uint16(b),
			EndHandle: binary.LittleEndian.Uint16(b[2:]),
			Value:     append([]byte(nil), b[4:n]...),
		})
	}
	if len(b) != 0 {
		return nil, ErrShortPDU
	}
	return gv, nil
}

// ReadBlobReq builds a Read Blob Request for handle h from offset.
func ReadBlobReq(h, offset uint16) []byte {
	return []byte{OpReadBlobReq, byte(h), byte(h >> 8), byte(offset), byte(offset >> 8)}
}

// ParseFindInfoResp decodes a complete Find Information Response. Each
// Value holds the attribute type, 2 or 16 bytes in little-endian order.
func ParseFindInfoResp(b []byte) ([]HandleValue, error) {
	if len(b) < 2 || b[0] != OpFindInfoResp {
		return nil, ErrShortPDU
	}
	var n int
	switch b[1] {
	case 0x01:
		n = 4
	case 0x02:
		n = 18
	default:
		return nil, ErrShortPDU
	}
	var hv []HandleValue
	for b = b[2:]; len(b) >= n; b = b[n:] {
		hv = append(hv, HandleValue{
			Handle: binary.LittleEndian.Uint16(b),
			Value:  append([]byte(nil), b[2:n]...),
		})
	}
	if len(b) != 0 {
		return nil, ErrShortPDU
	}
	return hv, nil
}
