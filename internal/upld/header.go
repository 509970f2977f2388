package upld

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header constants.
const (
	Identifier     = "UPLD"
	HeaderSize     = 56
	SpecRevision   = 0
	Revision       = 0x00010105
	ProducerID     = "INTEL"
	DefaultImageID = "UEFI"

	// Width of the ProducerId and ImageId fields.
	IDSize = 16
)

// Decode errors.
var (
	ErrShortHeader   = errors.New("upld: header too short")
	ErrBadIdentifier = errors.New("upld: bad identifier")
	ErrBadLength     = errors.New("upld: header length mismatch")
)

// InfoHeader is the in-memory form of the payload info header. Field order
// and widths follow the wire layout.
type InfoHeader struct {
	Identifier   [4]byte
	HeaderLength uint32
	SpecRevision uint16
	Reserved     uint16
	Revision     uint32
	Attribute    uint32
	Capability   uint32
	ProducerID   [IDSize]byte
	ImageID      [IDSize]byte
}

// NewInfoHeader returns a header for the named image. The name's UTF-8 bytes
// are truncated to 16 bytes; the truncation may split a multi-byte rune.
func NewInfoHeader(name string) *InfoHeader {
	h := &InfoHeader{
		HeaderLength: HeaderSize,
		SpecRevision: SpecRevision,
		Revision:     Revision,
	}
	copy(h.Identifier[:], Identifier)
	copy(h.ProducerID[:], ProducerID)
	copy(h.ImageID[:], name)
	return h
}

// ImageName returns ImageID up to the first NUL.
func (h *InfoHeader) ImageName() string {
	return cstring(h.ImageID[:])
}

// ProducerName returns ProducerID up to the first NUL.
func (h *InfoHeader) ProducerName() string {
	return cstring(h.ProducerID[:])
}

// Validate checks the identifier and length fields.
func (h *InfoHeader) Validate() error {
	if string(h.Identifier[:]) != Identifier {
		return fmt.Errorf("%w: %q", ErrBadIdentifier, h.Identifier[:])
	}
	if h.HeaderLength != HeaderSize {
		return fmt.Errorf("%w: %d, want %d", ErrBadLength, h.HeaderLength, HeaderSize)
	}
	return nil
}

// Field offsets in the wire form.
const (
	offIdentifier   = 0
	offHeaderLength = 4
	offSpecRevision = 8
	offReserved     = 10
	offRevision     = 12
	offAttribute    = 16
	offCapability   = 20
	offProducerID   = 24
	offImageID      = 40
)

// MarshalBinary encodes the header into its 56-byte wire form.
func (h *InfoHeader) MarshalBinary() ([]byte, error) {
	return h.encode(), nil
}

func (h *InfoHeader) encode() []byte {
	le := binary.LittleEndian
	data := make([]byte, HeaderSize)
	copy(data[offIdentifier:], h.Identifier[:])
	le.PutUint32(data[offHeaderLength:], h.HeaderLength)
	le.PutUint16(data[offSpecRevision:], h.SpecRevision)
	le.PutUint16(data[offReserved:], h.Reserved)
	le.PutUint32(data[offRevision:], h.Revision)
	le.PutUint32(data[offAttribute:], h.Attribute)
	le.PutUint32(data[offCapability:], h.Capability)
	copy(data[offProducerID:], h.ProducerID[:])
	copy(data[offImageID:], h.ImageID[:])
	return data
}

// UnmarshalBinary decodes and validates a header from the first 56 bytes of
// data. Trailing bytes are ignored.
func (h *InfoHeader) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrShortHeader, len(data), HeaderSize)
	}

	le := binary.LittleEndian
	var decoded InfoHeader
	copy(decoded.Identifier[:], data[offIdentifier:])
	decoded.HeaderLength = le.Uint32(data[offHeaderLength:])
	decoded.SpecRevision = le.Uint16(data[offSpecRevision:])
	decoded.Reserved = le.Uint16(data[offReserved:])
	decoded.Revision = le.Uint32(data[offRevision:])
	decoded.Attribute = le.Uint32(data[offAttribute:])
	decoded.Capability = le.Uint32(data[offCapability:])
	copy(decoded.ProducerID[:], data[offProducerID:])
	copy(decoded.ImageID[:], data[offImageID:])
	if err := decoded.Validate(); err != nil {
		return err
	}

	*h = decoded
	return nil
}

// Encode returns the wire form of a header for the named image.
func Encode(name string) []byte {
	return NewInfoHeader(name).encode()
}

// Decode parses a header from its wire form.
func Decode(data []byte) (*InfoHeader, error) {
	h := &InfoHeader{}
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return h, nil
}

type field struct {
	name   string
	offset int
	size   int
}

// Wire layout, in order.
var layout = []field{
	{"Identifier", offIdentifier, 4},
	{"HeaderLength", offHeaderLength, 4},
	{"SpecRevision", offSpecRevision, 2},
	{"Reserved", offReserved, 2},
	{"Revision", offRevision, 4},
	{"Attribute", offAttribute, 4},
	{"Capability", offCapability, 4},
	{"ProducerId", offProducerID, IDSize},
	{"ImageId", offImageID, IDSize},
}

// Dump writes one line per field with its offset, size and raw bytes.
func (h *InfoHeader) Dump(w io.Writer) error {
	data := h.encode()
	for _, f := range layout {
		raw := data[f.offset : f.offset+f.size]
		if _, err := fmt.Fprintf(w, "0x%02x %2d %-12s % x\n", f.offset, f.size, f.name, raw); err != nil {
			return err
		}
	}
	return nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
