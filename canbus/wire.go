package canbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire encapsulation: the fixed 13-byte rendering of a frame for transport
// over a byte stream.
//
// Layout:
//
//	0      control: [EXT|RTR|rsvd|rsvd|L3|L2|L1|L0]
//	1..4   identifier, big-endian (top two bytes zero for standard frames)
//	5..12  data, zero-padded to 8 bytes
//
// There is no separate length field; the payload length is carried solely
// by the low nibble of the control byte.
const WireSize = 13

const (
	wireCtrlExtended = 0x80
	wireCtrlRTR      = 0x40
	wireCtrlLenMask  = 0x0F
)

var (
	// ErrWireLength reports an encapsulation that is not exactly 13 bytes.
	ErrWireLength = errors.New("canbus: encapsulation must be 13 bytes")
	// ErrWireDataLen reports a control byte declaring a payload length
	// above 8. The nibble can express 0..15 but the protocol never
	// produces 9..15; such input is rejected, not clamped.
	ErrWireDataLen = errors.New("canbus: declared data length exceeds 8")
)

// MarshalBinary encodes the frame into its 13-byte wire encapsulation.
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, WireSize)
	ctrl := f.Len & wireCtrlLenMask
	if f.Extended {
		ctrl |= wireCtrlExtended
	}
	if f.RTR {
		ctrl |= wireCtrlRTR
	}
	buf[0] = ctrl
	// Standard identifiers fit in the two low bytes; the top two stay zero.
	binary.BigEndian.PutUint32(buf[1:5], f.ID)
	copy(buf[5:], f.Data[:f.Len])
	return buf, nil
}

// UnmarshalBinary decodes a frame from its 13-byte wire encapsulation.
// Bytes beyond the declared payload length are padding and are discarded.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) != WireSize {
		return fmt.Errorf("%w: got %d", ErrWireLength, len(data))
	}
	ctrl := data[0]
	length := ctrl & wireCtrlLenMask
	if length > 8 {
		return fmt.Errorf("%w: %d", ErrWireDataLen, length)
	}
	var g Frame
	g.Extended = ctrl&wireCtrlExtended != 0
	g.RTR = ctrl&wireCtrlRTR != 0
	if g.Extended {
		g.ID = binary.BigEndian.Uint32(data[1:5])
	} else {
		g.ID = uint32(binary.BigEndian.Uint16(data[3:5]))
	}
	g.Len = length
	copy(g.Data[:length], data[5:5+length])
	if err := g.Validate(); err != nil {
		return err
	}
	*f = g
	return nil
}
