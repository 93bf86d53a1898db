package bled

import (
	"encoding/binary"
	"io"
)

// L2CAPCommand is the command byte of an L2CAP control packet (§3, §4.3).
type L2CAPCommand uint8

const (
	L2CAPRequestAdvertisement          L2CAPCommand = 1
	L2CAPRequestAdvertisementFinish    L2CAPCommand = 2
	L2CAPRequestDataConnection         L2CAPCommand = 3
	L2CAPResponseAdvertisement         L2CAPCommand = 4
	L2CAPResponseServiceIDNotFound     L2CAPCommand = 5
	L2CAPResponseDataConnectionReady   L2CAPCommand = 6
	L2CAPResponseDataConnectionFailure L2CAPCommand = 7
)

// hasPayload reports whether c carries a length-prefixed payload.
// Only the two advertisement commands do; everything else is a bare
// command byte.
func (c L2CAPCommand) hasPayload() bool {
	return c == L2CAPRequestAdvertisement || c == L2CAPResponseAdvertisement
}

func (c L2CAPCommand) valid() bool {
	switch c {
	case L2CAPRequestAdvertisement, L2CAPRequestAdvertisementFinish, L2CAPRequestDataConnection,
		L2CAPResponseAdvertisement, L2CAPResponseServiceIDNotFound,
		L2CAPResponseDataConnectionReady, L2CAPResponseDataConnectionFailure:
		return true
	default:
		return false
	}
}

// maxL2CAPPayloadLength is the max advertisement length (§6): the
// L2CAP control packet's payload can never exceed a legacy
// advertisement's own maximum.
const maxL2CAPPayloadLength = maxLegacyAdvertisementLength

// L2CAPControlPacket is a single L2CAP control-channel frame: either a
// bare command byte, or a command plus a 2-byte-length-prefixed
// payload (§3, §4.3).
type L2CAPControlPacket struct {
	Command L2CAPCommand
	Payload []byte
}

// ToBytes serializes p.
func (p L2CAPControlPacket) ToBytes() ([]byte, error) {
	if !p.Command.valid() {
		return nil, newCodecErr(KindUnknownCommand, nil, "command %d is not in the l2cap command enumeration", p.Command)
	}
	if !p.Command.hasPayload() {
		if len(p.Payload) != 0 {
			return nil, newCodecErr(KindFieldOutOfRange, nil, "command %d does not carry a payload", p.Command)
		}
		return []byte{byte(p.Command)}, nil
	}
	if len(p.Payload) > maxL2CAPPayloadLength {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "l2cap payload length %d exceeds max %d", len(p.Payload), maxL2CAPPayloadLength)
	}
	out := make([]byte, 3+len(p.Payload))
	out[0] = byte(p.Command)
	binary.BigEndian.PutUint16(out[1:3], uint16(len(p.Payload)))
	copy(out[3:], p.Payload)
	return out, nil
}

// L2CAPControlPacketFromBytes parses a single packet from the front of
// b, the in-memory-buffer decoder named in §4.3.
func L2CAPControlPacketFromBytes(b []byte) (L2CAPControlPacket, int, error) {
	if len(b) == 0 {
		return L2CAPControlPacket{}, 0, newCodecErr(KindInputTooShort, b, "empty l2cap buffer")
	}
	cmd := L2CAPCommand(b[0])
	if !cmd.valid() {
		return L2CAPControlPacket{}, 0, newCodecErr(KindUnknownCommand, b, "command byte 0x%02x is not in the l2cap command enumeration", b[0])
	}
	if !cmd.hasPayload() {
		return L2CAPControlPacket{Command: cmd}, 1, nil
	}
	if len(b) < 3 {
		return L2CAPControlPacket{}, 0, newCodecErr(KindInputTooShort, b, "l2cap length prefix truncated")
	}
	plen := int(binary.BigEndian.Uint16(b[1:3]))
	if plen > maxL2CAPPayloadLength {
		return L2CAPControlPacket{}, 0, newCodecErr(KindFieldOutOfRange, b, "l2cap payload length %d exceeds max %d", plen, maxL2CAPPayloadLength)
	}
	if len(b) < 3+plen {
		return L2CAPControlPacket{}, 0, newCodecErr(KindInputTooShort, b, "l2cap payload truncated: want %d, have %d", plen, len(b)-3)
	}
	payload := append([]byte(nil), b[3:3+plen]...)
	return L2CAPControlPacket{Command: cmd, Payload: payload}, 3 + plen, nil
}

// ReadL2CAPControlPacket is the blocking-input-stream decoder named in
// §4.3: it shares the exact same state machine as
// L2CAPControlPacketFromBytes but reads from an io.Reader instead of a
// pre-filled buffer, for callers sitting on top of a blocking socket.
func ReadL2CAPControlPacket(r io.Reader) (L2CAPControlPacket, error) {
	var cmdByte [1]byte
	if _, err := io.ReadFull(r, cmdByte[:]); err != nil {
		return L2CAPControlPacket{}, newCodecErr(KindInputTooShort, nil, "reading l2cap command byte: %v", err)
	}
	cmd := L2CAPCommand(cmdByte[0])
	if !cmd.valid() {
		return L2CAPControlPacket{}, newCodecErr(KindUnknownCommand, cmdByte[:], "command byte 0x%02x is not in the l2cap command enumeration", cmdByte[0])
	}
	if !cmd.hasPayload() {
		return L2CAPControlPacket{Command: cmd}, nil
	}
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return L2CAPControlPacket{}, newCodecErr(KindInputTooShort, nil, "reading l2cap length prefix: %v", err)
	}
	plen := int(binary.BigEndian.Uint16(lenBuf[:]))
	if plen > maxL2CAPPayloadLength {
		return L2CAPControlPacket{}, newCodecErr(KindFieldOutOfRange, nil, "l2cap payload length %d exceeds max %d", plen, maxL2CAPPayloadLength)
	}
	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return L2CAPControlPacket{}, newCodecErr(KindInputTooShort, nil, "reading l2cap payload: %v", err)
	}
	return L2CAPControlPacket{Command: cmd, Payload: payload}, nil
}
