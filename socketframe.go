package bled

import "github.com/coreble/bled/wirepb"

// socketControlSocketVersion is the only socket protocol version this
// decoder accepts for an introduction frame (§4.3 "Socket-framed BLE
// packet"); any other value is rejected rather than silently accepted,
// since the framing below it has changed across versions.
const socketControlSocketVersion = 2

// socketServiceIDHashLen is the width of the service-id-hash prefix on
// every socket-framed BLE packet. An all-zero hash of this width is the
// sentinel marking a control sub-frame rather than an application
// payload.
const socketServiceIDHashLen = 3

var zeroServiceIDHash [socketServiceIDHashLen]byte

// SocketFramedPacket is a single frame read off the GATT/L2CAP data
// socket: a 3-byte service-id-hash prefix followed by either an
// application payload (ordinary hash) or a control sub-frame (all-zero
// hash), per §4.3.
type SocketFramedPacket struct {
	ServiceIDHash [socketServiceIDHashLen]byte
	IsControl     bool
	Payload       []byte                    // set when !IsControl
	Control       wirepb.SocketControlFrame // set when IsControl
}

// ToBytes serializes p. For a control frame it re-encodes p.Control;
// for a data frame it copies p.Payload verbatim after the hash.
func (p SocketFramedPacket) ToBytes() ([]byte, error) {
	if p.IsControl {
		if p.ServiceIDHash != zeroServiceIDHash {
			return nil, newCodecErr(KindFieldOutOfRange, nil, "control frame must carry an all-zero service id hash")
		}
		if p.Control.Type == wirepb.ControlFrameIntroduction {
			if p.Control.Introduction == nil || p.Control.Introduction.SocketVersion != socketControlSocketVersion {
				return nil, newCodecErr(KindUnsupportedVersion, nil, "introduction frame must declare socket version %d", socketControlSocketVersion)
			}
		}
		body := p.Control.Marshal()
		out := make([]byte, socketServiceIDHashLen+len(body))
		copy(out, p.ServiceIDHash[:])
		copy(out[socketServiceIDHashLen:], body)
		return out, nil
	}
	if p.ServiceIDHash == zeroServiceIDHash {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "data frame must not carry an all-zero service id hash")
	}
	out := make([]byte, socketServiceIDHashLen+len(p.Payload))
	copy(out, p.ServiceIDHash[:])
	copy(out[socketServiceIDHashLen:], p.Payload)
	return out, nil
}

// SocketFramedPacketFromBytes parses a single frame from b. A frame
// whose hash is all-zero is decoded as a control sub-frame via
// wirepb.Unmarshal; any other hash marks an application payload, copied
// through untouched. An introduction control frame that declares a
// socket version other than socketControlSocketVersion is rejected:
// the rest of this codec has no way to interpret a different framing.
func SocketFramedPacketFromBytes(b []byte) (SocketFramedPacket, error) {
	if len(b) < socketServiceIDHashLen {
		return SocketFramedPacket{}, newCodecErr(KindInputTooShort, b, "socket frame shorter than service id hash")
	}
	var hash [socketServiceIDHashLen]byte
	copy(hash[:], b[:socketServiceIDHashLen])
	rest := b[socketServiceIDHashLen:]

	if hash != zeroServiceIDHash {
		return SocketFramedPacket{
			ServiceIDHash: hash,
			Payload:       append([]byte(nil), rest...),
		}, nil
	}

	ctrl, err := wirepb.Unmarshal(rest)
	if err != nil {
		return SocketFramedPacket{}, newCodecErr(KindLengthMismatch, b, "decoding control sub-frame: %v", err)
	}
	if ctrl.Type == wirepb.ControlFrameIntroduction {
		if ctrl.Introduction == nil || ctrl.Introduction.SocketVersion != socketControlSocketVersion {
			got := uint32(0)
			if ctrl.Introduction != nil {
				got = ctrl.Introduction.SocketVersion
			}
			return SocketFramedPacket{}, newCodecErr(KindUnsupportedVersion, b, "introduction frame declares socket version %d, want %d", got, socketControlSocketVersion)
		}
	}
	return SocketFramedPacket{
		ServiceIDHash: hash,
		IsControl:     true,
		Control:       ctrl,
	}, nil
}
