// Package wirepb encodes and decodes the socket-control sub-frame
// carried inside a zero-service-id-hash socket-framed BLE packet (see
// the root package's SocketFramedPacket). It is hand-rolled directly
// against google.golang.org/protobuf/encoding/protowire rather than
// generated by protoc: there is no .proto source in this tree to
// generate from, and the frame is three small, fixed messages, so the
// wire-format primitives alone are enough without reflection-based
// proto.Message plumbing.
package wirepb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ControlFrameType identifies which oneof variant a SocketControlFrame
// carries.
type ControlFrameType int32

const (
	ControlFrameUnknown               ControlFrameType = 0
	ControlFrameIntroduction          ControlFrameType = 1
	ControlFrameDisconnection         ControlFrameType = 2
	ControlFramePacketAcknowledgement ControlFrameType = 3
)

// Field numbers, chosen the way a .proto for this frame would assign
// them: a discriminant plus one field per oneof variant.
const (
	fieldType                  = 1
	fieldIntroduction          = 2
	fieldDisconnection         = 3
	fieldPacketAcknowledgement = 4
)

const (
	introFieldEndpointID    = 1
	introFieldSocketVersion = 2
	ackFieldReceivedSize    = 1
)

// IntroductionFrame announces an endpoint id and the socket protocol
// version it expects to speak.
type IntroductionFrame struct {
	EndpointID    []byte
	SocketVersion uint32
}

// DisconnectionFrame carries no fields; its presence is the signal.
type DisconnectionFrame struct{}

// PacketAcknowledgementFrame reports how many bytes of the in-flight
// payload have been received so far.
type PacketAcknowledgementFrame struct {
	ReceivedSize uint64
}

// SocketControlFrame is the decoded control sub-frame. Exactly one of
// Introduction, Disconnection, PacketAcknowledgement is meaningful,
// selected by Type.
type SocketControlFrame struct {
	Type                  ControlFrameType
	Introduction          *IntroductionFrame
	Disconnection         *DisconnectionFrame
	PacketAcknowledgement *PacketAcknowledgementFrame
}

// Marshal serializes f to protobuf wire format.
func (f SocketControlFrame) Marshal() []byte {
	var out []byte
	out = protowire.AppendTag(out, fieldType, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(f.Type))

	switch f.Type {
	case ControlFrameIntroduction:
		if f.Introduction != nil {
			var inner []byte
			inner = protowire.AppendTag(inner, introFieldEndpointID, protowire.BytesType)
			inner = protowire.AppendBytes(inner, f.Introduction.EndpointID)
			inner = protowire.AppendTag(inner, introFieldSocketVersion, protowire.VarintType)
			inner = protowire.AppendVarint(inner, uint64(f.Introduction.SocketVersion))
			out = protowire.AppendTag(out, fieldIntroduction, protowire.BytesType)
			out = protowire.AppendBytes(out, inner)
		}
	case ControlFrameDisconnection:
		out = protowire.AppendTag(out, fieldDisconnection, protowire.BytesType)
		out = protowire.AppendBytes(out, nil)
	case ControlFramePacketAcknowledgement:
		if f.PacketAcknowledgement != nil {
			var inner []byte
			inner = protowire.AppendTag(inner, ackFieldReceivedSize, protowire.VarintType)
			inner = protowire.AppendVarint(inner, f.PacketAcknowledgement.ReceivedSize)
			out = protowire.AppendTag(out, fieldPacketAcknowledgement, protowire.BytesType)
			out = protowire.AppendBytes(out, inner)
		}
	}
	return out
}

// Unmarshal parses b as a SocketControlFrame.
func Unmarshal(b []byte) (SocketControlFrame, error) {
	var f SocketControlFrame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return SocketControlFrame{}, fmt.Errorf("wirepb: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return SocketControlFrame{}, fmt.Errorf("wirepb: invalid type varint: %w", protowire.ParseError(n))
			}
			f.Type = ControlFrameType(v)
			b = b[n:]
		case fieldIntroduction:
			inner, n, err := consumeBytes(b, typ)
			if err != nil {
				return SocketControlFrame{}, err
			}
			b = b[n:]
			intro, err := unmarshalIntroduction(inner)
			if err != nil {
				return SocketControlFrame{}, err
			}
			f.Introduction = &intro
		case fieldDisconnection:
			_, n, err := consumeBytes(b, typ)
			if err != nil {
				return SocketControlFrame{}, err
			}
			b = b[n:]
			f.Disconnection = &DisconnectionFrame{}
		case fieldPacketAcknowledgement:
			inner, n, err := consumeBytes(b, typ)
			if err != nil {
				return SocketControlFrame{}, err
			}
			b = b[n:]
			ack, err := unmarshalAck(inner)
			if err != nil {
				return SocketControlFrame{}, err
			}
			f.PacketAcknowledgement = &ack
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return SocketControlFrame{}, fmt.Errorf("wirepb: invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return f, nil
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("wirepb: expected length-delimited field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("wirepb: invalid length-delimited field: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func unmarshalIntroduction(b []byte) (IntroductionFrame, error) {
	var out IntroductionFrame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return IntroductionFrame{}, fmt.Errorf("wirepb: invalid introduction tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case introFieldEndpointID:
			v, n, err := consumeBytes(b, typ)
			if err != nil {
				return IntroductionFrame{}, err
			}
			out.EndpointID = append([]byte(nil), v...)
			b = b[n:]
		case introFieldSocketVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return IntroductionFrame{}, fmt.Errorf("wirepb: invalid socket_version varint: %w", protowire.ParseError(n))
			}
			out.SocketVersion = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return IntroductionFrame{}, fmt.Errorf("wirepb: invalid introduction field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return out, nil
}

func unmarshalAck(b []byte) (PacketAcknowledgementFrame, error) {
	var out PacketAcknowledgementFrame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return PacketAcknowledgementFrame{}, fmt.Errorf("wirepb: invalid ack tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case ackFieldReceivedSize:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return PacketAcknowledgementFrame{}, fmt.Errorf("wirepb: invalid received_size varint: %w", protowire.ParseError(n))
			}
			out.ReceivedSize = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return PacketAcknowledgementFrame{}, fmt.Errorf("wirepb: invalid ack field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return out, nil
}
