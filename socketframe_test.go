package bled

import (
	"bytes"
	"testing"

	"github.com/coreble/bled/wirepb"
)

func TestSocketFramedPacketDataRoundTrip(t *testing.T) {
	hash := ServiceIDHash("A")
	p := SocketFramedPacket{ServiceIDHash: hash, Payload: []byte{1, 2, 3, 4}}
	b, err := p.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := SocketFramedPacketFromBytes(b)
	if err != nil {
		t.Fatalf("SocketFramedPacketFromBytes: %v", err)
	}
	if got.IsControl || got.ServiceIDHash != hash || !bytes.Equal(got.Payload, p.Payload) {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestSocketFramedPacketControlRoundTrip(t *testing.T) {
	p := SocketFramedPacket{
		IsControl: true,
		Control: wirepb.SocketControlFrame{
			Type: wirepb.ControlFrameIntroduction,
			Introduction: &wirepb.IntroductionFrame{
				EndpointID:    []byte("ABCD"),
				SocketVersion: socketControlSocketVersion,
			},
		},
	}
	b, err := p.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if !bytes.Equal(b[:socketServiceIDHashLen], zeroServiceIDHash[:]) {
		t.Fatalf("expected leading zero hash, got % x", b[:socketServiceIDHashLen])
	}
	got, err := SocketFramedPacketFromBytes(b)
	if err != nil {
		t.Fatalf("SocketFramedPacketFromBytes: %v", err)
	}
	if !got.IsControl || got.Control.Introduction == nil {
		t.Fatalf("got %+v", got)
	}
	if !bytes.Equal(got.Control.Introduction.EndpointID, []byte("ABCD")) {
		t.Errorf("endpoint id mismatch: %q", got.Control.Introduction.EndpointID)
	}
}

func TestSocketFramedPacketRejectsWrongSocketVersion(t *testing.T) {
	p := SocketFramedPacket{
		IsControl: true,
		Control: wirepb.SocketControlFrame{
			Type: wirepb.ControlFrameIntroduction,
			Introduction: &wirepb.IntroductionFrame{
				EndpointID:    []byte("ABCD"),
				SocketVersion: 1,
			},
		},
	}
	if _, err := p.ToBytes(); err == nil {
		t.Fatalf("expected rejection of non-v2 introduction frame")
	} else if k, ok := KindOf(err); !ok || k != KindUnsupportedVersion {
		t.Errorf("got kind %v, want KindUnsupportedVersion", k)
	}

	// Build the same bad frame by hand so FromBytes is exercised too.
	bad := wirepb.SocketControlFrame{
		Type: wirepb.ControlFrameIntroduction,
		Introduction: &wirepb.IntroductionFrame{
			EndpointID:    []byte("ABCD"),
			SocketVersion: 1,
		},
	}.Marshal()
	raw := append(append([]byte(nil), zeroServiceIDHash[:]...), bad...)
	if _, err := SocketFramedPacketFromBytes(raw); err == nil {
		t.Fatalf("expected rejection of non-v2 introduction frame")
	} else if k, ok := KindOf(err); !ok || k != KindUnsupportedVersion {
		t.Errorf("got kind %v, want KindUnsupportedVersion", k)
	}
}

func TestSocketFramedPacketDisconnectionDoesNotRequireVersion(t *testing.T) {
	p := SocketFramedPacket{
		IsControl: true,
		Control:   wirepb.SocketControlFrame{Type: wirepb.ControlFrameDisconnection},
	}
	b, err := p.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := SocketFramedPacketFromBytes(b)
	if err != nil {
		t.Fatalf("SocketFramedPacketFromBytes: %v", err)
	}
	if !got.IsControl || got.Control.Type != wirepb.ControlFrameDisconnection {
		t.Errorf("got %+v", got)
	}
}

func TestSocketFramedPacketTooShortRejected(t *testing.T) {
	if _, err := SocketFramedPacketFromBytes([]byte{1, 2}); err == nil {
		t.Fatalf("expected rejection of short frame")
	} else if k, ok := KindOf(err); !ok || k != KindInputTooShort {
		t.Errorf("got kind %v, want KindInputTooShort", k)
	}
}

func TestSocketFramedPacketDataFrameRejectsZeroHash(t *testing.T) {
	p := SocketFramedPacket{Payload: []byte{1}}
	if _, err := p.ToBytes(); err == nil {
		t.Fatalf("expected rejection of all-zero hash on a data frame")
	}
}
