package bled

import (
	"bytes"
	"reflect"
	"testing"
)

func TestLegacyAdvertisementRoundTripRegular(t *testing.T) {
	a := LegacyAdvertisement{
		Version:       legacyAdvVersion2,
		SocketVersion: 1,
		IsSecondary:   true,
		ServiceIDHash: ServiceIDHash("A"),
		Data:          []byte{0x04, 0x02, 0x00},
	}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := LegacyAdvertisementFromBytes(b, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("got %+v, want %+v", got, a)
	}
}

func TestLegacyAdvertisementRoundTripWithDeviceToken(t *testing.T) {
	a := LegacyAdvertisement{
		Version:        legacyAdvVersion2,
		ServiceIDHash:  [3]byte{1, 2, 3},
		Data:           []byte{0x04, 0x02, 0x00},
		DeviceToken:    [5]byte{1, 2, 3, 4, 5},
		HasDeviceToken: true,
	}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := LegacyAdvertisementFromBytes(b, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("got %+v, want %+v", got, a)
	}
}

func TestLegacyAdvertisementRoundTripWithExtraFields(t *testing.T) {
	a := LegacyAdvertisement{
		Version:                     legacyAdvVersion2,
		ServiceIDHash:               [3]byte{9, 9, 9},
		Data:                        []byte{1, 2, 3, 4},
		DeviceToken:                 [5]byte{9, 8, 7, 6, 5},
		HasDeviceToken:              true,
		PSM:                         0xF100,
		HasPSM:                     true,
		InstantConnectionPayload:    []byte{0xAA, 0xBB, 0xCC},
		HasInstantConnectionPayload: true,
	}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := LegacyAdvertisementFromBytes(b, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if got.PSM != a.PSM || !got.HasPSM {
		t.Errorf("psm mismatch: %+v", got)
	}
	if !bytes.Equal(got.InstantConnectionPayload, a.InstantConnectionPayload) {
		t.Errorf("instant connection payload mismatch: %+v", got)
	}
	if got.DeviceToken != a.DeviceToken || !got.HasDeviceToken {
		t.Errorf("device token mismatch: %+v", got)
	}
}

func TestLegacyAdvertisementExtraFieldsWithoutDeviceToken(t *testing.T) {
	a := LegacyAdvertisement{
		Version:       legacyAdvVersion2,
		ServiceIDHash: [3]byte{1, 1, 1},
		Data:          []byte{1},
		PSM:           0x0019,
		HasPSM:        true,
	}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := LegacyAdvertisementFromBytes(b, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	// Extra fields always imply a device token on the wire (a zero-value
	// one here, since a didn't set one): this is what keeps a trailing
	// device-token-only encoding from ever colliding in length with a
	// token-plus-extra-fields one.
	if !got.HasDeviceToken {
		t.Errorf("extra fields should force HasDeviceToken on decode")
	}
	if got.DeviceToken != ([deviceTokenLength]byte{}) {
		t.Errorf("expected zero-value device token, got %+v", got.DeviceToken)
	}
	if got.PSM != a.PSM {
		t.Errorf("psm mismatch")
	}
}

// TestLegacyAdvertisementExtraFieldsDoesNotCollideWithBareDeviceToken
// covers the specific byte-length collision between a bare 5-byte
// device-token trailer and a token-plus-extra-fields trailer that
// happens to total 5 bytes under the old (presence-byte) encoding:
// HasInstantConnectionPayload with a 1-byte payload, no PSM, no
// explicit device token used to decode as HasDeviceToken=true with a
// garbage 5-byte token instead of the intended extra fields.
func TestLegacyAdvertisementExtraFieldsDoesNotCollideWithBareDeviceToken(t *testing.T) {
	withExtraFields := LegacyAdvertisement{
		Version:                     legacyAdvVersion2,
		ServiceIDHash:               [3]byte{2, 2, 2},
		Data:                        []byte{7},
		HasInstantConnectionPayload: true,
		InstantConnectionPayload:    []byte{0xAB},
	}
	extraBytes, err := withExtraFields.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	bareToken := LegacyAdvertisement{
		Version:        legacyAdvVersion2,
		ServiceIDHash:  [3]byte{2, 2, 2},
		Data:           []byte{7},
		DeviceToken:    [5]byte{1, 2, 3, 4, 5},
		HasDeviceToken: true,
	}
	bareBytes, err := bareToken.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	if len(extraBytes) == len(bareBytes) {
		t.Fatalf("expected extra-fields and bare-device-token encodings to differ in length, both got %d", len(extraBytes))
	}

	got, err := LegacyAdvertisementFromBytes(extraBytes, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if !got.HasInstantConnectionPayload || !bytes.Equal(got.InstantConnectionPayload, withExtraFields.InstantConnectionPayload) {
		t.Errorf("extra fields lost in decode: %+v", got)
	}
	if got.HasPSM {
		t.Errorf("unexpected PSM: %+v", got)
	}

	gotBare, err := LegacyAdvertisementFromBytes(bareBytes, false)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if !reflect.DeepEqual(gotBare, bareToken) {
		t.Errorf("got %+v, want %+v", gotBare, bareToken)
	}
}

func TestFastAdvertisementRoundTrip(t *testing.T) {
	a := LegacyAdvertisement{
		Version: legacyAdvVersion2,
		IsFast:  true,
		Data:    []byte{0x04, 0x02, 0x00},
	}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := LegacyAdvertisementFromBytes(b, true)
	if err != nil {
		t.Fatalf("LegacyAdvertisementFromBytes: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("got %+v, want %+v", got, a)
	}
}

func TestLegacyAdvertisementTooLongFailsToEncode(t *testing.T) {
	a := LegacyAdvertisement{
		Version: legacyAdvVersion2,
		Data:    make([]byte, 510),
	}
	if _, err := a.ToBytes(); err == nil {
		t.Fatalf("expected failure: regular advertisement exceeding 512 bytes")
	}
}

func TestFastAdvertisementTooLongFailsToEncode(t *testing.T) {
	a := LegacyAdvertisement{
		Version: legacyAdvVersion2,
		IsFast:  true,
		Data:    make([]byte, 23),
	}
	if _, err := a.ToBytes(); err == nil {
		t.Fatalf("expected failure: fast advertisement exceeding 24 bytes")
	}
}

func TestLegacyAdvertisementUnsupportedVersionRejected(t *testing.T) {
	a := LegacyAdvertisement{Version: 7, ServiceIDHash: [3]byte{1, 2, 3}}
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if _, err := LegacyAdvertisementFromBytes(b, false); err == nil {
		t.Fatalf("expected unsupported version rejection")
	} else if k, ok := KindOf(err); !ok || k != KindUnsupportedVersion {
		t.Errorf("got kind %v, want KindUnsupportedVersion", k)
	}
}
