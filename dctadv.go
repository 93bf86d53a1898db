package bled

import "unicode/utf8"

// DCT data element type tags. These are configuration constants (§9
// open question: the spec only requires fixed, self-consistent values,
// not any particular numbering), chosen small enough that the service-
// id-hash and PSM elements always take the 1-byte DataElement header
// form.
const (
	dctTypeServiceIDHash     uint8 = 1
	dctTypePSM               uint8 = 2
	dctTypeDeviceInformation uint8 = 3
)

const dctMaxNameBytes = 7

// DCTAdvertisement is the compact, self-contained advertisement format
// (§3 "DCT advertisement"): a 1-byte header, three data elements
// (service-id hash, PSM, device information).
type DCTAdvertisement struct {
	Version       uint8 // 3 bits
	ServiceIDHash [2]byte
	PSM           uint16
	DeviceName    string // truncated to <= 7 UTF-8 bytes on encode
	Truncated     bool
	Dedup         uint8 // 7 bits
}

// ToBytes serializes a. The device name is truncated to the longest
// UTF-8-safe prefix of at most 7 bytes; Truncated is set to true on the
// wire whenever that truncation actually dropped bytes, regardless of
// the struct's current Truncated value.
func (a DCTAdvertisement) ToBytes() ([]byte, error) {
	if !utf8.ValidString(a.DeviceName) {
		return nil, newCodecErr(KindInvalidUTF8, []byte(a.DeviceName), "device name is not valid utf-8")
	}
	if a.PSM == 0 {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "psm must be nonzero")
	}
	if a.Dedup > 0x7F {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "dedup %d exceeds 7 bits", a.Dedup)
	}

	name, truncated := truncateUTF8(a.DeviceName, dctMaxNameBytes)

	w := NewBitWriter()
	if err := w.WriteBits(a.Version&0x7, 3); err != nil {
		return nil, err
	}
	if err := w.WriteBits(0, 5); err != nil { // reserved
		return nil, err
	}

	hashDE, err := NewDataElement(dctTypeServiceIDHash, a.ServiceIDHash[:])
	if err != nil {
		return nil, err
	}
	hashBytes, err := hashDE.ToBytes()
	if err != nil {
		return nil, err
	}
	if err := w.WriteBytes(hashBytes); err != nil {
		return nil, err
	}

	psmBuf := []byte{byte(a.PSM >> 8), byte(a.PSM)}
	psmDE, err := NewDataElement(dctTypePSM, psmBuf)
	if err != nil {
		return nil, err
	}
	psmBytes, err := psmDE.ToBytes()
	if err != nil {
		return nil, err
	}
	if err := w.WriteBytes(psmBytes); err != nil {
		return nil, err
	}

	flagByte := a.Dedup & 0x7F
	if truncated {
		flagByte |= 0x80
	}
	devInfoValue := append([]byte{flagByte}, []byte(name)...)
	devInfoDE, err := NewDataElement(dctTypeDeviceInformation, devInfoValue)
	if err != nil {
		return nil, err
	}
	devInfoBytes, err := devInfoDE.ToBytes()
	if err != nil {
		return nil, err
	}
	if err := w.WriteBytes(devInfoBytes); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// DCTAdvertisementFromBytes requires the exact sequence of three data
// elements (service-id hash, PSM, device information) in that order;
// any other order, length, or type is rejected.
func DCTAdvertisementFromBytes(b []byte) (DCTAdvertisement, error) {
	r := NewBitReader(b)
	version, err := r.ReadBits(3)
	if err != nil {
		return DCTAdvertisement{}, err
	}
	if _, err := r.ReadBits(5); err != nil {
		return DCTAdvertisement{}, err
	}

	rest, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return DCTAdvertisement{}, err
	}

	hashDE, n, err := DataElementFromBytes(rest)
	if err != nil {
		return DCTAdvertisement{}, err
	}
	if hashDE.Type != dctTypeServiceIDHash || len(hashDE.Value) != 2 {
		return DCTAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "expected service-id-hash data element first")
	}
	rest = rest[n:]

	psmDE, n, err := DataElementFromBytes(rest)
	if err != nil {
		return DCTAdvertisement{}, err
	}
	if psmDE.Type != dctTypePSM || len(psmDE.Value) != 2 {
		return DCTAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "expected psm data element second")
	}
	rest = rest[n:]

	devInfoDE, n, err := DataElementFromBytes(rest)
	if err != nil {
		return DCTAdvertisement{}, err
	}
	if devInfoDE.Type != dctTypeDeviceInformation || len(devInfoDE.Value) == 0 || len(devInfoDE.Value) > 1+dctMaxNameBytes {
		return DCTAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "expected device-information data element third")
	}
	rest = rest[n:]
	if len(rest) != 0 {
		return DCTAdvertisement{}, newCodecErr(KindLengthMismatch, b, "%d trailing bytes after device-information element", len(rest))
	}

	a := DCTAdvertisement{Version: version}
	copy(a.ServiceIDHash[:], hashDE.Value)
	a.PSM = uint16(psmDE.Value[0])<<8 | uint16(psmDE.Value[1])
	if a.PSM == 0 {
		return DCTAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "psm must be nonzero")
	}

	flagByte := devInfoDE.Value[0]
	a.Truncated = flagByte&0x80 != 0
	a.Dedup = flagByte & 0x7F
	name := devInfoDE.Value[1:]
	if !utf8.Valid(name) {
		return DCTAdvertisement{}, newCodecErr(KindInvalidUTF8, name, "device name is not valid utf-8")
	}
	a.DeviceName = string(name)

	return a, nil
}
