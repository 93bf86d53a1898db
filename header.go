package bled

// kMinAdvertisementHeaderLength is the serialized size of an
// AdvertisementHeader without its optional trailing PSM (§4.3):
// 1 (packed flags byte) + 10 (bloom filter) + 4 (hash) = 15.
const kMinAdvertisementHeaderLength = 1 + 10 + 4

// AdvertisementHeaderVersion identifies the header layout version.
// Only VersionV2 is accepted by upper layers; other versions parse
// but are rejected at that layer (§3 "Advertisement header" invariant).
type AdvertisementHeaderVersion uint8

const (
	HeaderVersionV1 AdvertisementHeaderVersion = 1
	HeaderVersionV2 AdvertisementHeaderVersion = 2
)

// AdvertisementHeader is the fixed-layout descriptor that identifies a
// remote advertiser and gates GATT reads (§3, §4.3). It is comparable
// with == and safe as a map key: every field participates in equality.
type AdvertisementHeader struct {
	Version              AdvertisementHeaderVersion
	SupportsExtended     bool
	NumSlots             uint8 // 4 bits, 0..15
	ServiceIDBloomFilter bloomFilter
	AdvertisementHash    [4]byte
	PSM                  uint16
	HasPSM               bool
}

// IsValid reports whether h is a version this component will act on.
// Invalid-version headers still parse (so logging/metrics can see
// them) but are not fed to the GATT retry pipeline.
func (h AdvertisementHeader) IsValid() bool {
	return h.Version == HeaderVersionV2
}

// ToBytes serializes h: kMinAdvertisementHeaderLength bytes, followed
// by a 2-byte PSM only if HasPSM is set.
func (h AdvertisementHeader) ToBytes() ([]byte, error) {
	if h.Version > 0x07 {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "advertisement header version %d exceeds 3 bits", h.Version)
	}
	if h.NumSlots > 0x0F {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "advertisement header num_slots %d exceeds 4 bits", h.NumSlots)
	}
	w := NewBitWriter()
	if err := w.WriteBits(uint8(h.Version), 3); err != nil {
		return nil, err
	}
	ext := uint8(0)
	if h.SupportsExtended {
		ext = 1
	}
	if err := w.WriteBits(ext, 1); err != nil {
		return nil, err
	}
	if err := w.WriteBits(h.NumSlots, 4); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(h.ServiceIDBloomFilter[:]); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(h.AdvertisementHash[:]); err != nil {
		return nil, err
	}
	if h.HasPSM {
		if err := w.WriteU16(h.PSM); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// AdvertisementHeaderFromBytes parses b as an AdvertisementHeader. b
// may be exactly kMinAdvertisementHeaderLength bytes (no PSM) or
// kMinAdvertisementHeaderLength+2 bytes (trailing PSM); any other
// length is a LengthMismatch.
func AdvertisementHeaderFromBytes(b []byte) (AdvertisementHeader, error) {
	if len(b) != kMinAdvertisementHeaderLength && len(b) != kMinAdvertisementHeaderLength+2 {
		return AdvertisementHeader{}, newCodecErr(KindLengthMismatch, b, "advertisement header must be %d or %d bytes, got %d", kMinAdvertisementHeaderLength, kMinAdvertisementHeaderLength+2, len(b))
	}
	r := NewBitReader(b)
	version, err := r.ReadBits(3)
	if err != nil {
		return AdvertisementHeader{}, err
	}
	ext, err := r.ReadBits(1)
	if err != nil {
		return AdvertisementHeader{}, err
	}
	numSlots, err := r.ReadBits(4)
	if err != nil {
		return AdvertisementHeader{}, err
	}
	bloomBytes, err := r.ReadBytes(10)
	if err != nil {
		return AdvertisementHeader{}, err
	}
	hashBytes, err := r.ReadBytes(4)
	if err != nil {
		return AdvertisementHeader{}, err
	}

	h := AdvertisementHeader{
		Version:          AdvertisementHeaderVersion(version),
		SupportsExtended: ext == 1,
		NumSlots:         numSlots,
	}
	copy(h.ServiceIDBloomFilter[:], bloomBytes)
	copy(h.AdvertisementHash[:], hashBytes)

	if len(b) == kMinAdvertisementHeaderLength+2 {
		psm, err := r.ReadU16()
		if err != nil {
			return AdvertisementHeader{}, err
		}
		h.PSM = psm
		h.HasPSM = true
	}
	return h, nil
}

// MayContainServiceID reports whether serviceID could be one of the
// services that advertised this header (§4.6 step 5, "Interest
// filter"). False positives are possible; false negatives are not.
func (h AdvertisementHeader) MayContainServiceID(serviceID string) bool {
	return bloomFilterMayContain(h.ServiceIDBloomFilter, serviceID)
}

// HeaderWithBloomFilterContainingAll synthesizes a header whose Bloom
// filter contains every id in ids, for the "last resort" path of §4.6
// step 4: when no real header could be extracted from a sighting, a
// header that trivially passes the interest filter is substituted so a
// GATT read is still attempted.
func HeaderWithBloomFilterContainingAll(ids []string, hash [4]byte) AdvertisementHeader {
	return AdvertisementHeader{
		Version:              HeaderVersionV2,
		ServiceIDBloomFilter: newBloomFilterContainingAll(ids),
		AdvertisementHash:    hash,
	}
}
