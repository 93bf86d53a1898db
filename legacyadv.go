package bled

// Size limits from §3/§6: a regular legacy advertisement is at most
// 512 bytes on the wire; a fast advertisement (no GATT read required)
// is at most 24 bytes.
const (
	maxLegacyAdvertisementLength = 512
	maxFastAdvertisementLength   = 24
	deviceTokenLength            = 5
)

// legacyAdvVersion1 and legacyAdvVersion2 are the only versions this
// component accepts for legacy advertisements; everything else is rejected on
// decode (§3 "unknown versions rejected").
const (
	legacyAdvVersion1 uint8 = 1
	legacyAdvVersion2 uint8 = 2
)

// LegacyAdvertisement is the original (pre-v2-header) BLE advertisement
// format (§3 "Legacy BLE advertisement", §4.3). Fast advertisements use
// the same struct with IsFast set and ServiceIDHash unused.
type LegacyAdvertisement struct {
	Version       uint8 // 3 bits
	SocketVersion uint8 // 3 bits; accept-all beyond validated range (§9 open question)
	IsFast        bool
	IsSecondary   bool // accept-all beyond validated range (§9 open question)

	ServiceIDHash [3]byte // absent (ignored) when IsFast
	Data          []byte

	DeviceToken    [deviceTokenLength]byte
	HasDeviceToken bool

	// Extra fields: only ever emitted together, after the device token,
	// via the dedicated byte-array variant (see hasExtraFields). Extra
	// fields always imply a device token on the wire — for backward
	// compatibility a receiver must be able to tell a bare device token
	// apart from a device token followed by extra fields purely by
	// length, which only works if the token is never omitted when extra
	// fields are present (set HasDeviceToken whenever hasExtraFields is
	// true; ToBytes emits DeviceToken's zero value if it wasn't).
	PSM                         uint16
	HasPSM                      bool
	InstantConnectionPayload    []byte
	HasInstantConnectionPayload bool
}

func (a LegacyAdvertisement) hasExtraFields() bool {
	return a.HasPSM || a.HasInstantConnectionPayload
}

func (a LegacyAdvertisement) maxLength() int {
	if a.IsFast {
		return maxFastAdvertisementLength
	}
	return maxLegacyAdvertisementLength
}

// ToBytes serializes a. If a carries extra fields (PSM and/or an
// instant-connection payload) it automatically uses the dedicated
// byte-array variant that appends them after the device token;
// otherwise it uses the plain regular-form path, which never includes
// them (§4.3).
func (a LegacyAdvertisement) ToBytes() ([]byte, error) {
	w := NewBitWriter()
	if err := w.WriteBits(a.Version&0x7, 3); err != nil {
		return nil, err
	}
	if err := w.WriteBits(a.SocketVersion&0x7, 3); err != nil {
		return nil, err
	}
	fast := uint8(0)
	if a.IsFast {
		fast = 1
	}
	if err := w.WriteBits(fast, 1); err != nil {
		return nil, err
	}
	sec := uint8(0)
	if a.IsSecondary {
		sec = 1
	}
	if err := w.WriteBits(sec, 1); err != nil {
		return nil, err
	}

	if !a.IsFast {
		if err := w.WriteBytes(a.ServiceIDHash[:]); err != nil {
			return nil, err
		}
	}

	if a.IsFast {
		if len(a.Data) > 0xFF {
			return nil, newCodecErr(KindFieldOutOfRange, nil, "fast advertisement data length %d exceeds 1 byte", len(a.Data))
		}
		if err := w.WriteU8(uint8(len(a.Data))); err != nil {
			return nil, err
		}
	} else {
		if err := w.WriteU32(uint32(len(a.Data))); err != nil {
			return nil, err
		}
	}
	if err := w.WriteBytes(a.Data); err != nil {
		return nil, err
	}

	if a.hasExtraFields() {
		// Always write the device token, even if HasDeviceToken is
		// false (the zero value then stands in for it): a bare 5-byte
		// trailer must never collide on length with a token-plus-
		// extra-fields trailer, which is only guaranteed if the token
		// is never dropped here.
		if err := w.WriteBytes(a.DeviceToken[:]); err != nil {
			return nil, err
		}
		var mask uint8
		if a.HasPSM {
			mask |= 0x1
		}
		if a.HasInstantConnectionPayload {
			mask |= 0x2
		}
		if err := w.WriteU8(mask); err != nil {
			return nil, err
		}
		if a.HasPSM {
			if err := w.WriteU16(a.PSM); err != nil {
				return nil, err
			}
		}
		if a.HasInstantConnectionPayload {
			if len(a.InstantConnectionPayload) > 0xFFFF {
				return nil, newCodecErr(KindFieldOutOfRange, nil, "instant-connection payload too long: %d", len(a.InstantConnectionPayload))
			}
			if err := w.WriteU16(uint16(len(a.InstantConnectionPayload))); err != nil {
				return nil, err
			}
			if err := w.WriteBytes(a.InstantConnectionPayload); err != nil {
				return nil, err
			}
		}
	} else if a.HasDeviceToken {
		if err := w.WriteBytes(a.DeviceToken[:]); err != nil {
			return nil, err
		}
	}

	out := w.Bytes()
	if len(out) > a.maxLength() {
		return nil, newCodecErr(KindFieldOutOfRange, nil, "advertisement length %d exceeds max %d", len(out), a.maxLength())
	}
	return out, nil
}

// LegacyAdvertisementFromBytes parses b. isFast must be known by the
// caller ahead of time (it comes from which path delivered the bytes:
// fast advertisements never carry a service-id hash, so the bit alone
// is not enough to disambiguate a zero-length buffer).
func LegacyAdvertisementFromBytes(b []byte, isFast bool) (LegacyAdvertisement, error) {
	maxLen := maxLegacyAdvertisementLength
	if isFast {
		maxLen = maxFastAdvertisementLength
	}
	if len(b) > maxLen {
		return LegacyAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "advertisement length %d exceeds max %d", len(b), maxLen)
	}

	r := NewBitReader(b)
	version, err := r.ReadBits(3)
	if err != nil {
		return LegacyAdvertisement{}, err
	}
	if version != legacyAdvVersion1 && version != legacyAdvVersion2 {
		return LegacyAdvertisement{}, newCodecErr(KindUnsupportedVersion, b, "legacy advertisement version %d unsupported", version)
	}
	socketVersion, err := r.ReadBits(3)
	if err != nil {
		return LegacyAdvertisement{}, err
	}
	fastBit, err := r.ReadBits(1)
	if err != nil {
		return LegacyAdvertisement{}, err
	}
	if (fastBit == 1) != isFast {
		return LegacyAdvertisement{}, newCodecErr(KindFieldOutOfRange, b, "is_fast bit %d does not match delivery path", fastBit)
	}
	secBit, err := r.ReadBits(1)
	if err != nil {
		return LegacyAdvertisement{}, err
	}

	a := LegacyAdvertisement{
		Version:       version,
		SocketVersion: socketVersion,
		IsFast:        isFast,
		IsSecondary:   secBit == 1,
	}

	if !isFast {
		hash, err := r.ReadBytes(3)
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		copy(a.ServiceIDHash[:], hash)
	}

	var dataLen int
	if isFast {
		n, err := r.ReadU8()
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		dataLen = int(n)
	} else {
		n, err := r.ReadU32()
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		dataLen = int(n)
	}
	data, err := r.ReadBytes(dataLen)
	if err != nil {
		return LegacyAdvertisement{}, err
	}
	a.Data = append([]byte(nil), data...)

	remaining := r.Remaining()
	switch {
	case remaining == 0:
		// no device token, no extra fields
	case remaining == deviceTokenLength:
		tok, err := r.ReadBytes(deviceTokenLength)
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		copy(a.DeviceToken[:], tok)
		a.HasDeviceToken = true
	default:
		// Anything other than exactly deviceTokenLength trailing bytes
		// means extra fields are present, which on the wire always
		// follow a device token (see hasExtraFields in ToBytes): read
		// that token first, unconditionally, then the extra-fields
		// mask from whatever remains. This is what makes the
		// deviceTokenLength-only case above unambiguous: a trailer can
		// never be both "just a token" and "token plus extra fields"
		// at the same length, since the latter is always strictly
		// longer.
		tok, err := r.ReadBytes(deviceTokenLength)
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		copy(a.DeviceToken[:], tok)
		a.HasDeviceToken = true

		mask, err := r.ReadU8()
		if err != nil {
			return LegacyAdvertisement{}, err
		}
		if mask&0x1 != 0 {
			psm, err := r.ReadU16()
			if err != nil {
				return LegacyAdvertisement{}, err
			}
			a.PSM = psm
			a.HasPSM = true
		}
		if mask&0x2 != 0 {
			plen, err := r.ReadU16()
			if err != nil {
				return LegacyAdvertisement{}, err
			}
			payload, err := r.ReadBytes(int(plen))
			if err != nil {
				return LegacyAdvertisement{}, err
			}
			a.InstantConnectionPayload = append([]byte(nil), payload...)
			a.HasInstantConnectionPayload = true
		}
		if r.Remaining() != 0 {
			return LegacyAdvertisement{}, newCodecErr(KindLengthMismatch, b, "%d trailing bytes after extra fields", r.Remaining())
		}
	}

	return a, nil
}
