package bled

// DataElement is the TLV building block for structured advertisements
// (§4.2/C2). Type 0 is reserved; length is limited to 7 bits (0..127).
type DataElement struct {
	Type  uint8
	Value []byte
}

const (
	maxDataElementShortType   = 15
	maxDataElementShortLength = 7
	maxDataElementLength      = 127
)

// NewDataElement validates and constructs a DataElement.
func NewDataElement(typ uint8, value []byte) (DataElement, error) {
	de := DataElement{Type: typ, Value: value}
	if err := de.validate(); err != nil {
		return DataElement{}, err
	}
	return de, nil
}

func (de DataElement) validate() error {
	if de.Type == 0 {
		return newCodecErr(KindFieldOutOfRange, nil, "data element type 0 is reserved")
	}
	if len(de.Value) > maxDataElementLength {
		return newCodecErr(KindFieldOutOfRange, nil, "data element length %d exceeds %d", len(de.Value), maxDataElementLength)
	}
	return nil
}

// usesShortForm reports whether the 1-byte header form applies:
// type <= 15 and length <= 7.
func (de DataElement) usesShortForm() bool {
	return de.Type <= maxDataElementShortType && len(de.Value) <= maxDataElementShortLength
}

// ToBytes serializes the element. One-byte form: [0, len:3, type:4].
// Two-byte form: [1, len:7][type:8].
func (de DataElement) ToBytes() ([]byte, error) {
	if err := de.validate(); err != nil {
		return nil, err
	}
	w := NewBitWriter()
	if de.usesShortForm() {
		if err := w.WriteBits(0, 1); err != nil {
			return nil, err
		}
		if err := w.WriteBits(uint8(len(de.Value)), 3); err != nil {
			return nil, err
		}
		if err := w.WriteBits(de.Type, 4); err != nil {
			return nil, err
		}
	} else {
		if err := w.WriteBits(1, 1); err != nil {
			return nil, err
		}
		if err := w.WriteBits(uint8(len(de.Value)), 7); err != nil {
			return nil, err
		}
		if err := w.WriteU8(de.Type); err != nil {
			return nil, err
		}
	}
	if err := w.WriteBytes(de.Value); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DataElementFromBytes parses a single DataElement from the front of b
// and returns it along with the number of bytes consumed.
func DataElementFromBytes(b []byte) (DataElement, int, error) {
	r := NewBitReader(b)
	form, err := r.ReadBits(1)
	if err != nil {
		return DataElement{}, 0, err
	}
	if form == 0 {
		length, err := r.ReadBits(3)
		if err != nil {
			return DataElement{}, 0, err
		}
		typ, err := r.ReadBits(4)
		if err != nil {
			return DataElement{}, 0, err
		}
		if typ == 0 {
			return DataElement{}, 0, newCodecErr(KindFieldOutOfRange, b, "data element type 0 is reserved")
		}
		value, err := r.ReadBytes(int(length))
		if err != nil {
			return DataElement{}, 0, err
		}
		de := DataElement{Type: typ, Value: append([]byte(nil), value...)}
		return de, 1 + int(length), nil
	}

	length, err := r.ReadBits(7)
	if err != nil {
		return DataElement{}, 0, err
	}
	typ, err := r.ReadU8()
	if err != nil {
		return DataElement{}, 0, err
	}
	if typ == 0 {
		return DataElement{}, 0, newCodecErr(KindFieldOutOfRange, b, "data element type 0 is reserved")
	}
	value, err := r.ReadBytes(int(length))
	if err != nil {
		return DataElement{}, 0, err
	}
	de := DataElement{Type: typ, Value: append([]byte(nil), value...)}
	return de, 2 + int(length), nil
}
