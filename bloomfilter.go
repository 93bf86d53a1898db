package bled

import "hash/fnv"

// bloomFilterBits is the width of the advertisement header's embedded
// Bloom filter: 10 bytes = 80 bits (§3 "Advertisement header").
const bloomFilterBits = 10 * 8

// bloomFilterHashCount mirrors the original's two-hash-function Bloom
// filter (bloom_filter.h): k=2, using Kirsch-Mitzenmacher double
// hashing so only two independent hashes are needed to derive any
// number of indices.
const bloomFilterHashCount = 2

// bloomFilter is a fixed 80-bit Bloom filter, embedded verbatim as the
// advertisement header's service_id_bloom_filter field.
type bloomFilter [10]byte

func (f *bloomFilter) set(pos int) {
	f[pos/8] |= 1 << uint(pos%8)
}

func (f bloomFilter) test(pos int) bool {
	return f[pos/8]&(1<<uint(pos%8)) != 0
}

// bloomHashes returns the two independent 32-bit hashes of s used to
// derive bit positions.
func bloomHashes(s string) (h1, h2 uint32) {
	a := fnv.New32a()
	_, _ = a.Write([]byte(s))
	h1 = a.Sum32()

	b := fnv.New32()
	_, _ = b.Write([]byte(s))
	h2 = b.Sum32()
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// bloomFilterAdd inserts s into f.
func bloomFilterAdd(f *bloomFilter, s string) {
	h1, h2 := bloomHashes(s)
	for i := 0; i < bloomFilterHashCount; i++ {
		pos := int((h1 + uint32(i)*h2) % bloomFilterBits)
		f.set(pos)
	}
}

// bloomFilterMayContain reports whether s was possibly added to f. A
// false positive is possible; a false negative is not.
func bloomFilterMayContain(f bloomFilter, s string) bool {
	h1, h2 := bloomHashes(s)
	for i := 0; i < bloomFilterHashCount; i++ {
		pos := int((h1 + uint32(i)*h2) % bloomFilterBits)
		if !f.test(pos) {
			return false
		}
	}
	return true
}

// newBloomFilterContainingAll builds a filter that tests positive for
// every service id in ids. Used as the "last resort" synthetic header
// (§4.6 step 4) so the interest filter always passes when no real
// header could be extracted.
func newBloomFilterContainingAll(ids []string) bloomFilter {
	var f bloomFilter
	for _, id := range ids {
		bloomFilterAdd(&f, id)
	}
	return f
}
