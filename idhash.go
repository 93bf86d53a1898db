package bled

import (
	"crypto/sha256"
	"unicode/utf8"
)

// endpointIDAlphabet is the fixed alphabet endpoint ids are drawn from.
const endpointIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

// ServiceIDHash computes the 3-byte, unkeyed hash used to correlate a
// legacy advertisement with a tracked service id (§6). Collisions are
// possible by design and are resolved by the tracker's per-tracked-
// service membership test.
func ServiceIDHash(serviceID string) [3]byte {
	sum := sha256.Sum256([]byte(serviceID))
	var out [3]byte
	copy(out[:], sum[:3])
	return out
}

// dctServiceIDHash derives the DCT advertisement's 2-byte service-id
// hash via HKDF-SHA256 with the fixed salt/info pair named in §3.
func dctServiceIDHash(serviceID string) ([2]byte, error) {
	out, err := hkdfSHA256(
		[]byte(serviceID),
		[]byte("DCT Protocol"),
		[]byte("Service ID Hash"),
		2,
	)
	var result [2]byte
	if err != nil {
		return result, err
	}
	copy(result[:], out)
	return result, nil
}

// truncateUTF8 returns the longest prefix of s, measured in bytes, that
// is at most maxBytes long and does not split a multi-byte rune. It
// reports whether truncation actually dropped anything.
func truncateUTF8(s string, maxBytes int) (truncated string, wasTruncated bool) {
	if len(s) <= maxBytes {
		return s, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// EndpointID derives the 4-character human-readable advertiser id from
// a (possibly truncated) device name and a 7-bit dedup value (§4.3
// "Endpoint-id generation"). name is first truncated to at most 7 UTF-8
// safe bytes, then dedup is appended as a single byte, then SHA-256 is
// taken; the first four digest bytes are mapped, one at a time, modulo
// 36 through endpointIDAlphabet.
func EndpointID(name string, dedup uint8) (string, error) {
	if dedup > 0x7F {
		return "", newCodecErr(KindFieldOutOfRange, nil, "dedup %d exceeds 7 bits", dedup)
	}
	trimmed, _ := truncateUTF8(name, 7)
	if !utf8.ValidString(trimmed) {
		return "", newCodecErr(KindInvalidUTF8, []byte(trimmed), "device name is not valid utf-8")
	}
	buf := append([]byte(trimmed), dedup)
	sum := sha256.Sum256(buf)

	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		out[i] = endpointIDAlphabet[int(sum[i])%len(endpointIDAlphabet)]
	}
	return string(out), nil
}
