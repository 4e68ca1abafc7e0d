// Package hashslot maps keys to hash slots the way the cluster does, so the
// client and the servers always agree on which of the 16384 slots a key
// belongs to.
//
// The algorithm is CRC16 (XMODEM variant, polynomial 0x1021) of the key
// modulo 16384, with one twist: if the key contains a non-empty hash tag,
// a substring wrapped in curly braces like "{user:42}" in
// "{user:42}:profile", only the tag is hashed. Keys sharing a tag therefore
// land on the same slot, which is what makes multi-key operations on related
// keys possible in a sharded deployment.
package hashslot

import "strings"

// NumSlots is the fixed size of the cluster's hash-slot space.
const NumSlots = 16384

// Slot returns the hash slot for key, in [0, NumSlots).
//
// Tag extraction rules, matching the server:
//   - Only the first "{" counts.
//   - The tag ends at the first "}" after it.
//   - An empty tag ("{}") is ignored; the whole key is hashed.
//   - An unterminated "{" is not a tag; the whole key is hashed.
func Slot(key string) int {
	if start := strings.IndexByte(key, '{'); start >= 0 {
		if end := strings.IndexByte(key[start+1:], '}'); end > 0 {
			key = key[start+1 : start+1+end]
		}
	}
	return int(CRC16([]byte(key)) % NumSlots)
}

// CRC16 computes the XMODEM CRC-16 checksum used for slot hashing.
// Reference check value: CRC16([]byte("123456789")) == 0x31C3.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
