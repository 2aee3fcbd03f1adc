// Package desauth implements the legacy VNC Authentication (RFC 6143
// section 7.2.2, "VNC Authentication") challenge-response: DES in ECB mode,
// keyed by the first 8 bytes of the password with each key byte's bit order
// reversed.
//
// The bit reversal is a VNC-specific quirk, not part of DES itself (see RFC
// 6143 Errata 4951): VNC implementations derive their DES key from a
// password treating bit order as little-endian where DES expects big-endian,
// which in practice means reversing the bits within each key byte. The
// cipher itself is the standard library's crypto/des; there is nothing
// VNC-specific about the S-boxes or the key schedule, only about the key
// material fed in.
package desauth

import "crypto/des"

// ChallengeSize and ResponseSize are fixed by the protocol: the server's
// challenge and the client's response are both two concatenated 8-byte DES
// blocks.
const (
	ChallengeSize = 16
	ResponseSize  = 16
	blockSize     = 8
)

// reverseBits reverses the bit order within a single byte (bit 0 becomes
// bit 7, bit 1 becomes bit 6, and so on).
func reverseBits(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// deriveKey builds the 8-byte DES key from a password: the first 8 bytes
// (zero-padded if shorter), each with its bit order reversed.
func deriveKey(password []byte) [blockSize]byte {
	var key [blockSize]byte
	n := len(password)
	if n > blockSize {
		n = blockSize
	}
	for i := 0; i < n; i++ {
		key[i] = reverseBits(password[i])
	}
	// Bytes beyond len(password) stay zero; reverseBits(0) == 0, so no
	// explicit padding step is needed for the tail.
	return key
}

// Encrypt computes the 16-byte VNC authentication response for the given
// password and 16-byte server challenge. It implements DES-ECB over the two
// 8-byte halves of challenge independently, keyed by the bit-reversed
// password-derived key.
func Encrypt(password []byte, challenge [ChallengeSize]byte) ([ResponseSize]byte, error) {
	key := deriveKey(password)
	block, err := des.NewCipher(key[:])
	if err != nil {
		return [ResponseSize]byte{}, err
	}

	var response [ResponseSize]byte
	block.Encrypt(response[0:blockSize], challenge[0:blockSize])
	block.Encrypt(response[blockSize:2*blockSize], challenge[blockSize:2*blockSize])
	return response, nil
}
