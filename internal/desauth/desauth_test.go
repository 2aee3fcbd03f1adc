package desauth

import "testing"

func TestReverseBitsInvolution(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		if got := reverseBits(reverseBits(b)); got != b {
			t.Fatalf("reverseBits(reverseBits(%#x)) = %#x, want %#x", b, got, b)
		}
	}
}

func TestReverseBitsKnownValues(t *testing.T) {
	cases := map[byte]byte{
		0x00: 0x00,
		0xff: 0xff,
		0x01: 0x80,
		0x80: 0x01,
		0x0f: 0xf0,
		0x13: 0xc8,
	}
	for in, want := range cases {
		if got := reverseBits(in); got != want {
			t.Errorf("reverseBits(%#x) = %#x, want %#x", in, got, want)
		}
	}
}

// TestEncryptAgainstClassicDESVector pins down the non-VNC-specific half of
// the algorithm (the DES block cipher itself, via crypto/des) against the
// textbook DES test vector:
//
//	key        = 13 34 57 79 9B BC DF F1
//	plaintext  = 01 23 45 67 89 AB CD EF
//	ciphertext = 85 E8 13 54 0F 0A B4 05
//
// (as reproduced in, e.g., Stallings' "Cryptography and Network Security"
// worked DES example). Because Encrypt reverses the bit order of each
// password byte before keying DES, and bit reversal is its own inverse, we
// feed a password equal to the bit-reversal of the classic key so that
// deriveKey recovers the classic key exactly. The challenge is built from
// two copies of the classic plaintext block, so both halves of the 16-byte
// response must equal the classic ciphertext block.
func TestEncryptAgainstClassicDESVector(t *testing.T) {
	classicKey := [8]byte{0x13, 0x34, 0x57, 0x79, 0x9B, 0xBC, 0xDF, 0xF1}
	classicPlaintext := [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	classicCiphertext := [8]byte{0x85, 0xE8, 0x13, 0x54, 0x0F, 0x0A, 0xB4, 0x05}

	password := make([]byte, 8)
	for i, b := range classicKey {
		password[i] = reverseBits(b)
	}

	var challenge [ChallengeSize]byte
	copy(challenge[0:8], classicPlaintext[:])
	copy(challenge[8:16], classicPlaintext[:])

	response, err := Encrypt(password, challenge)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for i := 0; i < 8; i++ {
		if response[i] != classicCiphertext[i] || response[8+i] != classicCiphertext[i] {
			t.Fatalf("response = %x, want two copies of %x", response, classicCiphertext)
		}
	}
}

func TestEncryptShortPasswordIsZeroPadded(t *testing.T) {
	var challenge [ChallengeSize]byte
	short, err := Encrypt([]byte("ab"), challenge)
	if err != nil {
		t.Fatalf("Encrypt short: %v", err)
	}
	padded, err := Encrypt([]byte{'a', 'b', 0, 0, 0, 0, 0, 0}, challenge)
	if err != nil {
		t.Fatalf("Encrypt padded: %v", err)
	}
	if short != padded {
		t.Fatalf("short password result %x != zero-padded result %x", short, padded)
	}
}

func TestEncryptLongPasswordTruncatedAtEightBytes(t *testing.T) {
	var challenge [ChallengeSize]byte
	a, err := Encrypt([]byte("12345678tail-ignored"), challenge)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt([]byte("12345678"), challenge)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a != b {
		t.Fatalf("password beyond 8 bytes should be ignored: %x != %x", a, b)
	}
}

func TestEncryptDeterministic(t *testing.T) {
	var challenge [ChallengeSize]byte
	for i := range challenge {
		challenge[i] = byte(i * 7)
	}
	a, err := Encrypt([]byte("secret"), challenge)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt([]byte("secret"), challenge)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a != b {
		t.Fatalf("Encrypt is not deterministic: %x != %x", a, b)
	}
}

func TestEncryptDifferentPasswordsDiffer(t *testing.T) {
	var challenge [ChallengeSize]byte
	a, _ := Encrypt([]byte("secret1"), challenge)
	b, _ := Encrypt([]byte("secret2"), challenge)
	if a == b {
		t.Fatalf("different passwords produced the same response")
	}
}
