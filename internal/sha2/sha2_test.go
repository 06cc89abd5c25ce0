package sha2

import (
	"encoding/hex"
	"testing"
)

// FIPS 180-4 single-block test vectors for "abc".
var abcVectors = []struct {
	variant Variant
	digest  string
}{
	{SHA224, "23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7"},
	{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	{SHA384, "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
	{SHA512, "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	{SHA512_224, "4634270f707b6a54daae7530460842e20e37ed265ceee9a43e8924aa"},
	{SHA512_256, "53048e2681941ef99b2e29b76b4c7dabe4c2d0c634fc6d46e0e2f13107e7af23"},
}

func TestAbcVectors(t *testing.T) {
	for _, tc := range abcVectors {
		t.Run(tc.variant.String(), func(t *testing.T) {
			want, err := hex.DecodeString(tc.digest)
			if err != nil {
				t.Fatalf("bad vector: %v", err)
			}

			if len(want) != tc.variant.Size() {
				t.Fatalf("vector length %d, Size() = %d", len(want), tc.variant.Size())
			}

			out := make([]byte, tc.variant.Size())
			got := tc.variant.Sum([]byte("abc"), out)

			if hex.EncodeToString(got) != tc.digest {
				t.Errorf("digest = %x, want %s", got, tc.digest)
			}
		})
	}
}

func TestTwoBlockVector(t *testing.T) {
	// FIPS 180-4 two-block message for SHA-256.
	msg := []byte("abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq")
	want := "248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"

	out := make([]byte, SHA256.Size())
	got := SHA256.Sum(msg, out)

	if hex.EncodeToString(got) != want {
		t.Errorf("digest = %x, want %s", got, want)
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	msg := []byte("the quick brown fox jumps over the lazy dog")

	for _, tc := range abcVectors {
		h := tc.variant.New()
		h.Write(msg[:10])
		h.Write(msg[10:])
		streamed := h.Sum(nil)

		out := make([]byte, tc.variant.Size())
		oneShot := tc.variant.Sum(msg, out)

		if string(streamed) != string(oneShot) {
			t.Errorf("%s: streaming digest differs from one-shot", tc.variant)
		}
	}
}

func TestParseVariant(t *testing.T) {
	cases := []struct {
		in   string
		want Variant
		ok   bool
	}{
		{"sha256", SHA256, true},
		{"SHA-256", SHA256, true},
		{"sha512/224", SHA512_224, true},
		{"SHA-512/256", SHA512_256, true},
		{"sha384", SHA384, true},
		{"sha224", SHA224, true},
		{"sha512", SHA512, true},
		{"md5", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseVariant(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseVariant(%q): unexpected error %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseVariant(%q): expected error", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ParseVariant(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
