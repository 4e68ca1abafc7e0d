package hashslot

import "testing"

// TestCRC16 verifies the checksum against the standard XMODEM check value
// and a couple of hand-computed cases.
func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want uint16
	}{
		{
			name: "standard check value",
			in:   "123456789",
			want: 0x31C3,
		},
		{
			name: "empty input",
			in:   "",
			want: 0x0000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16([]byte(tt.in)); got != tt.want {
				t.Errorf("CRC16(%q) = %#04x, want %#04x", tt.in, got, tt.want)
			}
		})
	}
}

// TestSlot verifies key-to-slot mapping against the cluster's published
// values for well-known keys.
func TestSlot(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want int
	}{
		{
			name: "foo",
			key:  "foo",
			want: 12182,
		},
		{
			name: "bar",
			key:  "bar",
			want: 5061,
		},
		{
			name: "hello",
			key:  "hello",
			want: 866,
		},
		{
			name: "tag replaces whole key",
			key:  "{foo}.suffix",
			want: 12182,
		},
		{
			name: "only first tag counts",
			key:  "{foo}{bar}",
			want: 12182,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slot(tt.key); got != tt.want {
				t.Errorf("Slot(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

// TestSlotHashTags tests the hash-tag edge cases: keys sharing a tag must
// share a slot, and degenerate tags fall back to hashing the whole key.
func TestSlotHashTags(t *testing.T) {
	t.Run("shared tag shares slot", func(t *testing.T) {
		a := Slot("{user:1000}.following")
		b := Slot("{user:1000}.followers")
		if a != b {
			t.Errorf("keys with identical tags map to different slots: %d vs %d", a, b)
		}
	})

	t.Run("empty tag hashes whole key", func(t *testing.T) {
		if Slot("foo{}bar") == Slot("other{}bar") {
			t.Error("empty tag should not co-locate unrelated keys")
		}
		// "{}" contributes to the full-key hash, so these differ from the bare key
		if Slot("foo{}bar") != int(CRC16([]byte("foo{}bar"))%NumSlots) {
			t.Error("empty tag should hash the entire key")
		}
	})

	t.Run("unterminated brace hashes whole key", func(t *testing.T) {
		if got, want := Slot("foo{bar"), int(CRC16([]byte("foo{bar"))%NumSlots); got != want {
			t.Errorf("Slot(\"foo{bar\") = %d, want %d", got, want)
		}
	})

	t.Run("all slots in range", func(t *testing.T) {
		keys := []string{"", "a", "user:1", "{t}x", "some longer key with spaces"}
		for _, key := range keys {
			if s := Slot(key); s < 0 || s >= NumSlots {
				t.Errorf("Slot(%q) = %d, out of range [0, %d)", key, s, NumSlots)
			}
		}
	})
}
