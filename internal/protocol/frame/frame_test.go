package frame

import (
	"bytes"
	"testing"
)

func TestChecksumExcludesChecksumByte(t *testing.T) {
	raw := []byte{1, 4, 0xEE, 10, 20, 30, 40}
	if got := Checksum(raw); got != 105 {
		t.Fatalf("checksum got=%d want=105", got)
	}
	raw[ChecksumIndex] = 0
	if got := Checksum(raw); got != 105 {
		t.Fatalf("checksum changed with checksum byte: got=%d", got)
	}
}

func TestChecksumWrapsModulo255(t *testing.T) {
	raw := Pack(0xFF, 2, []byte{0xFF, 0xFF})
	// 255*3 + 2 = 767 -> 767 % 255 = 2
	if got := Checksum(raw); got != 2 {
		t.Fatalf("checksum got=%d want=2", got)
	}
}

func TestPackPadsAndTruncatesPayload(t *testing.T) {
	raw := Pack(3, 4, []byte{0xAA})
	want := []byte{3, 4, 0, 0xAA, 0, 0, 0}
	if !bytes.Equal(raw, want) {
		t.Fatalf("pack got=%v want=%v", raw, want)
	}
	raw = Pack(3, 1, []byte{1, 2, 3})
	if len(raw) != HeaderLen+1 || raw[PayloadIndex] != 1 {
		t.Fatalf("pack truncate got=%v", raw)
	}
}

func TestPackUnpackInverse(t *testing.T) {
	for channel := 0; channel <= 255; channel++ {
		for dlc := 0; dlc <= MaxDataLen; dlc++ {
			payload := make([]byte, dlc)
			for i := range payload {
				payload[i] = byte(channel*7 + i*13)
			}
			raw := Encode(uint8(channel), uint8(dlc), payload)
			ch, d, sum := UnpackHeader(raw)
			if int(ch) != channel || int(d) != dlc || sum != Checksum(raw) {
				t.Fatalf("header mismatch ch=%d dlc=%d got=(%d,%d,%d)", channel, dlc, ch, d, sum)
			}
			if !bytes.Equal(UnpackPayload(raw), payload) {
				t.Fatalf("payload mismatch ch=%d dlc=%d", channel, dlc)
			}
			if !Valid(raw) {
				t.Fatalf("encoded frame invalid ch=%d dlc=%d", channel, dlc)
			}
		}
	}
}

func TestPayloadMutationInvalidatesFrame(t *testing.T) {
	raw := Encode(2, 4, []byte{1, 2, 3, 4})
	if Checksum(raw) != Checksum(Encode(2, 4, []byte{1, 2, 3, 4})) {
		t.Fatalf("checksum not deterministic")
	}
	for i := PayloadIndex; i < len(raw); i++ {
		mutated := append([]byte(nil), raw...)
		mutated[i]++
		if Valid(mutated) {
			t.Fatalf("mutation at %d not detected", i)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	f := Decode(Encode(9, 2, []byte{0x01, 0x02}))
	if f.Channel != 9 || f.DLC != 2 || !bytes.Equal(f.Payload, []byte{0x01, 0x02}) {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestShortInputIsHarmless(t *testing.T) {
	if Valid([]byte{1, 2}) {
		t.Fatalf("short frame must not be valid")
	}
	if ch, dlc, sum := UnpackHeader(nil); ch != 0 || dlc != 0 || sum != 0 {
		t.Fatalf("unexpected header from nil input")
	}
	if len(UnpackPayload([]byte{1, 0, 1})) != 0 {
		t.Fatalf("expected empty payload")
	}
}
