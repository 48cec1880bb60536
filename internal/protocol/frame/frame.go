package frame

const (
	ChannelLen  = 1
	DLCLen      = 1
	ChecksumLen = 1
	HeaderLen   = ChannelLen + DLCLen + ChecksumLen

	MaxDataLen  = 32
	MaxFrameLen = HeaderLen + MaxDataLen

	ChannelIndex  = 0
	DLCIndex      = 1
	ChecksumIndex = 2
	PayloadIndex  = HeaderLen
)

// Frame is one decoded wire frame.
type Frame struct {
	Channel  uint8
	DLC      uint8
	Checksum uint8
	Payload  []byte
}

// Pack lays out channel, dlc, a zero checksum placeholder and the payload.
// The payload is zero-padded (or cut) to exactly dlc bytes.
func Pack(channel, dlc uint8, payload []byte) []byte {
	raw := make([]byte, HeaderLen+int(dlc))
	raw[ChannelIndex] = channel
	raw[DLCIndex] = dlc
	copy(raw[PayloadIndex:], payload)
	return raw
}

// Encode packs and seals a frame ready for the wire.
func Encode(channel, dlc uint8, payload []byte) []byte {
	raw := Pack(channel, dlc, payload)
	Seal(raw)
	return raw
}

// Checksum sums the channel, dlc and payload bytes modulo 255.
// The checksum byte itself (index 2) is not part of the sum.
func Checksum(raw []byte) uint8 {
	if len(raw) < HeaderLen {
		return 0
	}
	sum := uint32(raw[ChannelIndex]) + uint32(raw[DLCIndex])
	for _, b := range raw[PayloadIndex:] {
		sum += uint32(b)
	}
	return uint8(sum % 255)
}

// Seal writes the computed checksum into the header.
func Seal(raw []byte) {
	if len(raw) < HeaderLen {
		return
	}
	raw[ChecksumIndex] = Checksum(raw)
}

// Valid reports whether the stored checksum matches the frame content.
func Valid(raw []byte) bool {
	if len(raw) < HeaderLen {
		return false
	}
	return Checksum(raw) == raw[ChecksumIndex]
}

func UnpackHeader(raw []byte) (channel, dlc, checksum uint8) {
	if len(raw) < HeaderLen {
		return 0, 0, 0
	}
	return raw[ChannelIndex], raw[DLCIndex], raw[ChecksumIndex]
}

func UnpackPayload(raw []byte) []byte {
	if len(raw) <= HeaderLen {
		return []byte{}
	}
	out := make([]byte, len(raw)-HeaderLen)
	copy(out, raw[PayloadIndex:])
	return out
}

// Decode splits a raw frame into its fields without validating it.
func Decode(raw []byte) Frame {
	channel, dlc, checksum := UnpackHeader(raw)
	return Frame{
		Channel:  channel,
		DLC:      dlc,
		Checksum: checksum,
		Payload:  UnpackPayload(raw),
	}
}
