package mux

// DropReason labels why a received frame was discarded.
type DropReason string

const (
	DropUnknownChannel   DropReason = "unknown_channel"
	DropBadChecksum      DropReason = "bad_checksum"
	DropAttemptsExceeded DropReason = "attempts_exceeded"
	DropBadControl       DropReason = "bad_control"
	DropUnsubscribed     DropReason = "unsubscribed"
)

// Observer receives engine events for metrics. Calls happen on the goroutine
// running Process and must not call back into the engine.
type Observer interface {
	FrameSent(channel uint8)
	FrameReceived(channel uint8)
	FrameDropped(reason DropReason)
	SendFailed(channel uint8)
	SyncChanged(synced bool)
}

type nopObserver struct{}

func (nopObserver) FrameSent(uint8) {}
func (nopObserver) FrameReceived(uint8) {}
func (nopObserver) FrameDropped(DropReason) {}
func (nopObserver) SendFailed(uint8) {}
func (nopObserver) SyncChanged(bool) {}

// Stats are cumulative engine counters.
type Stats struct {
	FramesSent      uint64 `json:"frames_sent"`
	FramesReceived  uint64 `json:"frames_received"`
	FramesDropped   uint64 `json:"frames_dropped"`
	SendFailures    uint64 `json:"send_failures"`
	SyncTransitions uint64 `json:"sync_transitions"`
}
