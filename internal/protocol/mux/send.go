package mux

import "github.com/danmuck/serialmux/internal/protocol/frame"

// SendData sends payload on a named TX channel. It fails on the control
// channel, while unsynced, on a length mismatch, or when the stream does not
// accept the whole frame. Nothing is retried.
func (e *Engine) SendData(name string, payload []byte) bool {
	number := e.TxChannelNumber(name)
	if number == ControlChannel || !e.IsSynced() {
		return false
	}
	return e.Send(number, payload)
}

// Send writes one frame on a channel number. Data channels require sync;
// the control channel is always allowed.
func (e *Engine) Send(number uint8, payload []byte) bool {
	dlc := e.ChannelDLC(number)
	if dlc == 0 || len(payload) != int(dlc) {
		return false
	}
	if number != ControlChannel && !e.IsSynced() {
		return false
	}

	raw := frame.Encode(number, dlc, payload)
	n, err := e.stream.Write(raw)
	if err != nil || n != len(raw) {
		e.stats.SendFailures++
		e.observer.SendFailed(number)
		e.log.Debug().Err(err).Uint8("channel", number).Int("written", n).Int("want", len(raw)).Msg("frame write failed")
		return false
	}
	e.stats.FramesSent++
	e.observer.FrameSent(number)
	return true
}
