package mux

import (
	"github.com/danmuck/serialmux/internal/protocol/control"
	"github.com/danmuck/serialmux/internal/protocol/frame"
)

type receiveState struct {
	buf      [frame.MaxFrameLen]byte
	received int
	attempts int
}

func (r *receiveState) reset() {
	*r = receiveState{}
}

// receive advances reassembly by at most one frame. The header is read first;
// once it is complete the payload is read in the same tick if the stream
// already holds it.
func (e *Engine) receive() {
	r := &e.recv
	if r.received < frame.HeaderLen {
		e.readInto(frame.HeaderLen - r.received)
		if r.received < frame.HeaderLen {
			return
		}
	}

	channel, dlc, _ := frame.UnpackHeader(r.buf[:frame.HeaderLen])
	if !e.acceptHeader(channel, dlc) {
		e.drop(DropUnknownChannel, channel)
		return
	}
	if r.attempts >= MaxRxAttempts {
		e.drop(DropAttemptsExceeded, channel)
		return
	}

	frameLen := frame.HeaderLen + int(dlc)
	r.attempts++
	if expected := frameLen - r.received; expected > 0 {
		e.readInto(expected)
	}
	if r.received != frameLen {
		return
	}

	raw := r.buf[:frameLen]
	if !frame.Valid(raw) {
		e.drop(DropBadChecksum, channel)
		return
	}
	payload := frame.UnpackPayload(raw)
	r.reset()
	e.dispatch(channel, payload)
}

// acceptHeader checks the declared dlc against what the channel may carry.
// A dlc of 0 means no such channel.
func (e *Engine) acceptHeader(channel, dlc uint8) bool {
	if dlc == 0 || dlc > MaxDataLen {
		return false
	}
	if channel == ControlChannel {
		return dlc == control.PayloadLen
	}
	return int(channel) <= e.maxChannels
}

// readInto appends exactly n bytes when the stream already buffers them.
func (e *Engine) readInto(n int) {
	r := &e.recv
	if n <= 0 || r.received+n > len(r.buf) {
		return
	}
	if e.stream.Available() < n {
		return
	}
	got, err := e.stream.Read(r.buf[r.received : r.received+n])
	if got > 0 {
		r.received += got
	}
	if err != nil {
		e.log.Debug().Err(err).Int("read", got).Msg("stream read failed")
	}
}

func (e *Engine) drop(reason DropReason, channel uint8) {
	e.log.Debug().
		Str("reason", string(reason)).
		Uint8("channel", channel).
		Int("received", e.recv.received).
		Int("attempts", e.recv.attempts).
		Msg("frame dropped")
	e.recv.reset()
	e.stats.FramesDropped++
	e.observer.FrameDropped(reason)
}

func (e *Engine) dispatch(channel uint8, payload []byte) {
	if channel == ControlChannel {
		e.stats.FramesReceived++
		e.observer.FrameReceived(channel)
		e.handleControl(payload)
		return
	}
	handler := e.rx[channel-1].Handler
	if handler == nil {
		e.stats.FramesDropped++
		e.observer.FrameDropped(DropUnsubscribed)
		return
	}
	e.stats.FramesReceived++
	e.observer.FrameReceived(channel)
	handler.Handle(payload)
}

func (e *Engine) handleControl(payload []byte) {
	msg, err := control.Decode(payload)
	if err != nil {
		e.log.Debug().Err(err).Msg("control payload rejected")
		e.stats.FramesDropped++
		e.observer.FrameDropped(DropBadControl)
		return
	}
	switch msg.Command {
	case control.CmdSync:
		e.onSync(msg)
	case control.CmdSyncRsp:
		e.onSyncResponse(msg)
	case control.CmdScrb:
		e.onSubscribe(msg)
	case control.CmdScrbRsp:
		e.onSubscribeResponse(msg)
	}
}
