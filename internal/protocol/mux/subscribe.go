package mux

import "github.com/danmuck/serialmux/internal/protocol/control"

// SubscribeToChannel queues a subscription for a remote channel name. The
// handler is bound once the remote answers SCRB_RSP with a channel number.
// It reports false when the name, handler or pending capacity rejects it.
func (e *Engine) SubscribeToChannel(name string, handler Handler) bool {
	if !validName(name) || handler == nil || e.numPending >= e.maxChannels {
		return false
	}
	for i := range e.pending {
		if e.pending[i].Handler == nil {
			e.pending[i] = Channel{Name: name, Handler: handler}
			e.numPending++
			return true
		}
	}
	return false
}

// Unsubscribe drops a still-pending subscription. Bound RX channels are not affected.
func (e *Engine) Unsubscribe(name string) bool {
	for i := range e.pending {
		if e.pending[i].Handler != nil && e.pending[i].Name == name {
			e.pending[i] = Channel{}
			e.numPending--
			return true
		}
	}
	return false
}

// flushSubscriptions sends one SCRB per pending entry while synced.
func (e *Engine) flushSubscriptions() {
	if !e.IsSynced() || e.numPending == 0 {
		return
	}
	for i := range e.pending {
		if e.pending[i].Handler == nil {
			continue
		}
		if !e.Send(ControlChannel, control.EncodeSubscribe(e.pending[i].Name)) {
			e.setSynced(false, "scrb send failed")
			return
		}
	}
}

// onSubscribe resolves a remote SCRB against the local TX table.
func (e *Engine) onSubscribe(msg control.Message) {
	number := e.TxChannelNumber(msg.Name)
	if !e.Send(ControlChannel, control.EncodeSubscribeResponse(number, msg.Name)) {
		e.setSynced(false, "scrb_rsp send failed")
	}
}

// onSubscribeResponse binds the first pending entry matching the name.
// Number 0 means the remote has no such channel; the entry stays pending.
func (e *Engine) onSubscribeResponse(msg control.Message) {
	if int(msg.Number) > e.maxChannels || e.numPending == 0 {
		return
	}
	for i := range e.pending {
		p := &e.pending[i]
		if p.Handler == nil || p.Name != msg.Name {
			continue
		}
		if msg.Number == 0 {
			e.log.Debug().Str("name", msg.Name).Msg("remote has no such channel, subscription stays pending")
			return
		}
		idx := int(msg.Number) - 1
		if e.rx[idx].Handler == nil {
			e.numRx++
		}
		e.rx[idx] = Channel{Name: p.Name, Handler: p.Handler}
		*p = Channel{}
		e.numPending--
		e.log.Info().Str("name", msg.Name).Uint8("number", msg.Number).Msg("subscription bound")
		return
	}
}
