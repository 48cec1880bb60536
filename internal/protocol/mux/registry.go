package mux

import "github.com/danmuck/serialmux/internal/protocol/control"

// CreateChannel registers a TX channel and returns its 1-based number, or 0
// when the name, dlc or table capacity rejects it. Duplicate names are allowed;
// lookups resolve to the first one.
func (e *Engine) CreateChannel(name string, dlc uint8) uint8 {
	if !validName(name) || dlc == 0 || dlc > MaxDataLen || e.numTx >= e.maxChannels {
		return 0
	}
	e.tx[e.numTx] = Channel{Name: name, DLC: dlc}
	e.numTx++
	e.log.Debug().Str("name", name).Uint8("dlc", dlc).Int("number", e.numTx).Msg("tx channel created")
	return uint8(e.numTx)
}

// TxChannelNumber resolves a TX channel name, 0 if unknown.
func (e *Engine) TxChannelNumber(name string) uint8 {
	for i := 0; i < e.numTx; i++ {
		if e.tx[i].Name == name {
			return uint8(i + 1)
		}
	}
	return 0
}

// ChannelDLC returns the payload length declared for a TX channel number.
// The control channel always resolves to the control payload length.
func (e *Engine) ChannelDLC(number uint8) uint8 {
	if number == ControlChannel {
		return control.PayloadLen
	}
	if int(number) > e.maxChannels {
		return 0
	}
	return e.tx[number-1].DLC
}

func (e *Engine) NumTxChannels() int {
	return e.numTx
}

func (e *Engine) NumRxChannels() int {
	return e.numRx
}

func (e *Engine) NumPendingChannels() int {
	return e.numPending
}
