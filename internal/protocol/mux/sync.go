package mux

import (
	"context"

	"github.com/danmuck/serialmux/internal/protocol/control"
	"github.com/looplab/fsm"
)

const (
	stateUnsynced = "unsynced"
	stateSynced   = "synced"

	eventConfirm = "confirm"
	eventLose    = "lose"
)

type syncState struct {
	machine      *fsm.FSM
	lastCommand  uint32
	lastResponse uint32
}

func newSyncState(onChange func(synced bool)) syncState {
	machine := fsm.NewFSM(
		stateUnsynced,
		fsm.Events{
			{Name: eventConfirm, Src: []string{stateUnsynced}, Dst: stateSynced},
			{Name: eventLose, Src: []string{stateSynced}, Dst: stateUnsynced},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, ev *fsm.Event) {
				onChange(ev.Dst == stateSynced)
			},
		},
	)
	return syncState{machine: machine}
}

// IsSynced reports whether the last SYNC round trip matched.
func (e *Engine) IsSynced() bool {
	return e.sync.machine.Is(stateSynced)
}

func (e *Engine) setSynced(synced bool, reason string) {
	if e.IsSynced() == synced {
		return
	}
	event := eventLose
	if synced {
		event = eventConfirm
	}
	if err := e.sync.machine.Event(context.Background(), event); err != nil {
		e.log.Warn().Err(err).Str("event", event).Msg("sync transition rejected")
		return
	}
	e.log.Info().Bool("synced", synced).Str("reason", reason).Msg("sync state changed")
}

func (e *Engine) onSyncChanged(synced bool) {
	e.stats.SyncTransitions++
	e.observer.SyncChanged(synced)
}

// heartbeat emits SYNC every period; an unanswered previous SYNC drops sync.
func (e *Engine) heartbeat(now uint32) {
	period := e.heartbeatUnsynced
	if e.IsSynced() {
		period = e.heartbeatSynced
	}
	if now-e.sync.lastCommand < period {
		return
	}
	if e.sync.lastCommand != e.sync.lastResponse {
		e.setSynced(false, "heartbeat timeout")
	}
	if !e.Send(ControlChannel, control.EncodeSync(control.CmdSync, now)) {
		e.setSynced(false, "sync send failed")
		return
	}
	e.sync.lastCommand = now
}

func (e *Engine) onSync(msg control.Message) {
	if !e.Send(ControlChannel, control.EncodeSyncEcho(msg.Data)) {
		e.setSynced(false, "sync_rsp send failed")
	}
}

func (e *Engine) onSyncResponse(msg control.Message) {
	if msg.Timestamp != e.sync.lastCommand {
		e.setSynced(false, "stale sync_rsp")
		return
	}
	e.sync.lastResponse = e.sync.lastCommand
	e.setSynced(true, "sync_rsp matched")
}
