package observability

import "github.com/danmuck/serialmux/internal/protocol/mux"

// LinkObserver exports engine events as Prometheus series labelled by link.
type LinkObserver struct {
	link string
}

var _ mux.Observer = LinkObserver{}

func NewLinkObserver(link string) LinkObserver {
	RegisterMetrics()
	return LinkObserver{link: link}
}

func (o LinkObserver) FrameSent(channel uint8) {
	RecordFrameSent(o.link, channel)
}

func (o LinkObserver) FrameReceived(channel uint8) {
	RecordFrameReceived(o.link, channel)
}

func (o LinkObserver) FrameDropped(reason mux.DropReason) {
	RecordFrameDropped(o.link, string(reason))
}

func (o LinkObserver) SendFailed(channel uint8) {
	RecordSendFailure(o.link, channel)
}

func (o LinkObserver) SyncChanged(isSynced bool) {
	RecordSyncChange(o.link, isSynced)
}
