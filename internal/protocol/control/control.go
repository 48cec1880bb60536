package control

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Command is the control-channel opcode carried in payload byte 0.
type Command uint8

const (
	CmdSync    Command = 0x00
	CmdSyncRsp Command = 0x01
	CmdScrb    Command = 0x02
	CmdScrbRsp Command = 0x03
)

const (
	ChannelNumber = 0

	NameMaxLen = 10
	DataLen    = 4
	CmdLen     = 1
	PayloadLen = NameMaxLen + DataLen + CmdLen

	CmdIndex  = 0
	DataIndex = 1

	// SCRB_RSP layout: resolved number, then the echoed name.
	ResponseNumberIndex = 1
	ResponseNameIndex   = 2
)

var (
	ErrInvalidLength  = errors.New("control: invalid payload length")
	ErrUnknownCommand = errors.New("control: unknown command")
)

func (c Command) String() string {
	switch c {
	case CmdSync:
		return "SYNC"
	case CmdSyncRsp:
		return "SYNC_RSP"
	case CmdScrb:
		return "SCRB"
	case CmdScrbRsp:
		return "SCRB_RSP"
	default:
		return fmt.Sprintf("CMD(%d)", uint8(c))
	}
}

// Message is one decoded control payload. Only the fields that belong to
// Command are meaningful.
type Message struct {
	Command   Command
	Timestamp uint32
	Number    uint8
	Name      string
	// Data holds the raw bytes after the command byte; SYNC echoes them verbatim.
	Data []byte
}

// EncodeSync builds a SYNC or SYNC_RSP payload carrying a big-endian timestamp.
func EncodeSync(cmd Command, ts uint32) []byte {
	buf := make([]byte, PayloadLen)
	buf[CmdIndex] = byte(cmd)
	binary.BigEndian.PutUint32(buf[DataIndex:DataIndex+DataLen], ts)
	return buf
}

// EncodeSyncEcho answers a SYNC by copying its data bytes into a SYNC_RSP.
func EncodeSyncEcho(data []byte) []byte {
	buf := make([]byte, PayloadLen)
	buf[CmdIndex] = byte(CmdSyncRsp)
	copy(buf[DataIndex:], data)
	return buf
}

func EncodeSubscribe(name string) []byte {
	buf := make([]byte, PayloadLen)
	buf[CmdIndex] = byte(CmdScrb)
	copy(buf[DataIndex:DataIndex+NameMaxLen], name)
	return buf
}

func EncodeSubscribeResponse(number uint8, name string) []byte {
	buf := make([]byte, PayloadLen)
	buf[CmdIndex] = byte(CmdScrbRsp)
	buf[ResponseNumberIndex] = number
	copy(buf[ResponseNameIndex:ResponseNameIndex+NameMaxLen], name)
	return buf
}

func Decode(payload []byte) (Message, error) {
	if len(payload) != PayloadLen {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(payload))
	}
	msg := Message{
		Command: Command(payload[CmdIndex]),
		Data:    append([]byte(nil), payload[DataIndex:]...),
	}
	switch msg.Command {
	case CmdSync, CmdSyncRsp:
		msg.Timestamp = binary.BigEndian.Uint32(payload[DataIndex : DataIndex+DataLen])
	case CmdScrb:
		msg.Name = decodeName(payload[DataIndex : DataIndex+NameMaxLen])
	case CmdScrbRsp:
		msg.Number = payload[ResponseNumberIndex]
		msg.Name = decodeName(payload[ResponseNameIndex : ResponseNameIndex+NameMaxLen])
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownCommand, payload[CmdIndex])
	}
	return msg, nil
}

func decodeName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
