//go:build linux

package transport

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

// OpenSerial opens a tty in raw 8N1 mode and discards whatever input the
// driver queued before the link existed.
func OpenSerial(device string, baud int, cfg Config) (*Conn, error) {
	if device == "" {
		return nil, fmt.Errorf("transport: serial device required")
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	// Non-blocking so os.File hands the fd to the runtime poller.
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", device, err)
	}
	if err := makeRaw(fd, speed); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: configure %s: %w", device, err)
	}
	if stale, err := unix.IoctlGetInt(fd, unix.TIOCINQ); err == nil && stale > 0 {
		log.Debug().Str("device", device).Int("bytes", stale).Msg("discarding stale serial input")
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: flush %s: %w", device, err)
	}

	f := os.NewFile(uintptr(fd), device)
	return NewConn(f, KindSerial, cfg), nil
}

func makeRaw(fd int, speed uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
