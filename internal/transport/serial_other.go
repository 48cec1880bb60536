//go:build !linux

package transport

import "fmt"

func OpenSerial(device string, baud int, cfg Config) (*Conn, error) {
	return nil, fmt.Errorf("%w: serial %s", ErrUnsupported, device)
}
