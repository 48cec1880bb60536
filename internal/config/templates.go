package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "peer":
		return peerTemplate, nil
	default:
		return "", fmt.Errorf("unknown profile kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("profile already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "host"
max_channels = 10

[transport]
kind = "tcp"
address = "127.0.0.1:65432"

[[channels]]
name = "SPEED_SET"
dlc = 4

[[subscriptions]]
name = "LINE_SENS"
`

const peerTemplate = `name = "robot"
max_channels = 10

[transport]
kind = "tcp-listen"
address = "127.0.0.1:65432"

[[channels]]
name = "LINE_SENS"
dlc = 10

[[subscriptions]]
name = "SPEED_SET"
`
