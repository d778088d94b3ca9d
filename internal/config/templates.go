package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pubd":
		return serverTemplate, nil
	case "pubctl":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `id = "pubd"
addr = ":8181"
cors_origins = ["http://localhost:3000"]
max_body_bytes = 8388608

[[publishers]]
handle = "alice"
base_uri = "rsync://localhost/repo/alice/"

[[publishers]]
handle = "bob"
base_uri = "rsync://localhost/repo/bob/"
`

const clientTemplate = `server = "http://localhost:8181"
publisher = "alice"
timeout = "10s"
`
