package bridge

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/serial-tools/espbridge/internal/errors"
)

// LocateBinary resolves the bridge server executable.
//
// A name containing a path separator is used as-is. A bare name is looked
// up next to our own executable first (so a bundled server wins over a
// system-wide one), then on PATH. The result is always a regular
// executable file; anything else is ErrBinaryNotFound.
func LocateBinary(name string) (string, error) {
	if name == "" {
		name = defaultBinaryName
	}

	// Explicit path: no search, just verify.
	if filepath.Base(name) != name {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", errors.NewStartError("bridge server binary not usable", errors.ErrBinaryNotFound).
				WithBinary(name)
		}
		return path, nil
	}

	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), name)
		if path, err := exec.LookPath(sibling); err == nil {
			return path, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.NewStartError("bridge server binary not found", errors.ErrBinaryNotFound).
			WithBinary(name)
	}
	return path, nil
}
