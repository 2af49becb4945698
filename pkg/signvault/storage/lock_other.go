//go:build !unix && !js && !wasm

package storage

import "os"

// Advisory locking is only implemented on unix; elsewhere a second process
// on the same catalog is not detected.
func lockCatalog(dbPath string) (*os.File, error) { return nil, nil }

func unlockCatalog(f *os.File) error {
	if f == nil {
		return nil
	}
	return f.Close()
}
