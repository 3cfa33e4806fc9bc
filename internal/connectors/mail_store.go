package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DropStore writes messages as .eml files into the drop directory that
// "vpr run --supplier" reads from. Names are content addressed, so fetching
// the same message twice keeps one file.
type DropStore struct {
	dir string
}

func NewDropStore(dir string) *DropStore {
	return &DropStore{dir: dir}
}

// Store returns the file path and whether the file was newly written.
func (s *DropStore) Store(msg Message) (string, bool, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])[:16]

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, eris.Wrapf(err, "create drop dir %s", s.dir)
	}

	stamp := "00000000-000000"
	if !msg.ReceivedAt.IsZero() {
		stamp = msg.ReceivedAt.UTC().Format("20060102-150405")
	}
	path := filepath.Join(s.dir, stamp+"_"+msg.Provider+"_"+hash+".eml")
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.WriteFile(path, msg.Raw, 0o644); err != nil {
		return "", false, eris.Wrapf(err, "write %s", path)
	}
	return path, true, nil
}
