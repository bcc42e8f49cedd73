package backup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vbonduro/jartrack/internal/domain"
)

// WriteFile encodes doc to path atomically: the document is written to a
// temp file in the same directory, synced, then renamed over path.
func WriteFile(path string, doc *Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jartrack-backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := Encode(w, doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("backup file", path)
		}
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}
