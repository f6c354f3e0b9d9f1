package clan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crystal-mush/goclans/pkg/flatfile"
	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// FileBackend stores the roster in a tagged text file.
type FileBackend struct {
	Path string
}

// Load parses the clan file. A missing file returns an error wrapping
// os.ErrNotExist.
func (fb *FileBackend) Load() ([]*gamedb.Clan, error) {
	f, err := os.Open(fb.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	clans, err := flatfile.ParseClans(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fb.Path, err)
	}
	return clans, nil
}

// Save writes the roster to a temporary file next to Path and renames it
// into place.
func (fb *FileBackend) Save(clans []*gamedb.Clan) error {
	tmp, err := os.CreateTemp(filepath.Dir(fb.Path), filepath.Base(fb.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := flatfile.WriteClans(tmp, clans); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, fb.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
