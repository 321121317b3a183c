package cache

import (
	"fmt"
	"path/filepath"

	"github.com/agentpkg/srcdeps/pkg/vcs"
)

// WorkingDir is the persisted answer to a selector: the revision that was
// selected and where it was checked out.
type WorkingDir struct {
	Selected vcs.VersionRef
	Dir      string
}

// WorkingDirSerializer encodes a WorkingDir as three strings: version,
// canonical id, absolute directory. The field order is the on-disk format.
type WorkingDirSerializer struct{}

var _ Serializer[WorkingDir] = WorkingDirSerializer{}

func (WorkingDirSerializer) Write(enc *Encoder, wd WorkingDir) error {
	dir, err := filepath.Abs(wd.Dir)
	if err != nil {
		return fmt.Errorf("resolving absolute path of %s: %w", wd.Dir, err)
	}
	enc.WriteString(wd.Selected.Version)
	enc.WriteString(wd.Selected.CanonicalID)
	enc.WriteString(dir)
	return nil
}

func (WorkingDirSerializer) Read(dec *Decoder) (WorkingDir, error) {
	var (
		wd  WorkingDir
		err error
	)
	if wd.Selected.Version, err = dec.ReadString(); err != nil {
		return WorkingDir{}, fmt.Errorf("decoding version: %w", err)
	}
	if wd.Selected.CanonicalID, err = dec.ReadString(); err != nil {
		return WorkingDir{}, fmt.Errorf("decoding canonical id: %w", err)
	}
	if wd.Dir, err = dec.ReadString(); err != nil {
		return WorkingDir{}, fmt.Errorf("decoding working dir: %w", err)
	}
	if dec.Remaining() != 0 {
		return WorkingDir{}, fmt.Errorf("decoding working dir record: %d trailing bytes", dec.Remaining())
	}
	return wd, nil
}
