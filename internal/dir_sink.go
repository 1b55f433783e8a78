package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/studiokit"
)

// DirSink writes exported files below a local root directory.
type DirSink struct {
	root string
}

var _ studiokit.FileSink = (*DirSink)(nil)

func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

func (d *DirSink) Root() string { return d.root }

// WriteFile writes data to root/p, creating parent directories. p must stay inside root.
func (d *DirSink) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes export root", p)
	}
	full := filepath.Join(d.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	return os.WriteFile(full, data, 0o644)
}
