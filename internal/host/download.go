package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/tabgroups/internal/applog"
)

// FileDownloader writes downloads into Dir.
type FileDownloader struct {
	Dir string
}

// Download writes data to Dir/filename. The data is staged in a temporary
// file that is removed whether or not the final rename succeeds.
func (d FileDownloader) Download(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid download file name %q", filename)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.Dir, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("stage download: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close download: %w", err)
	}

	dest := filepath.Join(d.Dir, filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	applog.Info("download.saved", "path", dest, "bytes", len(data))
	return nil
}
