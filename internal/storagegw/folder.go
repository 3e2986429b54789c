package storagegw

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// supportedExtensions mirrors the document types the extraction pipeline
// understands; anything else is skipped during folder enumeration.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
}

type folderGateway struct {
	root string
}

func newFolderGateway(cfg domain.SourceConfig) *folderGateway {
	return &folderGateway{root: cfg.Path}
}

func (g *folderGateway) Enumerate(ctx context.Context, batchSize int) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.WalkDir(g.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, ObjectInfo{
			Path:      path,
			Name:      d.Name(),
			SizeBytes: info.Size(),
		})
		if batchSize > 0 && len(out) >= batchSize {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return nil, errs.NewTransient("", "folder enumeration failed", err)
	}
	return out, nil
}

func (g *folderGateway) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewNotFound("", "document", path)
		}
		return nil, errs.NewTransient("", "failed to open document", err)
	}
	return f, nil
}
