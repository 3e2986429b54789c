package storagegw

import (
	"context"
	"io"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// remoteDriveGateway represents an OAuth-backed remote drive source
// (Google Drive, OneDrive). Construction always succeeds so job creation
// isn't blocked on credentials being present. Enumerate reports the single
// configured file when FileID is set and otherwise returns a Transient
// error; Fetch always returns a Transient error, since no concrete provider
// is wired and the OAuth consent flow itself is out of scope here.
type remoteDriveGateway struct {
	provider string
	fileID   string
	fileName string
}

func newRemoteDriveGateway(cfg domain.SourceConfig) *remoteDriveGateway {
	return &remoteDriveGateway{
		provider: cfg.Provider,
		fileID:   cfg.FileID,
		fileName: cfg.FileName,
	}
}

func (g *remoteDriveGateway) Enumerate(ctx context.Context, batchSize int) ([]ObjectInfo, error) {
	if g.fileID != "" {
		name := g.fileName
		if name == "" {
			name = "document.pdf"
		}
		return []ObjectInfo{{Path: g.fileID, Name: name}}, nil
	}
	return nil, errs.NewTransient("", "remote drive provider not wired: "+g.provider, nil)
}

func (g *remoteDriveGateway) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, errs.NewTransient("", "remote drive provider not wired: "+g.provider, nil)
}
