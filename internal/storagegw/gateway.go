// Package storagegw abstracts over the three document-source shapes a Job
// can point at: a local/mounted folder, a generic object-store bucket, or
// an OAuth-backed remote drive. Discovery and extraction code depend only
// on the Gateway interface, never on a concrete provider.
package storagegw

import (
	"context"
	"io"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// ObjectInfo describes one discoverable file without fetching its bytes.
type ObjectInfo struct {
	Path     string
	Name     string
	SizeBytes int64
}

// Gateway is the uniform interface every source-type adapter implements.
type Gateway interface {
	// Enumerate lists objects under the gateway's configured source. When
	// batchSize > 0 it returns at most batchSize objects; otherwise all.
	Enumerate(ctx context.Context, batchSize int) ([]ObjectInfo, error)

	// Fetch streams one object's bytes by path.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// New builds the Gateway implementation matching sourceType, mirroring a
// source-adapter factory: one constructor, one switch, callers never see
// the concrete type.
func New(cfg domain.SourceConfig) (Gateway, error) {
	switch cfg.Type {
	case domain.SourceFolder:
		return newFolderGateway(cfg), nil
	case domain.SourceObjectStore:
		return newObjectStoreGateway(cfg), nil
	case domain.SourceRemoteDrive:
		return newRemoteDriveGateway(cfg), nil
	default:
		return nil, errs.NewInvalidInput("", "unknown source type", map[string]interface{}{
			"source_type": string(cfg.Type),
		})
	}
}
