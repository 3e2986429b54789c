package storagegw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// bucketBackend is the minimal surface a concrete object-store SDK needs to
// implement to plug into objectStoreGateway. No concrete cloud SDK is wired
// here (out of scope); this interface exists so one can be dropped in
// without touching discovery/extraction code.
type bucketBackend interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type objectStoreGateway struct {
	backend   bucketBackend
	sessionID string
}

func newObjectStoreGateway(cfg domain.SourceConfig) *objectStoreGateway {
	return &objectStoreGateway{
		backend:   nil, // no concrete bucket provider is wired; Enumerate and Fetch return Transient errors while nil
		sessionID: cfg.SessionID,
	}
}

// Enumerate lists objects under the session prefix and merges in the
// `.filenames.json` sidecar, so callers see user-supplied original names
// instead of the opaque `<uuid>.<ext>` storage keys.
func (g *objectStoreGateway) Enumerate(ctx context.Context, batchSize int) ([]ObjectInfo, error) {
	if g.backend == nil {
		return nil, errs.NewTransient(g.sessionID, "object-store backend not configured", nil)
	}

	prefix := g.sessionID + "/"
	objects, err := g.backend.List(ctx, prefix)
	if err != nil {
		return nil, errs.NewTransient(g.sessionID, "object-store enumeration failed", err)
	}

	names, err := g.loadFilenamesSidecar(ctx)
	if err != nil {
		// A missing or unreadable sidecar is not fatal — storage keys are
		// still usable as display names.
		names = map[string]string{}
	}

	out := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Path, "/.filenames.json") {
			continue
		}
		key := path.Base(obj.Path)
		if original, ok := names[key]; ok {
			obj.Name = original
		}
		out = append(out, obj)
		if batchSize > 0 && len(out) >= batchSize {
			break
		}
	}
	return out, nil
}

func (g *objectStoreGateway) loadFilenamesSidecar(ctx context.Context) (map[string]string, error) {
	key := g.sessionID + "/.filenames.json"
	rc, err := g.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}

	var names map[string]string
	if err := json.Unmarshal(buf.Bytes(), &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (g *objectStoreGateway) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if g.backend == nil {
		return nil, errs.NewTransient(g.sessionID, "object-store backend not configured", nil)
	}
	rc, err := g.backend.Get(ctx, path)
	if err != nil {
		return nil, errs.NewTransient(g.sessionID, "object-store fetch failed", err)
	}
	return rc, nil
}
