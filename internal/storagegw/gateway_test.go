package storagegw

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func TestNew_UnknownSourceType(t *testing.T) {
	_, err := New(domain.SourceConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestFolderGateway_EnumerateFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.png", "notes.txt", "c.PDF"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	gw, err := New(domain.SourceConfig{Type: domain.SourceFolder, Path: dir})
	if err != nil {
		t.Fatal(err)
	}

	objs, err := gw.Enumerate(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 3 {
		t.Fatalf("expected 3 supported files, got %d (%v)", len(objs), objs)
	}
}

func TestFolderGateway_EnumerateRespectsBatchSize(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	gw := newFolderGateway(domain.SourceConfig{Path: dir})
	objs, err := gw.Enumerate(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected batch size to cap at 2, got %d", len(objs))
	}
}

func TestFolderGateway_FetchMissingFile(t *testing.T) {
	gw := newFolderGateway(domain.SourceConfig{Path: t.TempDir()})
	_, err := gw.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestRemoteDriveGateway_SingleFile(t *testing.T) {
	gw := newRemoteDriveGateway(domain.SourceConfig{
		Type:     domain.SourceRemoteDrive,
		Provider: "google_drive",
		FileID:   "abc123",
		FileName: "statement.pdf",
	})

	objs, err := gw.Enumerate(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Name != "statement.pdf" {
		t.Fatalf("unexpected result: %+v", objs)
	}
}

func TestRemoteDriveGateway_FetchUnwiredIsTransient(t *testing.T) {
	gw := newRemoteDriveGateway(domain.SourceConfig{Provider: "onedrive"})
	_, err := gw.Fetch(context.Background(), "some-id")
	if err == nil {
		t.Fatal("expected transient error for unwired provider")
	}
}
