package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writeFrame(t *testing.T, dir, name string, width int) {
	t.Helper()
	img := imaging.New(width, 10, color.NRGBA{R: 255, A: 255})
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
}

func TestDirSourceReplaysInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "b.png", 20)
	writeFrame(t, dir, "a.png", 10)
	writeFrame(t, dir, "c.jpg", 30)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(DirConfig{Path: dir})
	if err != nil {
		t.Fatalf("NewDirSource() error = %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", src.Len())
	}

	ctx := context.Background()
	for _, want := range []int{10, 20, 30} {
		img, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got := img.Bounds().Dx(); got != want {
			t.Fatalf("frame width = %d, want %d", got, want)
		}
	}

	if _, err := src.Read(ctx); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame after last file, got %v", err)
	}
}

func TestDirSourceLoops(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "only.png", 12)

	src, err := NewDirSource(DirConfig{Path: dir, Loop: true})
	if err != nil {
		t.Fatalf("NewDirSource() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		img, err := src.Read(context.Background())
		if err != nil {
			t.Fatalf("Read() #%d error = %v", i, err)
		}
		if img.Bounds() != image.Rect(0, 0, 12, 10) {
			t.Fatalf("bounds = %v", img.Bounds())
		}
	}
}

func TestDirSourceEmptyDirectory(t *testing.T) {
	if _, err := NewDirSource(DirConfig{Path: t.TempDir()}); err == nil {
		t.Fatal("expected error for directory without images")
	}
	if _, err := NewDirSource(DirConfig{Path: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
