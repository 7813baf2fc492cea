package avatars

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesScopedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/media/avatars/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Save([]byte("fake-png"), "image/png", "me.png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/media/avatars/") {
		t.Errorf("url = %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("extension not kept: %q", url)
	}

	name := filepath.Base(url)
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("file missing: %v", err)
	}
	if !bytes.Equal(data, []byte("fake-png")) {
		t.Error("content mismatch")
	}
}

func TestSaveIgnoresClientFilename(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/media/avatars")
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Save([]byte("x"), "image/png", "../../etc/passwd.png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	name := filepath.Base(url)
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		t.Errorf("unsafe object name %q", name)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("file not inside scoped dir: %v", err)
	}
}

func TestSaveRejectsNonImage(t *testing.T) {
	s, err := NewStore(t.TempDir(), "/media/avatars")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save([]byte("%PDF"), "application/pdf", "cv.pdf"); !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestSaveRejectsOversized(t *testing.T) {
	s, err := NewStore(t.TempDir(), "/media/avatars")
	if err != nil {
		t.Fatal(err)
	}
	big := make([]byte, maxSize+1)
	if _, err := s.Save(big, "image/jpeg", "big.jpg"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestObjectNameUnknownExtension(t *testing.T) {
	name := objectName("weird.svgz")
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("objectName = %q, want .jpg fallback", name)
	}
}
