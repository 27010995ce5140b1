package utils

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func collect(t *testing.T, root, ext string) []string {
	t.Helper()
	var got []string
	for path, err := range Discover(root, ext) {
		if err != nil {
			t.Fatalf("Discover yielded error: %v", err)
		}
		rel, _ := filepath.Rel(root, path)
		got = append(got, filepath.ToSlash(rel))
	}
	sort.Strings(got)
	return got
}

func TestDiscover_FiltersExtensionRecursively(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "abc123.mp4")
	touch(t, root, "notes.txt")
	touch(t, filepath.Join(root, "UCchannel"), "def456.mp4")
	touch(t, filepath.Join(root, "UCchannel"), "def456.jpg")
	touch(t, filepath.Join(root, "UCchannel", "deep"), "ghi789.MP4")

	got := collect(t, root, "mp4")
	want := []string{"UCchannel/deep/ghi789.MP4", "UCchannel/def456.mp4", "abc123.mp4"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscover_AcceptsDottedExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mkv")
	touch(t, root, "b.mp4")

	got := collect(t, root, ".mkv")
	if len(got) != 1 || got[0] != "a.mkv" {
		t.Errorf("got %v, want [a.mkv]", got)
	}
}

func TestDiscover_Restartable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mp4")

	seq := Discover(root, "mp4")
	count := 0
	for range seq {
		count++
	}
	touch(t, root, "b.mp4")
	for range seq {
		count++
	}
	if count != 3 {
		t.Errorf("got %d yields across two passes, want 3", count)
	}
}

func TestDiscover_StopsEarly(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		touch(t, root, n)
	}

	count := 0
	for range Discover(root, "mp4") {
		count++
		break
	}
	if count != 1 {
		t.Errorf("got %d, want 1", count)
	}
}

func TestDiscover_MissingRootYieldsError(t *testing.T) {
	var errs []error
	for path, err := range Discover(filepath.Join(t.TempDir(), "nope"), "mp4") {
		if path != "" {
			t.Errorf("unexpected path %q", path)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 1 || !errors.Is(errs[0], os.ErrNotExist) {
		t.Errorf("got errors %v, want one ErrNotExist", errs)
	}
}

func TestVideoID(t *testing.T) {
	tests := map[string]string{
		"/media/UC1/abc123.mp4":   "abc123",
		"dQw4w9WgXcQ.mp4":         "dQw4w9WgXcQ",
		"/x/with.dots.inside.mp4": "with.dots.inside",
	}
	for in, want := range tests {
		if got := VideoID(in); got != want {
			t.Errorf("VideoID(%q) = %q, want %q", in, got, want)
		}
	}
}
