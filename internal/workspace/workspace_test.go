package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spatialrip/internal/logging"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestArtifactNames(t *testing.T) {
	item := New("/out", "Hugo 3D")
	checks := []struct{ got, want string }{
		{item.MVC(), "/out/Hugo 3D/Hugo 3D_mvc.h264"},
		{item.PCM(), "/out/Hugo 3D/Hugo 3D_audio_PCM.mov"},
		{item.AAC(), "/out/Hugo 3D/Hugo 3D_audio_AAC.mov"},
		{item.Left(), "/out/Hugo 3D/Hugo 3D_left_movie.mov"},
		{item.MVHEVC(), "/out/Hugo 3D/Hugo 3D_MV-HEVC.mov"},
		{item.Final(), "/out/Hugo 3D/Hugo 3D_AVP.mov"},
		{item.Destination(), "/out/Hugo 3D_AVP.mov"},
		{Upscaled(item.Right()), "/out/Hugo 3D/Hugo 3D_right_movie Upscaled.mov"},
		{LogPath(item.Left()), "/out/Hugo 3D/Hugo 3D_left_movie.log"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestPrepareOnlyPurgesWhenAsked(t *testing.T) {
	item := New(t.TempDir(), "Movie")
	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	writeFile(t, item.MVC())

	if err := item.Prepare(false); err != nil {
		t.Fatalf("Prepare resume: %v", err)
	}
	if _, err := os.Stat(item.MVC()); err != nil {
		t.Fatalf("resumed prepare removed artifacts: %v", err)
	}

	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare purge: %v", err)
	}
	if _, err := os.Stat(item.MVC()); !os.IsNotExist(err) {
		t.Fatalf("expected purge to remove artifacts, got %v", err)
	}
}

func TestPrepareRefusesForeignFolder(t *testing.T) {
	item := New(t.TempDir(), "Hugo 3D")
	index := filepath.Join(item.Dir, "BDMV", "index.bdmv")
	writeFile(t, index)

	for _, purge := range []bool{true, false} {
		if err := item.Prepare(purge); !errors.Is(err, ErrForeignDir) {
			t.Fatalf("Prepare(%v) = %v, want ErrForeignDir", purge, err)
		}
		if _, err := os.Stat(index); err != nil {
			t.Fatalf("Prepare(%v) touched the folder: %v", purge, err)
		}
	}
	if IsWorkDir(item.Dir) {
		t.Fatal("expected no work marker written into the folder")
	}
}

func TestOutputExistsIsNormalized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "My_Movie_AVP.mov"))

	item := New(root, "my movie")
	match, ok, err := item.OutputExists()
	if err != nil {
		t.Fatalf("OutputExists: %v", err)
	}
	if !ok || filepath.Base(match) != "My_Movie_AVP.mov" {
		t.Fatalf("expected existing output detected, got %q ok=%v", match, ok)
	}

	if _, ok, _ := New(root, "Other").OutputExists(); ok {
		t.Fatal("unexpected match for a different title")
	}
}

func TestAbandonKeepsDirectoriesWithContent(t *testing.T) {
	item := New(t.TempDir(), "Movie")
	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := item.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := os.Stat(item.Dir); !os.IsNotExist(err) {
		t.Fatal("expected empty work directory removed")
	}

	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	writeFile(t, item.MVC())
	if err := item.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := os.Stat(item.MVC()); err != nil {
		t.Fatal("expected non-empty work directory kept")
	}
}

func TestRelocateMovesFinalFile(t *testing.T) {
	item := New(t.TempDir(), "Movie")
	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	writeFile(t, item.Final())

	dst, err := item.Relocate("")
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if dst != item.Destination() {
		t.Fatalf("unexpected destination %s", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if _, err := os.Stat(item.Final()); !os.IsNotExist(err) {
		t.Fatal("expected final file moved out of work directory")
	}
}

func TestRelocateReplacesPreviousDeliverable(t *testing.T) {
	item := New(t.TempDir(), "Movie")
	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	old := filepath.Join(item.Root, "movie_avp.mov")
	writeFile(t, old)
	writeFile(t, item.Final())

	if _, err := item.Relocate(old); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected previous deliverable removed")
	}
	if _, err := os.Stat(item.Destination()); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

// A hard link stands in for a name that differs only in case on a
// case-insensitive filesystem: both names resolve to the destination file.
func TestRelocateKeepsExistingThatIsDestination(t *testing.T) {
	item := New(t.TempDir(), "Movie")
	if err := item.Prepare(true); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	writeFile(t, item.Destination())
	alias := filepath.Join(item.Root, "movie_avp.mov")
	if err := os.Link(item.Destination(), alias); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}
	writeFile(t, item.Final())

	if _, err := item.Relocate(alias); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if _, err := os.Stat(alias); err != nil {
		t.Fatalf("expected destination alias left alone: %v", err)
	}
	if _, err := os.Stat(item.Destination()); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestRemoveSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mts")
	folder := filepath.Join(dir, "BDMV_FOLDER")
	writeFile(t, file)
	writeFile(t, filepath.Join(folder, "BDMV", "index.bdmv"))

	for _, p := range []string{file, folder} {
		if err := RemoveSource(p); err != nil {
			t.Fatalf("RemoveSource(%s): %v", p, err)
		}
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", p)
		}
	}
	if err := RemoveSource(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCleanStaleOnlyTouchesMarkedDirectories(t *testing.T) {
	root := t.TempDir()
	stale := New(root, "Stale")
	fresh := New(root, "Fresh")
	for _, item := range []Item{stale, fresh} {
		if err := item.Prepare(true); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
	}
	unrelated := filepath.Join(root, "Holiday Videos")
	writeFile(t, filepath.Join(unrelated, "beach.mov"))

	old := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{filepath.Join(stale.Dir, markerName), stale.Dir, unrelated} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := CleanStale(context.Background(), root, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale.Dir {
		t.Fatalf("expected only stale work dir removed, got %v", result.Removed)
	}
	for _, p := range []string{fresh.Dir, unrelated} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}

func TestCleanStaleMissingRoot(t *testing.T) {
	result := CleanStale(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
