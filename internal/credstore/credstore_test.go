package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	if m.Read() != nil {
		t.Fatalf("expected empty store")
	}

	pair := Pair{AccessToken: "tok1", RefreshToken: "ref1"}
	m.Write(pair)
	got := m.Read()
	if got == nil || *got != pair {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	m.Clear()
	if m.Read() != nil {
		t.Fatalf("expected nil after clear")
	}
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	m := NewMemory()
	m.Write(Pair{AccessToken: "tok1"})
	got := m.Read()
	got.AccessToken = "mutated"
	if m.Read().AccessToken != "tok1" {
		t.Fatalf("Read must hand out a copy")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	f := NewFile(path)

	pair := Pair{AccessToken: "tok1", RefreshToken: "ref1"}
	f.Write(pair)
	got := f.Read()
	if got == nil || *got != pair {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	f.Clear()
	if f.Read() != nil {
		t.Fatalf("expected nil after clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed after clear")
	}
}

func TestFileSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	pair := Pair{AccessToken: "tok1", RefreshToken: "ref1"}
	NewFile(path).Write(pair)

	// A second store over the same path models a fresh process start.
	got := NewFile(path).Read()
	if got == nil || *got != pair {
		t.Fatalf("expected pair reloaded from disk, got %+v", got)
	}
}

func TestFileIgnoresCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if NewFile(path).Read() != nil {
		t.Fatalf("corrupt file must read as no credentials")
	}
}

func TestFileDegradesToMemoryWhenUnwritable(t *testing.T) {
	// A path under a regular file can never be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f := NewFile(filepath.Join(blocker, "credentials.json"))

	pair := Pair{AccessToken: "tok1", RefreshToken: "ref1"}
	f.Write(pair) // must not panic or error
	got := f.Read()
	if got == nil || *got != pair {
		t.Fatalf("expected in-memory operation, got %+v", got)
	}
	f.Clear()
	if f.Read() != nil {
		t.Fatalf("expected nil after clear in degraded mode")
	}
}

func TestFileWatchPicksUpExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	f := NewFile(path)
	if err := f.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer f.Close()

	// Another process logging in rewrites the shared token file.
	if err := os.WriteFile(path, []byte(`{"access_token":"ext-tok","refresh_token":"ext-ref"}`), 0o600); err != nil {
		t.Fatalf("external write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.Read(); got != nil && got.AccessToken == "ext-tok" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher never observed the external write")
}
