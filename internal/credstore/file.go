package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// File persists the credential pair as a single JSON document on disk.
// Reads are served from memory; the file is touched only on Write/Clear and
// when the optional watcher reports an external change. If the backing file
// becomes unusable the store keeps working in-memory and stays that way for
// the lifetime of the process.
type File struct {
	mu       sync.Mutex
	path     string
	pair     *Pair
	degraded bool
	watcher  *fsnotify.Watcher
}

// NewFile opens (or lazily creates) the store at path. A missing or
// unreadable file simply means no stored credentials.
func NewFile(path string) *File {
	f := &File{path: path}
	f.pair = f.load()
	return f
}

func (f *File) load() *Pair {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil
	}
	var p Pair
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	if p.AccessToken == "" && p.RefreshToken == "" {
		return nil
	}
	return &p
}

func (f *File) Read() *Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pair == nil {
		return nil
	}
	cp := *f.pair
	return &cp
}

func (f *File) Write(pair Pair) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := pair
	f.pair = &cp
	f.persist()
}

func (f *File) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair = nil
	if f.degraded {
		return
	}
	_ = os.Remove(f.path)
}

// persist writes the whole document through a temp file and rename so a
// crash mid-write never leaves half a pair on disk. Caller holds f.mu.
func (f *File) persist() {
	if f.degraded {
		return
	}
	data, err := json.Marshal(f.pair)
	if err != nil {
		f.degraded = true
		return
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		f.degraded = true
		return
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		f.degraded = true
		return
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.degraded = true
	}
}

// Watch reloads the pair whenever another process rewrites the token file.
// CLI invocations share one file, so a login in one terminal becomes visible
// to a long-running command in another.
func (f *File) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors and atomic writers replace the file,
	// which drops a watch registered on the file itself.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return err
	}
	f.mu.Lock()
	f.watcher = w
	f.mu.Unlock()
	go f.watchLoop(w)
	return nil
}

func (f *File) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			f.mu.Lock()
			f.pair = f.load()
			f.mu.Unlock()
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher, if one was started.
func (f *File) Close() error {
	f.mu.Lock()
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
