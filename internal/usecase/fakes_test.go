package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zip"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// recorder is a Reporter that remembers what it was told and can run a
// hook on every progress update.
type recorder struct {
	mu         sync.Mutex
	progress   []int
	statuses   []string
	onProgress func(percent int)
}

func (r *recorder) Progress(percent int) {
	r.mu.Lock()
	r.progress = append(r.progress, percent)
	hook := r.onProgress
	r.mu.Unlock()

	if hook != nil {
		hook(percent)
	}
}

func (r *recorder) Status(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, message)
}

type memStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	failWith  error
	failNames map[string]bool
}

func newMemStorage(names ...string) *memStorage {
	m := &memStorage{files: map[string][]byte{}, failNames: map[string]bool{}}
	for _, n := range names {
		m.files[n] = []byte(n)
	}
	return m
}

func (m *memStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	if m.failWith != nil {
		return m.failWith
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[remoteName] = data
	return nil
}

func (m *memStorage) List(ctx context.Context) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	return names, nil
}

func (m *memStorage) Delete(ctx context.Context, remoteName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNames[remoteName] {
		return errors.New("permission denied")
	}
	delete(m.files, remoteName)
	return nil
}

func (m *memStorage) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type notifierFunc func(ctx context.Context, message string) error

func (f notifierFunc) Notify(ctx context.Context, message string) error {
	return f(ctx, message)
}

func writeFile(path, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		panic(err)
	}
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func zipEntries(path string) []string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func writeRawZip(path string, entries map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return err
		}
	}
	return zw.Close()
}
