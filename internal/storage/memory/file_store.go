package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

var _ storage.FileStore = (*FileStore)(nil)

// File is one uploaded object.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileStore keeps uploaded files in a map and serves memory:// preview URLs.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]File
	err   error
}

// NewFileStore creates an empty FileStore.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]File)}
}

// FailWith makes every subsequent PutFile return err.
func (s *FileStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// PutFile stores a copy of data under fileID.
func (s *FileStore) PutFile(_ context.Context, fileID, name, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if fileID == "" {
		return fmt.Errorf("file id is required")
	}
	s.files[fileID] = File{Name: name, ContentType: contentType, Data: append([]byte(nil), data...)}
	return nil
}

// DeleteFile drops fileID.
func (s *FileStore) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return nil
}

// PreviewURL returns a pseudo URL for fileID.
func (s *FileStore) PreviewURL(fileID string) string {
	return "memory://files/" + fileID
}

// File returns the stored file for fileID.
func (s *FileStore) File(fileID string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	return f, ok
}

// Len reports how many files are stored.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
