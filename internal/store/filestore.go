package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/abhisek/socratic/internal/logger"
)

// fileSession groups everything belonging to one session in the file.
type fileSession struct {
	Session  SessionRecord   `json:"session"`
	Turns    []TurnRecord    `json:"turns"`
	Progress *ProgressRecord `json:"progress,omitempty"`
}

// fileData is the on-disk document.
type fileData struct {
	NextTurnID int64                   `json:"next_turn_id"`
	Sessions   map[string]*fileSession `json:"sessions"`
}

// FileStore implements Store on a single JSON file. Writes replace the
// file atomically (temp file plus rename), so a crash mid-write leaves
// the previous state intact. All operations are serialized by a mutex;
// this store trades throughput for zero external dependencies.
type FileStore struct {
	path string
	log  *logger.Logger

	mu   sync.Mutex
	data fileData
}

// OpenFile loads (or initializes) the flat-file store at path.
func OpenFile(path string, log *logger.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("flat-file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	fs := &FileStore{
		path: path,
		log:  log.With("store", "file"),
		data: fileData{NextTurnID: 1, Sessions: make(map[string]*fileSession)},
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh store.
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	default:
		if err := json.Unmarshal(raw, &fs.data); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
		if fs.data.Sessions == nil {
			fs.data.Sessions = make(map[string]*fileSession)
		}
		if fs.data.NextTurnID < 1 {
			fs.data.NextTurnID = 1
		}
	}

	return fs, nil
}

// saveLocked writes the document atomically. Callers hold fs.mu.
func (fs *FileStore) saveLocked() error {
	raw, err := json.MarshalIndent(&fs.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) CreateSession(_ context.Context, rec *SessionRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.data.Sessions[rec.ID]; exists {
		return fmt.Errorf("session %s already exists", rec.ID)
	}
	cp := *rec
	fs.data.Sessions[rec.ID] = &fileSession{Session: cp}
	if err := fs.saveLocked(); err != nil {
		delete(fs.data.Sessions, rec.ID)
		return err
	}
	return nil
}

func (fs *FileStore) UpdateSessionCursor(_ context.Context, sessionID string, nextQuestionIndex, hintLevel int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	// Memory is mutated first and rolled back if the write fails, so
	// reads never serve state the file does not hold.
	prev := entry.Session
	entry.Session.NextQuestionIndex = nextQuestionIndex
	entry.Session.HintLevel = hintLevel
	if err := fs.saveLocked(); err != nil {
		entry.Session = prev
		return err
	}
	return nil
}

func (fs *FileStore) LoadSession(_ context.Context, sessionID string) (*SessionRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := entry.Session
	return &cp, nil
}

func (fs *FileStore) ListSessionsForUser(_ context.Context, userID string) ([]SessionRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var out []SessionRecord
	for _, entry := range fs.data.Sessions {
		if entry.Session.UserID == userID {
			out = append(out, entry.Session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (fs *FileStore) CountSessions(_ context.Context) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return int64(len(fs.data.Sessions)), nil
}

func (fs *FileStore) AppendTurn(_ context.Context, rec *TurnRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[rec.SessionID]
	if !ok {
		return ErrNotFound
	}

	rec.ID = fs.data.NextTurnID
	fs.data.NextTurnID++
	entry.Turns = append(entry.Turns, *rec)
	if err := fs.saveLocked(); err != nil {
		entry.Turns = entry.Turns[:len(entry.Turns)-1]
		fs.data.NextTurnID--
		rec.ID = 0
		return err
	}
	return nil
}

func (fs *FileStore) LoadTurns(_ context.Context, sessionID string) ([]TurnRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]TurnRecord, len(entry.Turns))
	copy(out, entry.Turns)
	return out, nil
}

func (fs *FileStore) SaveProgress(_ context.Context, rec *ProgressRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[rec.SessionID]
	if !ok {
		return ErrNotFound
	}
	prev := entry.Progress
	cp := *rec
	entry.Progress = &cp
	if err := fs.saveLocked(); err != nil {
		entry.Progress = prev
		return err
	}
	return nil
}

func (fs *FileStore) LoadProgress(_ context.Context, sessionID string) (*ProgressRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.data.Sessions[sessionID]
	if !ok || entry.Progress == nil {
		return nil, ErrNotFound
	}
	cp := *entry.Progress
	return &cp, nil
}

func (fs *FileStore) Close() error {
	return nil
}
