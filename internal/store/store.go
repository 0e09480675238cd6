// Package store binds an IndexedList to a JSON document on disk.
//
// A ListStore makes a single load attempt per instance. EnsureLoaded never
// blocks its caller: the file is read on a background goroutine and the
// outcome is delivered through a mainqueue.Dispatcher.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/list"
	"github.com/JakeFAU/site-audit/internal/mainqueue"
)

var (
	// ErrLoad wraps every failure to materialize the list.
	ErrLoad = errors.New("load list document")
	// ErrSave wraps every failure to persist the list.
	ErrSave = errors.New("save list document")
	// ErrMalformed is returned for documents that do not have the expected shape.
	ErrMalformed = errors.New("malformed list document")
)

// Options configures a ListStore.
//   - Transformer: document codec (defaults to KeyTransformer with "items").
//   - Logger: optional structured logger.
type Options[T any] struct {
	Transformer Transformer[T]
	Logger      *zap.Logger
}

// Result is the outcome of a load: either a list or an error.
type Result[T any] struct {
	List *list.IndexedList[T]
	Err  error
}

// ListStore loads and saves one list document.
type ListStore[T any] struct {
	path        string
	create      func(items []T) *list.IndexedList[T]
	transformer Transformer[T]
	logger      *zap.Logger

	loadOnce sync.Once
	loaded   chan struct{}
	result   Result[T]

	saveMu sync.Mutex
}

// NewListStore returns a store for the document at path. create builds the
// list from decoded items; nil means list.New.
func NewListStore[T any](path string, create func(items []T) *list.IndexedList[T], opts Options[T]) *ListStore[T] {
	if create == nil {
		create = func(items []T) *list.IndexedList[T] { return list.New(items...) }
	}
	transformer := opts.Transformer
	if transformer == nil {
		transformer = KeyTransformer[T]{Key: DefaultItemsKey}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListStore[T]{
		path:        path,
		create:      create,
		transformer: transformer,
		logger:      logger,
		loaded:      make(chan struct{}),
	}
}

// EnsureLoaded starts the load if it has not started yet and delivers the
// outcome to completion exactly once, on dispatch. A missing document yields a
// fresh empty list. Later calls receive the outcome of the first load.
func (s *ListStore[T]) EnsureLoaded(dispatch mainqueue.Dispatcher, completion func(Result[T])) {
	s.loadOnce.Do(func() {
		go s.load()
	})
	go func() {
		<-s.loaded
		dispatch.Dispatch(func() {
			completion(s.result)
		})
	}()
}

func (s *ListStore[T]) load() {
	defer close(s.loaded)
	items, err := s.read()
	if err != nil {
		s.logger.Warn("list document load failed", zap.String("path", s.path), zap.Error(err))
		s.result = Result[T]{Err: err}
		return
	}
	s.logger.Debug("list document loaded", zap.String("path", s.path), zap.Int("items", len(items)))
	s.result = Result[T]{List: s.create(items)}
}

func (s *ListStore[T]) read() ([]T, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, fmt.Errorf("%w: path is required", ErrLoad)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	items, err := s.transformer.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}
	return items, nil
}

// Save writes items to the document, replacing it atomically.
func (s *ListStore[T]) Save(items []T) error {
	data, err := s.transformer.Encode(items)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create parent directories: %w", ErrSave, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrSave, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Already renamed on success.
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrSave, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("%w: chmod temp file: %w", ErrSave, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename into place: %w", ErrSave, err)
	}
	s.logger.Debug("list document saved", zap.String("path", s.path), zap.Int("items", len(items)))
	return nil
}
