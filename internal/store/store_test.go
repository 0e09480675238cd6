package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-audit/internal/list"
	"github.com/JakeFAU/site-audit/internal/mainqueue/mainqueuetest"
)

type record struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func loadSync(t *testing.T, s *ListStore[record]) Result[record] {
	t.Helper()
	q := &mainqueuetest.Pending{}
	var got *Result[record]
	s.EnsureLoaded(q, func(r Result[record]) { got = &r })
	q.RunNext(t)
	require.NotNil(t, got)
	require.Zero(t, q.Len())
	return *got
}

func TestEnsureLoadedMissingFileYieldsEmptyList(t *testing.T) {
	t.Parallel()

	s := NewListStore[record](filepath.Join(t.TempDir(), "v1", "sites.json"), nil, Options[record]{})
	res := loadSync(t, s)
	require.NoError(t, res.Err)
	require.NotNil(t, res.List)
	require.Zero(t, res.List.Len())
}

func TestEnsureLoadedReadsItems(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.json")
	doc := `{"items":[{"id":"1","label":"one"},{"id":"2","label":"two"}],"extra":true}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	created := 0
	s := NewListStore(path, func(items []record) *list.IndexedList[record] {
		created++
		return list.New(items...)
	}, Options[record]{})
	res := loadSync(t, s)
	require.NoError(t, res.Err)
	require.Equal(t, 1, created)
	require.Equal(t, []record{{ID: "1", Label: "one"}, {ID: "2", Label: "two"}}, res.List.Snapshot())
}

func TestEnsureLoadedMalformedDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":      `{"items": [`,
		"missing key":   `{"sites": []}`,
		"wrong type":    `{"items": {"id": "1"}}`,
		"array at root": `[]`,
	}
	for name, doc := range cases {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "sites.json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
			res := loadSync(t, NewListStore[record](path, nil, Options[record]{}))
			require.ErrorIs(t, res.Err, ErrLoad)
			require.ErrorIs(t, res.Err, ErrMalformed)
			require.Nil(t, res.List)
		})
	}
}

func TestEnsureLoadedUnreadablePath(t *testing.T) {
	t.Parallel()

	// A directory where the document should be cannot be read as a file.
	path := t.TempDir()
	res := loadSync(t, NewListStore[record](path, nil, Options[record]{}))
	require.ErrorIs(t, res.Err, ErrLoad)
}

func TestEnsureLoadedLoadsOnlyOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.json")
	s := NewListStore[record](path, nil, Options[record]{})
	first := loadSync(t, s)
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"id":"late"}]}`), 0o600))
	second := loadSync(t, s)

	require.Same(t, first.List, second.List)
	require.Zero(t, second.List.Len())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "sites.json")
	s := NewListStore[record](path, nil, Options[record]{})
	items := []record{{ID: "1", Label: "one"}}
	require.NoError(t, s.Save(items))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]record
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, items, doc["items"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	res := loadSync(t, NewListStore[record](path, nil, Options[record]{}))
	require.NoError(t, res.Err)
	require.Equal(t, items, res.List.Snapshot())
}

func TestCustomKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.json")
	opts := Options[record]{Transformer: KeyTransformer[record]{Key: "sites"}}
	require.NoError(t, NewListStore(path, nil, opts).Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"sites": []}`, string(data))
}

func TestAutoSavePersistsLatestSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.json")
	s := NewListStore[record](path, nil, Options[record]{})
	l := list.New[record]()
	saver := AutoSave[record](s, l, nil, nil)

	l.Append(record{ID: "1"})
	l.Append(record{ID: "2"})
	require.NoError(t, l.RemoveAt(0))
	saver.Close()
	saver.Close()

	l.Append(record{ID: "ignored"})

	res := loadSync(t, NewListStore[record](path, nil, Options[record]{}))
	require.NoError(t, res.Err)
	require.Equal(t, []record{{ID: "2"}}, res.List.Snapshot())
}

func TestAutoSaveReportsErrorsOnQueue(t *testing.T) {
	t.Parallel()

	// The parent "directory" is a file, so every save fails.
	parent := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))
	s := NewListStore[record](filepath.Join(parent, "sites.json"), nil, Options[record]{})
	l := list.New[record]()
	q := &mainqueuetest.Pending{}
	var reported []error
	saver := AutoSave[record](s, l, q, func(err error) { reported = append(reported, err) })

	l.Append(record{ID: "1"})
	saver.Close()
	q.RunAll()

	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], ErrSave)
}

func TestAutoSaveFlushesErrorsOnQueueWhileOpen(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))
	s := NewListStore[record](filepath.Join(parent, "sites.json"), nil, Options[record]{})
	l := list.New[record]()
	q := &mainqueuetest.Pending{}
	var reported []error
	saver := AutoSave[record](s, l, q, func(err error) { reported = append(reported, err) })

	l.Append(record{ID: "1"})
	q.RunNext(t)
	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], ErrSave)

	saver.Close()
	require.Len(t, reported, 1)
}

// stuckDispatcher accepts nothing: every Dispatch blocks until the test ends.
type stuckDispatcher struct {
	release chan struct{}
}

func (d stuckDispatcher) Dispatch(func()) {
	<-d.release
}

type gatedSaver struct {
	started chan struct{}
	proceed chan struct{}
}

func (g gatedSaver) Save([]record) error {
	g.started <- struct{}{}
	<-g.proceed
	return ErrSave
}

func TestAutoSaveCloseDoesNotWaitOnDispatcher(t *testing.T) {
	t.Parallel()

	dispatcher := stuckDispatcher{release: make(chan struct{})}
	t.Cleanup(func() { close(dispatcher.release) })
	saver := gatedSaver{started: make(chan struct{}, 1), proceed: make(chan struct{})}
	l := list.New[record]()
	var reported []error
	a := AutoSave[record](saver, l, dispatcher, func(err error) { reported = append(reported, err) })

	l.Append(record{ID: "1"})
	<-saver.started

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		a.Close()
	}()
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.closed
	}, time.Second, 5*time.Millisecond)
	close(saver.proceed)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a dispatcher that never drains")
	}
	require.Equal(t, []error{ErrSave}, reported)
}
