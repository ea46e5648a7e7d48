package snippet_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demo-console/snippet"
)

type countingFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
	text  map[string]string
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, name string) (string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text[name], nil
}

func wait(t *testing.T, ch <-chan snippet.Result) snippet.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("future did not resolve")
		return snippet.Result{}
	}
}

func TestEnsureLoadedCachedSkipsFetch(t *testing.T) {
	store := snippet.NewStore(map[string]string{"HelloWorld": "hi"})
	f := &countingFetcher{}
	l := snippet.NewLoader(store, f, nil)

	r := wait(t, l.EnsureLoaded(context.Background(), "HelloWorld"))
	require.NoError(t, r.Err)
	assert.Equal(t, "hi", r.Source)
	assert.Zero(t, f.calls.Load())
}

func TestEnsureLoadedFetchesAndInstalls(t *testing.T) {
	store := snippet.NewStore(nil)
	f := &countingFetcher{text: map[string]string{"Fib": "fib()"}}
	l := snippet.NewLoader(store, f, nil)

	r := wait(t, l.EnsureLoaded(context.Background(), "Fib"))
	require.NoError(t, r.Err)
	assert.Equal(t, "fib()", r.Source)

	src, ok := store.Get("Fib")
	require.True(t, ok)
	assert.Equal(t, "fib()", src)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestEnsureLoadedFailureLeavesStoreEmpty(t *testing.T) {
	store := snippet.NewStore(nil)
	f := &countingFetcher{err: errors.New("offline")}
	l := snippet.NewLoader(store, f, nil)

	r := wait(t, l.EnsureLoaded(context.Background(), "Fib"))
	require.Error(t, r.Err)
	assert.False(t, store.Has("Fib"))

	// A later call retries the fetch.
	f.err = nil
	f.text = map[string]string{"Fib": "ok"}
	r = wait(t, l.EnsureLoaded(context.Background(), "Fib"))
	require.NoError(t, r.Err)
	assert.Equal(t, "ok", r.Source)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestEnsureLoadedSharesInflightFetch(t *testing.T) {
	store := snippet.NewStore(nil)
	f := &countingFetcher{gate: make(chan struct{}), text: map[string]string{"Slow": "s"}}
	l := snippet.NewLoader(store, f, nil)

	var futures []<-chan snippet.Result
	for i := 0; i < 5; i++ {
		futures = append(futures, l.EnsureLoaded(context.Background(), "Slow"))
	}
	// Give every goroutine time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)

	var wg sync.WaitGroup
	for _, fut := range futures {
		wg.Add(1)
		go func(fut <-chan snippet.Result) {
			defer wg.Done()
			r := <-fut
			assert.NoError(t, r.Err)
			assert.Equal(t, "s", r.Source)
		}(fut)
	}
	wg.Wait()
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demos/Hello World.js" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("io.writeln(1)"))
	}))
	defer srv.Close()

	f := &snippet.HTTPFetcher{BaseURL: srv.URL + "/demos/", Ext: ".js"}
	src, err := f.Fetch(context.Background(), "Hello World")
	require.NoError(t, err)
	assert.Equal(t, "io.writeln(1)", src)

	_, err = f.Fetch(context.Background(), "Missing")
	assert.ErrorIs(t, err, snippet.ErrFetch)
}

func TestFSFetcher(t *testing.T) {
	fsys := fstest.MapFS{
		"demos/Loops.js":   {Data: []byte("for(;;){}")},
		"demos/Strings.js": {Data: []byte("'s'")},
		"demos/notes.txt":  {Data: []byte("skip")},
	}
	f := &snippet.FSFetcher{FS: fsys, Dir: "demos", Ext: ".js"}

	src, err := f.Fetch(context.Background(), "Loops")
	require.NoError(t, err)
	assert.Equal(t, "for(;;){}", src)

	_, err = f.Fetch(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, snippet.ErrFetch)

	names, err := f.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Loops", "Strings"}, names)
}
