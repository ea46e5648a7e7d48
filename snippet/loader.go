package snippet

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fills the store on demand from a Fetcher.
type Loader struct {
	store   *Store
	fetcher Fetcher
	group   singleflight.Group
	log     *zap.Logger
}

func NewLoader(store *Store, fetcher Fetcher, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{store: store, fetcher: fetcher, log: log}
}

// EnsureLoaded returns a future that receives exactly one Result for name.
// A cached entry resolves at once without touching the fetcher. Otherwise one
// fetch is issued; concurrent callers for the same name share it. On success
// the text is installed in the store before the future resolves. On failure
// the store is left as it was, so the next call fetches again.
func (l *Loader) EnsureLoaded(ctx context.Context, name string) <-chan Result {
	out := make(chan Result, 1)
	if src, ok := l.store.Get(name); ok {
		out <- Result{Name: name, Source: src}
		return out
	}

	go func() {
		v, err, _ := l.group.Do(name, func() (interface{}, error) {
			l.log.Debug("fetching snippet", zap.String("name", name))
			src, err := l.fetcher.Fetch(ctx, name)
			if err != nil {
				return "", err
			}
			l.store.Put(name, src)
			return src, nil
		})
		if err != nil {
			l.log.Warn("snippet load failed", zap.String("name", name), zap.Error(err))
			out <- Result{Name: name, Err: err}
			return
		}
		out <- Result{Name: name, Source: v.(string)}
	}()
	return out
}
