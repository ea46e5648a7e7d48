package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"go.uber.org/zap"

	"demo-console/config"
	"demo-console/console"
	"demo-console/runtime"
	"demo-console/snippet"
)

// snippetSource picks where demos are fetched from: a URL, a directory on
// disk, or the bundled demos. It also returns the catalog to offer; the
// configured catalog wins, otherwise the directory listing is used.
func snippetSource(s config.Settings) (snippet.Fetcher, []string, error) {
	if s.SnippetURL != "" {
		return &snippet.HTTPFetcher{BaseURL: s.SnippetURL, Ext: s.SnippetExt, Client: http.DefaultClient}, s.Catalog, nil
	}

	var fetcher *snippet.FSFetcher
	if s.SnippetDir != "" {
		fetcher = &snippet.FSFetcher{FS: os.DirFS(s.SnippetDir), Ext: s.SnippetExt}
	} else {
		fetcher = &snippet.FSFetcher{FS: assets.Demos, Dir: "demos", Ext: s.SnippetExt}
	}
	if len(s.Catalog) > 0 {
		return fetcher, s.Catalog, nil
	}
	names, err := fetcher.Names()
	if err != nil {
		return nil, nil, fmt.Errorf("list demos: %w", err)
	}
	return fetcher, names, nil
}

func runtimeFactory(s config.Settings) console.RuntimeFactory {
	return func(stdout io.Writer) (runtime.Runtime, error) {
		return runtime.New(s.RuntimeKind, runtime.Config{
			Prelude: s.Prelude,
			Stdout:  stdout,
			Timeout: s.EvalTimeout,
			Command: s.Command,
			FileExt: s.SnippetExt,
		})
	}
}

func newManager(s config.Settings, log *zap.Logger) (*console.Manager, error) {
	fetcher, catalog, err := snippetSource(s)
	if err != nil {
		return nil, err
	}
	return console.NewManager(console.Options{
		Builtins:   s.Builtins,
		Catalog:    catalog,
		Initial:    s.Initial,
		Fetcher:    fetcher,
		Runtime:    runtimeFactory(s),
		Scrollback: s.Scrollback,
		Logger:     log,
	}), nil
}

// demosRoot is the FS served under /demos/, matching the fetch source.
func demosRoot(s config.Settings) fs.FS {
	switch {
	case s.SnippetURL != "":
		return nil
	case s.SnippetDir != "":
		return os.DirFS(s.SnippetDir)
	}
	sub, err := fs.Sub(assets.Demos, "demos")
	if err != nil {
		return nil
	}
	return sub
}
