package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddr         = ":8080"
	defaultRuntime      = "js"
	defaultEvalTimeout  = 10 * time.Second
	defaultMaxIdle      = 30 * time.Minute
	defaultReapInterval = time.Minute
	defaultScrollback   = 1 << 20
	defaultSnippetExt   = ".js"
	defaultLogLevel     = "info"
)

// DefaultBuiltins are the snippets every session starts with, per runtime
// kind.
var DefaultBuiltins = map[string]map[string]string{
	"js":      {"HelloWorld": `io.writeln("Hello World!")`},
	"go":      {"HelloWorld": `fmt.Println("Hello World!")`},
	"command": {"HelloWorld": `echo "Hello World!"`},
}

type Settings struct {
	Path string

	Addr string

	RuntimeKind string
	Prelude     string
	Command     []string
	EvalTimeout time.Duration

	SnippetDir string
	SnippetURL string
	SnippetExt string
	Catalog    []string
	Builtins   map[string]string
	Initial    string

	MaxIdle      time.Duration
	ReapInterval time.Duration
	Scrollback   int

	LogLevel string
	LogDev   bool
}

type fileConfig struct {
	Server   serverConfig   `toml:"server"`
	Runtime  runtimeConfig  `toml:"runtime"`
	Snippets snippetsConfig `toml:"snippets"`
	Session  sessionConfig  `toml:"session"`
	Log      logConfig      `toml:"log"`
}

type serverConfig struct {
	Addr string `toml:"addr"`
}

type runtimeConfig struct {
	Kind        string   `toml:"kind"`
	Prelude     string   `toml:"prelude"`
	Command     []string `toml:"command"`
	EvalTimeout string   `toml:"eval_timeout"`
}

type snippetsConfig struct {
	Dir      string            `toml:"dir"`
	BaseURL  string            `toml:"base_url"`
	Ext      string            `toml:"ext"`
	Catalog  []string          `toml:"catalog"`
	Builtins map[string]string `toml:"builtins"`
	Initial  string            `toml:"initial"`
}

type sessionConfig struct {
	MaxIdle      string `toml:"max_idle"`
	ReapInterval string `toml:"reap_interval"`
	Scrollback   int    `toml:"scrollback"`
}

type logConfig struct {
	Level string `toml:"level"`
	Dev   bool   `toml:"dev"`
}

// Load builds Settings from defaults, then the TOML file at path (a missing
// file is not an error, an empty path skips it), then environment variables.
func Load(path string) (Settings, error) {
	cfg := defaultFileConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var onDisk fileConfig
			if _, err := toml.DecodeFile(path, &onDisk); err != nil {
				return Settings{}, fmt.Errorf("decode config %s: %w", path, err)
			}
			mergeFileConfig(&cfg, onDisk)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return toSettings(path, cfg)
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Server:   serverConfig{Addr: defaultAddr},
		Runtime:  runtimeConfig{Kind: defaultRuntime, EvalTimeout: defaultEvalTimeout.String()},
		Snippets: snippetsConfig{Ext: defaultSnippetExt},
		Session: sessionConfig{
			MaxIdle:      defaultMaxIdle.String(),
			ReapInterval: defaultReapInterval.String(),
			Scrollback:   defaultScrollback,
		},
		Log: logConfig{Level: defaultLogLevel},
	}
}

func mergeFileConfig(dst *fileConfig, src fileConfig) {
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if v := strings.TrimSpace(src.Runtime.Kind); v != "" {
		dst.Runtime.Kind = v
	}
	if src.Runtime.Prelude != "" {
		dst.Runtime.Prelude = src.Runtime.Prelude
	}
	if len(src.Runtime.Command) > 0 {
		dst.Runtime.Command = src.Runtime.Command
	}
	if v := strings.TrimSpace(src.Runtime.EvalTimeout); v != "" {
		dst.Runtime.EvalTimeout = v
	}
	if v := strings.TrimSpace(src.Snippets.Dir); v != "" {
		dst.Snippets.Dir = v
	}
	if v := strings.TrimSpace(src.Snippets.BaseURL); v != "" {
		dst.Snippets.BaseURL = v
	}
	if v := strings.TrimSpace(src.Snippets.Ext); v != "" {
		dst.Snippets.Ext = v
	}
	if len(src.Snippets.Catalog) > 0 {
		dst.Snippets.Catalog = src.Snippets.Catalog
	}
	if len(src.Snippets.Builtins) > 0 {
		dst.Snippets.Builtins = src.Snippets.Builtins
	}
	if v := strings.TrimSpace(src.Snippets.Initial); v != "" {
		dst.Snippets.Initial = v
	}
	if v := strings.TrimSpace(src.Session.MaxIdle); v != "" {
		dst.Session.MaxIdle = v
	}
	if v := strings.TrimSpace(src.Session.ReapInterval); v != "" {
		dst.Session.ReapInterval = v
	}
	if src.Session.Scrollback > 0 {
		dst.Session.Scrollback = src.Session.Scrollback
	}
	if v := strings.TrimSpace(src.Log.Level); v != "" {
		dst.Log.Level = v
	}
	if src.Log.Dev {
		dst.Log.Dev = true
	}
}

func applyEnv(cfg *fileConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if v := os.Getenv("DEMO_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DEMO_RUNTIME"); v != "" {
		cfg.Runtime.Kind = v
	}
	if v := os.Getenv("DEMO_SNIPPET_DIR"); v != "" {
		cfg.Snippets.Dir = v
	}
	if v := os.Getenv("DEMO_SNIPPET_URL"); v != "" {
		cfg.Snippets.BaseURL = v
	}
	if v := os.Getenv("DEMO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func toSettings(path string, cfg fileConfig) (Settings, error) {
	timeout, err := time.ParseDuration(cfg.Runtime.EvalTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid runtime.eval_timeout duration: %w", err)
	}
	maxIdle, err := time.ParseDuration(cfg.Session.MaxIdle)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid session.max_idle duration: %w", err)
	}
	reap, err := time.ParseDuration(cfg.Session.ReapInterval)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid session.reap_interval duration: %w", err)
	}

	builtins := cfg.Snippets.Builtins
	if len(builtins) == 0 {
		builtins = DefaultBuiltins[cfg.Runtime.Kind]
	}
	initial := cfg.Snippets.Initial
	if initial == "" {
		if names := sortedNames(builtins); len(names) > 0 {
			initial = names[0]
		}
	}
	return Settings{
		Path:         path,
		Addr:         cfg.Server.Addr,
		RuntimeKind:  cfg.Runtime.Kind,
		Prelude:      cfg.Runtime.Prelude,
		Command:      cfg.Runtime.Command,
		EvalTimeout:  timeout,
		SnippetDir:   cfg.Snippets.Dir,
		SnippetURL:   cfg.Snippets.BaseURL,
		SnippetExt:   cfg.Snippets.Ext,
		Catalog:      cfg.Snippets.Catalog,
		Builtins:     builtins,
		Initial:      initial,
		MaxIdle:      maxIdle,
		ReapInterval: reap,
		Scrollback:   cfg.Session.Scrollback,
		LogLevel:     cfg.Log.Level,
		LogDev:       cfg.Log.Dev,
	}, nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
