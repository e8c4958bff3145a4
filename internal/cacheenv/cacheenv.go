// Package cacheenv redirects model cache directories to a writable root when
// the process runs on a read-only filesystem (serverless platforms, locked
// down containers). It must run before any model backend is constructed.
package cacheenv

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// EnvCacheRoot names the writable root for redirected caches
	EnvCacheRoot = "EMBED_CACHE_ROOT"
	// DefaultRoot is used when EnvCacheRoot is unset
	DefaultRoot = "/tmp"

	// EnvVercel and EnvReadOnlyFS force read-only mode when set to "1"
	EnvVercel     = "VERCEL"
	EnvReadOnlyFS = "READ_ONLY_FS"

	EnvHFHome          = "HF_HOME"
	EnvHubCache        = "HUGGINGFACE_HUB_CACHE"
	EnvTransformers    = "TRANSFORMERS_CACHE"
	EnvDatasetsCache   = "HF_DATASETS_CACHE"
	EnvXDGCacheHome    = "XDG_CACHE_HOME"
	defaultDirPermBits = 0o755
)

// CacheVars lists the redirected variables in the order they are created.
var CacheVars = []string{
	EnvHFHome,
	EnvHubCache,
	EnvTransformers,
	EnvDatasetsCache,
	EnvXDGCacheHome,
}

// Env is the subset of process environment access the redirection needs.
type Env interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
}

// OSEnv reads and writes the real process environment.
type OSEnv struct{}

// LookupEnv implements Env.
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// Setenv implements Env.
func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

// Options configures Apply. Zero values select the real environment,
// the OS filesystem and the root write-access probe.
type Options struct {
	Root         string
	Env          Env
	Fs           afero.Fs
	RootWritable func() bool
	Logger       *slog.Logger
}

// Result reports what Apply did.
type Result struct {
	ReadOnly bool
	Root     string
	// Set holds the variables Apply assigned; variables that were already
	// present are left out.
	Set map[string]string
	// Dirs holds the effective directory for each cache variable.
	Dirs map[string]string
	// DirErrors holds directory creation failures. They never abort startup.
	DirErrors map[string]error
}

// IsReadOnly reports whether caches must be redirected: either flag variable
// equals "1", or the filesystem root is not writable. The probe only runs when
// neither flag is set.
func IsReadOnly(env Env, rootWritable func() bool) bool {
	if v, _ := env.LookupEnv(EnvVercel); v == "1" {
		return true
	}
	if v, _ := env.LookupEnv(EnvReadOnlyFS); v == "1" {
		return true
	}
	return !rootWritable()
}

// Apply detects read-only mode and, when active, points every model cache
// variable that is not already set at a directory under the root, then makes
// a best-effort attempt to create each directory.
func Apply(opts Options) Result {
	opts = withDefaults(opts)

	res := Result{
		Root:      opts.Root,
		Set:       make(map[string]string),
		Dirs:      make(map[string]string),
		DirErrors: make(map[string]error),
	}

	if !IsReadOnly(opts.Env, opts.RootWritable) {
		return res
	}
	res.ReadOnly = true

	hfHome := setDefault(opts, &res, EnvHFHome, filepath.Join(opts.Root, "hf"))
	setDefault(opts, &res, EnvHubCache, filepath.Join(hfHome, "hub"))
	setDefault(opts, &res, EnvTransformers, filepath.Join(hfHome, "transformers"))
	setDefault(opts, &res, EnvDatasetsCache, filepath.Join(hfHome, "datasets"))
	setDefault(opts, &res, EnvXDGCacheHome, filepath.Join(opts.Root, "cache"))

	for _, key := range CacheVars {
		dir, ok := opts.Env.LookupEnv(key)
		if !ok || dir == "" {
			continue
		}
		res.Dirs[key] = dir
		// Restricted environments may refuse even the redirected root; the
		// model backend reports its own error later if it really needs the dir.
		if err := opts.Fs.MkdirAll(dir, defaultDirPermBits); err != nil {
			res.DirErrors[key] = err
			opts.Logger.Debug("ignoring cache directory creation failure", "var", key, "dir", dir, "error", err)
		}
	}

	return res
}

// setDefault assigns value to key only when key is absent and returns the
// effective value.
func setDefault(opts Options, res *Result, key, value string) string {
	if existing, ok := opts.Env.LookupEnv(key); ok {
		return existing
	}
	if err := opts.Env.Setenv(key, value); err != nil {
		opts.Logger.Debug("failed to set cache variable", "var", key, "error", err)
		return value
	}
	res.Set[key] = value
	return value
}

func withDefaults(opts Options) Options {
	if opts.Env == nil {
		opts.Env = OSEnv{}
	}
	if opts.Root == "" {
		if root, ok := opts.Env.LookupEnv(EnvCacheRoot); ok && root != "" {
			opts.Root = root
		} else {
			opts.Root = DefaultRoot
		}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.RootWritable == nil {
		opts.RootWritable = RootWritable
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return opts
}
