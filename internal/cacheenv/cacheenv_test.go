package cacheenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEnv is an in-memory Env for tests.
type mapEnv map[string]string

func (m mapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapEnv) Setenv(key, value string) error {
	m[key] = value
	return nil
}

// failingEnv refuses every write.
type failingEnv struct{ mapEnv }

func (f failingEnv) Setenv(string, string) error { return errors.New("env is frozen") }

func writable() bool   { return true }
func unwritable() bool { return false }

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		name     string
		env      mapEnv
		probe    func() bool
		expected bool
	}{
		{name: "writable root, no flags", env: mapEnv{}, probe: writable, expected: false},
		{name: "VERCEL=1", env: mapEnv{EnvVercel: "1"}, probe: writable, expected: true},
		{name: "READ_ONLY_FS=1", env: mapEnv{EnvReadOnlyFS: "1"}, probe: writable, expected: true},
		{name: "flag set to other value", env: mapEnv{EnvVercel: "true", EnvReadOnlyFS: "0"}, probe: writable, expected: false},
		{name: "root not writable", env: mapEnv{}, probe: unwritable, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsReadOnly(tt.env, tt.probe))
		})
	}
}

func TestIsReadOnly_FlagSkipsProbe(t *testing.T) {
	probed := false
	probe := func() bool {
		probed = true
		return true
	}

	assert.True(t, IsReadOnly(mapEnv{EnvVercel: "1"}, probe))
	assert.False(t, probed)
}

func TestApply_WritableFilesystemIsNoop(t *testing.T) {
	env := mapEnv{}
	fs := afero.NewMemMapFs()

	res := Apply(Options{Root: "/tmp", Env: env, Fs: fs, RootWritable: writable})

	assert.False(t, res.ReadOnly)
	assert.Empty(t, res.Set)
	assert.Empty(t, env)
}

func TestApply_RedirectsAllCaches(t *testing.T) {
	env := mapEnv{EnvReadOnlyFS: "1"}
	fs := afero.NewMemMapFs()

	res := Apply(Options{Root: "/scratch", Env: env, Fs: fs, RootWritable: writable})

	require.True(t, res.ReadOnly)
	expected := map[string]string{
		EnvHFHome:        filepath.Join("/scratch", "hf"),
		EnvHubCache:      filepath.Join("/scratch", "hf", "hub"),
		EnvTransformers:  filepath.Join("/scratch", "hf", "transformers"),
		EnvDatasetsCache: filepath.Join("/scratch", "hf", "datasets"),
		EnvXDGCacheHome:  filepath.Join("/scratch", "cache"),
	}
	assert.Equal(t, expected, res.Set)
	assert.Equal(t, expected, res.Dirs)
	assert.Empty(t, res.DirErrors)

	for key, dir := range expected {
		assert.Equal(t, dir, env[key], key)
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, "directory for %s should exist", key)
	}
}

func TestApply_KeepsExistingValues(t *testing.T) {
	env := mapEnv{
		EnvVercel:   "1",
		EnvHFHome:   "/custom/hf",
		EnvHubCache: "/elsewhere/hub",
	}
	fs := afero.NewMemMapFs()

	res := Apply(Options{Root: "/tmp", Env: env, Fs: fs, RootWritable: writable})

	assert.Equal(t, "/custom/hf", env[EnvHFHome])
	assert.Equal(t, "/elsewhere/hub", env[EnvHubCache])
	// derived paths hang off the effective HF_HOME
	assert.Equal(t, filepath.Join("/custom/hf", "transformers"), env[EnvTransformers])
	assert.Equal(t, filepath.Join("/custom/hf", "datasets"), env[EnvDatasetsCache])
	assert.Equal(t, filepath.Join("/tmp", "cache"), env[EnvXDGCacheHome])

	assert.NotContains(t, res.Set, EnvHFHome)
	assert.NotContains(t, res.Set, EnvHubCache)

	// pre-existing directories are still created
	exists, err := afero.DirExists(fs, "/elsewhere/hub")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApply_IgnoresDirectoryFailures(t *testing.T) {
	env := mapEnv{EnvReadOnlyFS: "1"}
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	var res Result
	assert.NotPanics(t, func() {
		res = Apply(Options{Root: "/tmp", Env: env, Fs: fs, RootWritable: writable})
	})

	assert.True(t, res.ReadOnly)
	assert.Len(t, res.DirErrors, len(CacheVars))
	// variables are set even though nothing could be created
	assert.Len(t, res.Set, len(CacheVars))
}

func TestApply_EnvWriteFailureIsTolerated(t *testing.T) {
	env := failingEnv{mapEnv{EnvReadOnlyFS: "1"}}
	fs := afero.NewMemMapFs()

	res := Apply(Options{Root: "/tmp", Env: env, Fs: fs, RootWritable: writable})

	assert.True(t, res.ReadOnly)
	assert.Empty(t, res.Set)
	assert.Empty(t, res.Dirs)
}

func TestApply_RootFromEnvironment(t *testing.T) {
	env := mapEnv{EnvCacheRoot: "/data", EnvVercel: "1"}
	fs := afero.NewMemMapFs()

	res := Apply(Options{Env: env, Fs: fs, RootWritable: writable})

	assert.Equal(t, "/data", res.Root)
	assert.Equal(t, filepath.Join("/data", "hf"), env[EnvHFHome])
}

func TestApply_DefaultRoot(t *testing.T) {
	env := mapEnv{EnvVercel: "1"}

	res := Apply(Options{Env: env, Fs: afero.NewMemMapFs(), RootWritable: writable})

	assert.Equal(t, DefaultRoot, res.Root)
}

func TestApply_RealEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvReadOnlyFS, "1")
	for _, key := range CacheVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	res := Apply(Options{Root: root, RootWritable: writable})

	require.True(t, res.ReadOnly)
	assert.Equal(t, filepath.Join(root, "hf"), os.Getenv(EnvHFHome))
	info, err := os.Stat(filepath.Join(root, "hf", "hub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
