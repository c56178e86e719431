// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holderFixture(t *testing.T, body string) (*Holder, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	path := writeFile(t, dir, "playbin.yaml", body)
	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	return NewHolder(cfg, loader), path
}

func TestHolderReload(t *testing.T) {
	h, path := holderFixture(t, "players:\n  - id: a\n    uri: /a.mp4\n")
	require.Len(t, h.Get().Players, 1)

	ch := make(chan Config, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("players:\n  - id: a\n    uri: /a.mp4\n  - id: b\n    uri: /b.mp4\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Len(t, h.Get().Players, 2)

	select {
	case cfg := <-ch:
		assert.Len(t, cfg.Players, 2)
	default:
		t.Fatal("listener not notified")
	}
}

func TestHolderReloadKeepsConfigOnError(t *testing.T) {
	h, path := holderFixture(t, "listen: \":9100\"\n")
	require.NoError(t, os.WriteFile(path, []byte("listen: nope\n"), 0o600))

	err := h.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, ":9100", h.Get().Listen)
}

func TestHolderListenerNeverBlocks(t *testing.T) {
	h, _ := holderFixture(t, "")
	full := make(chan Config)
	h.RegisterListener(full)

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestHolderWatcherReloadsOnWrite(t *testing.T) {
	h, path := holderFixture(t, "logLevel: info\n")
	h.Debounce = 20 * time.Millisecond
	ch := make(chan Config, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	assert.Equal(t, "debug", h.Get().LogLevel)
}

func TestHolderWatcherWithoutFile(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader)
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
