// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// NormalizeURI turns a plain filesystem path into an absolute file:// URI.
// Anything that already carries a scheme is returned unchanged.
func NormalizeURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty uri")
	}
	if u, err := url.Parse(raw); err == nil && len(u.Scheme) > 1 {
		return raw, nil
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", raw, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// InputFor converts a normalized URI into the argument ffmpeg expects:
// file:// URIs become local paths, everything else passes through.
func InputFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return uri, nil
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file uri %q: remote host %q not supported", uri, u.Host)
	}
	return filepath.FromSlash(u.Path), nil
}
