// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "sort"

// ChangeSummary describes the result of comparing two configs.
type ChangeSummary struct {
	Added   []PlayerSpec // ids only in next
	Removed []string     // ids only in old
	Changed []PlayerSpec // ids in both with a different spec, as in next

	LogLevelChanged bool
	// RestartRequired lists changed fields that only take effect after a
	// process restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (s ChangeSummary) Empty() bool {
	return len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Changed) == 0 &&
		!s.LogLevelChanged && len(s.RestartRequired) == 0
}

// Diff compares two configurations. Player lists are matched by id.
func Diff(old, next Config) ChangeSummary {
	var s ChangeSummary

	oldByID := make(map[string]PlayerSpec, len(old.Players))
	for _, p := range old.Players {
		oldByID[p.ID] = p
	}
	nextIDs := make(map[string]struct{}, len(next.Players))
	for _, p := range next.Players {
		nextIDs[p.ID] = struct{}{}
		prev, ok := oldByID[p.ID]
		switch {
		case !ok:
			s.Added = append(s.Added, p)
		case prev != p:
			s.Changed = append(s.Changed, p)
		}
	}
	for id := range oldByID {
		if _, ok := nextIDs[id]; !ok {
			s.Removed = append(s.Removed, id)
		}
	}
	sort.Strings(s.Removed)

	s.LogLevelChanged = old.LogLevel != next.LogLevel
	if old.Listen != next.Listen {
		s.RestartRequired = append(s.RestartRequired, "Listen")
	}
	if old.DataDir != next.DataDir {
		s.RestartRequired = append(s.RestartRequired, "DataDir")
	}
	if old.RateLimitRPM != next.RateLimitRPM {
		s.RestartRequired = append(s.RestartRequired, "RateLimitRPM")
	}
	if old.LogService != next.LogService {
		s.RestartRequired = append(s.RestartRequired, "LogService")
	}
	if old.Engine != next.Engine {
		s.RestartRequired = append(s.RestartRequired, "Engine")
	}
	if old.Player != next.Player {
		s.RestartRequired = append(s.RestartRequired, "Player")
	}
	return s
}
