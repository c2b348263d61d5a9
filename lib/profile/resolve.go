// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Extensions lists the recognized profile file extensions, in the
// order Resolve tries them.
var Extensions = []string{".yaml", ".yml", ".json", ".jsonc"}

// NotFoundError reports a profile name that matched nothing in the
// profile directory. Suggestions holds the closest available names,
// best match first; empty means nothing in the directory was even
// fuzzily similar.
type NotFoundError struct {
	Name        string
	Dir         string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("no profile %q in %s (did you mean %s?)",
			e.Name, e.Dir, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("no profile %q in %s", e.Name, e.Dir)
}

// IsNotFound reports whether err is a profile-name miss.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// Resolve maps a profile name to a file path under dir. A name that
// already carries a recognized extension is checked as-is; a bare
// name is tried with each recognized extension in order. When nothing
// matches, the returned [*NotFoundError] suggests the closest
// available names.
func Resolve(dir, name string) (string, error) {
	if slices.Contains(Extensions, filepath.Ext(name)) {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	} else {
		for _, ext := range Extensions {
			candidate := filepath.Join(dir, name+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	available, err := List(dir)
	if err != nil {
		return "", err
	}
	return "", &NotFoundError{
		Name:        name,
		Dir:         dir,
		Suggestions: suggest(name, available, maxSuggestions),
	}
}

// List returns the profile names available in dir: the stem of every
// regular file with a recognized extension, sorted and de-duplicated.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !slices.Contains(Extensions, ext) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ext)
		if stem == "" || seen[stem] {
			continue
		}
		seen[stem] = true
		names = append(names, stem)
	}
	slices.Sort(names)
	return names, nil
}

// maxSuggestions bounds how many near-miss names a NotFoundError
// mentions.
const maxSuggestions = 3

// Slab sizes for the fuzzy matcher's scratch arenas, matching fzf's
// own defaults.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

// suggest returns up to max names that fuzzily match name, best score
// first with ties broken alphabetically. Names that do not match at
// all are excluded.
func suggest(name string, available []string, max int) []string {
	pattern := algo.NormalizeRunes([]rune(strings.ToLower(name)))
	if len(pattern) == 0 {
		return nil
	}

	type match struct {
		name  string
		score int
	}
	slab := util.MakeSlab(slab16Size, slab32Size)
	var matches []match
	for _, candidate := range available {
		if score := fuzzyScore(candidate, pattern, slab); score > 0 {
			matches = append(matches, match{candidate, score})
		}
	}

	slices.SortFunc(matches, func(a, b match) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.name, b.name)
	})
	if len(matches) > max {
		matches = matches[:max]
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

// fuzzyScore scores pattern against text case-insensitively; zero
// means no match. The pattern must already be lowercased and
// normalized. A nil slab makes the matcher allocate its own scratch
// space.
func fuzzyScore(text string, pattern []rune, slab *util.Slab) int {
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
	if result.Score < 0 {
		return 0
	}
	return result.Score
}
