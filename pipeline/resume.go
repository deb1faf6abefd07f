package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// State is the crawl's process-wide mutable state. It is derived fresh from
// the store at startup and owned exclusively by the consumer afterwards; the
// store itself is the checkpoint, so nothing here is persisted separately.
type State struct {
	NextID int
	Known  map[int]struct{}

	misses int
}

// IsKnown reports whether an identifier already exists in the store.
func (s *State) IsKnown(id int) bool {
	_, ok := s.Known[id]
	return ok
}

// MarkKnown records an identifier as persisted.
func (s *State) MarkKnown(id int) {
	s.Known[id] = struct{}{}
}

// LoadState scans an existing CSV store to recover the resume point: the set
// of identifiers already present and the maximum identifier seen. The crawl
// resumes at max+1 unless startID overrides it. A missing store is a fresh
// start; malformed rows are skipped, not fatal.
func LoadState(path string, startID int) (*State, error) {
	state := &State{NextID: 1, Known: make(map[int]struct{})}
	if startID > 0 {
		state.NextID = startID
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	maxID := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(row) == 0 {
			continue
		}
		// The header row and anything damaged fails the id parse and is
		// skipped here.
		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || id <= 0 {
			continue
		}
		state.Known[id] = struct{}{}
		if id > maxID {
			maxID = id
		}
	}

	if startID <= 0 {
		state.NextID = maxID + 1
	}
	return state, nil
}
