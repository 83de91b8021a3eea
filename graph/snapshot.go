// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/hack-pad/hackpadfs"

	"github.com/poiesic/knownet/core"
)

// EncodeSnapshot writes snap to w as indented JSON.
func EncodeSnapshot(w io.Writer, snap *core.GraphSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// WriteSnapshot writes the current graph to w as JSON.
func (s *Store) WriteSnapshot(w io.Writer) error {
	return EncodeSnapshot(w, s.Graph())
}

// WriteSnapshotFile writes the current graph to name on fsys, creating
// parent directories as needed.
func (s *Store) WriteSnapshotFile(fsys hackpadfs.FS, name string) error {
	data, err := json.MarshalIndent(s.Graph(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if dir := path.Dir(name); dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := hackpadfs.WriteFullFile(fsys, name, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return nil
}

// ReadSnapshot decodes and validates a JSON snapshot.
func ReadSnapshot(r io.Reader) (*core.GraphSnapshot, error) {
	var snap core.GraphSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReadSnapshotFile reads a snapshot written by WriteSnapshotFile.
func ReadSnapshotFile(fsys hackpadfs.FS, name string) (*core.GraphSnapshot, error) {
	data, err := hackpadfs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	var snap core.GraphSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, name, err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func validateSnapshot(snap *core.GraphSnapshot) error {
	ids := make(map[core.EntityID]struct{}, len(snap.Entities))
	for _, e := range snap.Entities {
		if e.ID == core.NoEntity {
			return fmt.Errorf("%w: entity %q has id 0", ErrInvalidSnapshot, e.Name)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("%w: duplicate entity id %d", ErrInvalidSnapshot, e.ID)
		}
		ids[e.ID] = struct{}{}
	}
	for _, e := range snap.Entities {
		if e.ParentID == core.NoEntity {
			continue
		}
		if _, ok := ids[e.ParentID]; !ok {
			return fmt.Errorf("%w: entity %d has unknown parent %d", ErrInvalidSnapshot, e.ID, e.ParentID)
		}
	}
	for i, t := range snap.Triples {
		if _, ok := ids[t.SubjectID]; !ok {
			return fmt.Errorf("%w: triple %d has unknown subject %d", ErrInvalidSnapshot, i, t.SubjectID)
		}
		if _, ok := ids[t.ObjectID]; !ok {
			return fmt.Errorf("%w: triple %d has unknown object %d", ErrInvalidSnapshot, i, t.ObjectID)
		}
	}
	return nil
}
