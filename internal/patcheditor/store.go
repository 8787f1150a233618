// Package patcheditor implements the Patch-First Editor: propose_edit
// materialises a regex-driven edit as a stored unified diff without
// touching the source tree; apply_edit enforces an optional
// ExecutionPlan and commits the change through a plain-mirror staging
// directory.
package patcheditor

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// PatchContent is the stored representation of a proposed edit: the
// unified diff, the files it touches, and enough metadata to replay
// the edit into a staging directory at apply time.
type PatchContent struct {
	ID             string
	UnifiedDiff    string
	AffectedFiles  []string
	CreatedAt      time.Time
	Pattern        string
	Replacement    string
	Scope          string
}

// store is the process-local, keyed patch store. It is not persisted
// across process restarts; the patch editor owns it exclusively.
type store struct {
	mu      sync.Mutex
	patches map[string]*PatchContent
}

func newStore() *store {
	return &store{patches: make(map[string]*PatchContent)}
}

func (s *store) put(p *PatchContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches[p.ID] = p
}

func (s *store) get(id string) (*PatchContent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patches[id]
	return p, ok
}

// patchSeq is a process-wide counter mixed into every patch id digest.
var patchSeq uint64

// newPatchID generates an id of the form patch_<ms_timestamp>_<8-hex>,
// where the hex digest is derived from (timestamp, a per-editor
// object identity, a process-wide sequence number) so ids stay unique
// within a process lifetime even when one Editor proposes two patches
// within the same millisecond.
func newPatchID(now time.Time, salt uint64) string {
	ms := now.UnixMilli()
	seq := atomic.AddUint64(&patchSeq, 1)
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%d:%d", ms, salt, seq)
	return fmt.Sprintf("patch_%d_%08x", ms, h.Sum32())
}
