package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunInfo describes a template run in progress.
type RunInfo struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt,omitempty"`
	Model     string    `json:"model,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

type run struct {
	info   RunInfo
	cancel context.CancelFunc
}

// runRegistry tracks active runs so they can be listed and aborted.
type runRegistry struct {
	mu   sync.Mutex
	runs map[string]*run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*run)}
}

// start registers a run and returns its info and a context that abort
// cancels. The caller must call finish.
func (r *runRegistry) start(parent context.Context, kind, prompt, model string) (RunInfo, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	info := RunInfo{
		ID:        ulid.Make().String(),
		Kind:      kind,
		Prompt:    prompt,
		Model:     model,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.runs[info.ID] = &run{info: info, cancel: cancel}
	r.mu.Unlock()
	return info, ctx
}

func (r *runRegistry) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runs[id]; ok {
		rn.cancel()
		delete(r.runs, id)
	}
}

// list returns active runs, oldest first.
func (r *runRegistry) list() []RunInfo {
	r.mu.Lock()
	out := make([]RunInfo, 0, len(r.runs))
	for _, rn := range r.runs {
		out = append(out, rn.info)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// abort cancels a run. It reports false for unknown IDs.
func (r *runRegistry) abort(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[id]
	if ok {
		rn.cancel()
	}
	return ok
}

func (r *runRegistry) abortAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rn := range r.runs {
		rn.cancel()
	}
}
