package llm

import (
	"sort"
	"strings"
)

// partialToolCall accumulates the fragments observed for one index.
type partialToolCall struct {
	index int
	id    string
	typ   string
	name  string
	args  strings.Builder
}

// ToolCallAssembler reassembles tool calls that arrive fragmented across
// stream chunks. Fragments are keyed by index; scalar fields (id, type,
// name) are first-write, arguments deltas are appended in arrival order.
// Field ordering within an index is not assumed: a name may arrive after
// several arguments fragments, or the other way round.
type ToolCallAssembler struct {
	partials map[int]*partialToolCall
}

// NewToolCallAssembler returns an empty assembler.
func NewToolCallAssembler() *ToolCallAssembler {
	return &ToolCallAssembler{partials: make(map[int]*partialToolCall)}
}

// Add merges one fragment into the partial call for its index.
func (a *ToolCallAssembler) Add(frag ToolCallFragment) {
	partial, ok := a.partials[frag.Index]
	if !ok {
		partial = &partialToolCall{index: frag.Index}
		a.partials[frag.Index] = partial
	}
	if partial.id == "" && frag.ID != "" {
		partial.id = frag.ID
	}
	if partial.typ == "" && frag.Type != "" {
		partial.typ = frag.Type
	}
	if partial.name == "" && frag.Name != "" {
		partial.name = frag.Name
	}
	if frag.ArgumentsDelta != "" {
		partial.args.WriteString(frag.ArgumentsDelta)
	}
}

// Empty reports whether no fragments have been observed yet.
func (a *ToolCallAssembler) Empty() bool {
	return len(a.partials) == 0
}

// Finalize returns the assembled tool calls in index order. It is called
// once the provider has signaled done; partials are complete at that point.
func (a *ToolCallAssembler) Finalize() []ToolCall {
	if len(a.partials) == 0 {
		return nil
	}

	indexes := make([]int, 0, len(a.partials))
	for idx := range a.partials {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		partial := a.partials[idx]
		calls = append(calls, ToolCall{
			ID:   partial.id,
			Type: partial.typ,
			Function: ToolCallFunction{
				Name:      partial.name,
				Arguments: partial.args.String(),
			},
		})
	}
	return calls
}
