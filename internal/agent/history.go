package agent

import "time"

// EntryKind tags the variants of Entry.
type EntryKind string

const (
	EntryKindPlan    EntryKind = "plan"
	EntryKindResult  EntryKind = "result"
	EntryKindFailure EntryKind = "failure"
	EntryKindVerdict EntryKind = "verdict"
)

// EntryMeta positions an entry in the run: its 1-based ordinal in the history, the
// iteration it belongs to and when it was recorded.
type EntryMeta struct {
	Ordinal   int       `json:"ordinal"`
	Iteration int       `json:"iteration"`
	At        time.Time `json:"at"`
}

// Meta returns the entry metadata.
func (m EntryMeta) Meta() EntryMeta { return m }

// Entry is one history record: PlanRecord, Result, Failure or Verdict.
type Entry interface {
	Kind() EntryKind
	Meta() EntryMeta
	cloneEntry() Entry
}

// PlanRecord captures the plan produced for an iteration.
type PlanRecord struct {
	EntryMeta
	Steps Plan `json:"steps"`
}

func (PlanRecord) Kind() EntryKind { return EntryKindPlan }

func (p PlanRecord) cloneEntry() Entry {
	p.Steps = p.Steps.Clone()
	return p
}

// Result is a successfully executed step.
type Result struct {
	EntryMeta
	Step   Step `json:"step"`
	Output any  `json:"output"`
}

func (Result) Kind() EntryKind { return EntryKindResult }

func (r Result) cloneEntry() Entry {
	r.Step = r.Step.Clone()
	r.Output = cloneValue(r.Output)
	return r
}

// Failure is a step that did not succeed.
type Failure struct {
	EntryMeta
	Step    Step          `json:"step"`
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message,omitempty"`
}

func (Failure) Kind() EntryKind { return EntryKindFailure }

func (f Failure) cloneEntry() Entry {
	f.Step = f.Step.Clone()
	return f
}

// Verdict is the evaluator's judgement after an iteration.
type Verdict struct {
	EntryMeta
	Decision      Decision `json:"decision"`
	Justification string   `json:"justification,omitempty"`
}

func (Verdict) Kind() EntryKind { return EntryKindVerdict }

func (v Verdict) cloneEntry() Entry { return v }

// History is the append-only record of a run. It is owned by a single run and is not safe
// for concurrent use.
type History struct {
	entries []Entry
}

func NewHistory() *History {
	return &History{entries: make([]Entry, 0)}
}

// Append stores a copy of entry at the end of the log.
func (h *History) Append(entry Entry) {
	if entry == nil {
		return
	}
	h.entries = append(h.entries, entry.cloneEntry())
}

// Snapshot returns copies of all entries in append order.
func (h *History) Snapshot() []Entry {
	return CloneEntries(h.entries)
}

// Len returns the number of appended entries.
func (h *History) Len() int {
	return len(h.entries)
}

// CloneEntries returns deep copies of entries.
func CloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i := range in {
		out[i] = in[i].cloneEntry()
	}
	return out
}
