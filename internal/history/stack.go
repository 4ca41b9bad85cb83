package history

// DefaultLimit bounds the undo stack when no limit is configured.
const DefaultLimit = 100

// Stack is a bounded undo/redo log. It is not safe for concurrent use;
// the editor serializes access.
type Stack struct {
	limit     int
	undo      []Action
	redo      []Action
	applying  bool
	suspended int
}

func New(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Stack{limit: limit}
}

// Push records a. It returns false, recording nothing, while an undo or
// redo is being applied or inside WithoutHistory. The oldest entry is
// dropped once the stack is full.
func (s *Stack) Push(a Action) bool {
	if a == nil || s.applying || s.suspended > 0 {
		return false
	}
	s.undo = append(s.undo, a)
	if len(s.undo) > s.limit {
		s.undo[0] = nil
		s.undo = s.undo[1:]
	}
	clear(s.redo)
	s.redo = s.redo[:0]
	return true
}

// Undo applies the top entry's previous state. On failure the entry stays
// where it was. A nil action means there was nothing to undo.
func (s *Stack) Undo(t Target) (Action, error) {
	return s.step(t, &s.undo, &s.redo, Action.Undo)
}

// Redo is the mirror of Undo.
func (s *Stack) Redo(t Target) (Action, error) {
	return s.step(t, &s.redo, &s.undo, Action.Redo)
}

func (s *Stack) step(t Target, from, to *[]Action, apply func(Action, Target) error) (Action, error) {
	if len(*from) == 0 || s.applying {
		return nil, nil
	}
	a := (*from)[len(*from)-1]
	s.applying = true
	err := apply(a, t)
	s.applying = false
	if err != nil {
		return a, err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, a)
	return a, nil
}

// WithoutHistory runs fn with recording suspended.
func (s *Stack) WithoutHistory(fn func() error) error {
	s.suspended++
	defer func() { s.suspended-- }()
	return fn()
}

// Applying reports whether an undo or redo is in progress.
func (s *Stack) Applying() bool { return s.applying }

// Recording reports whether Push would record right now.
func (s *Stack) Recording() bool { return !s.applying && s.suspended == 0 }

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (s *Stack) Len() (undo, redo int) { return len(s.undo), len(s.redo) }

// Clear drops all entries.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}

// Labels lists entry labels, most recent first.
func (s *Stack) Labels() (undo, redo []string) {
	for i := len(s.undo) - 1; i >= 0; i-- {
		undo = append(undo, s.undo[i].Label())
	}
	for i := len(s.redo) - 1; i >= 0; i-- {
		redo = append(redo, s.redo[i].Label())
	}
	return undo, redo
}
