package domain

// Selection identifies the selected section and, optionally, node.
type Selection struct {
	SectionID string `json:"sectionId,omitempty"`
	NodeID    string `json:"nodeId,omitempty"`
}

// Clone returns a copy of s; nil stays nil.
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Equal compares two possibly nil selections.
func (s *Selection) Equal(o *Selection) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}
