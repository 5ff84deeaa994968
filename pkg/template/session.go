// session.go — Interactive template editing with drag coalescing.
//
// Editors mutate the template continuously while a field is dragged.
// Listeners (autosave, preview refresh) only hear about settled states.
package template

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFieldNotFound  = errors.New("field not found")
	ErrFieldExists    = errors.New("field already exists")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrDragInProgress = errors.New("drag already in progress")
)

// SessionState is Idle or Dragging.
type SessionState int

const (
	Idle SessionState = iota
	Dragging
)

func (s SessionState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// EditSession owns a template being edited. OnChange receives a private
// copy of the template after every mutation made while Idle, and once at
// the end of a drag for all mutations made during it. It is called
// without the session lock held.
type EditSession struct {
	mu       sync.Mutex
	tpl      *Template
	state    SessionState
	dragging string
	dirty    bool
	onChange func(*Template)
}

// NewEditSession starts a session over a copy of t.
func NewEditSession(t *Template, onChange func(*Template)) *EditSession {
	if t == nil {
		t = &Template{Pages: [][]Field{nil}}
	}
	return &EditSession{tpl: t.Clone(), onChange: onChange}
}

// State reports the current session state and the dragged field, if any.
func (s *EditSession) State() (SessionState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.dragging
}

// Snapshot returns a copy of the current template.
func (s *EditSession) Snapshot() *Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tpl.Clone()
}

// Replace swaps in a whole template, e.g. after loading or uploading a new
// base document. It is rejected mid-drag.
func (s *EditSession) Replace(t *Template) error {
	return s.mutate(func() error {
		if s.state == Dragging {
			return ErrDragInProgress
		}
		s.tpl = t.Clone()
		s.dirty = true
		if len(s.tpl.Pages) == 0 {
			s.tpl.Pages = [][]Field{nil}
		}
		return nil
	})
}

// Add appends a field to its page, creating pages as needed.
func (s *EditSession) Add(f Field) error {
	if err := completeField(&f); err != nil {
		return err
	}
	return s.mutate(func() error {
		if _, _, ok := s.find(f.Name); ok {
			return fmt.Errorf("add %q: %w", f.Name, ErrFieldExists)
		}
		s.insert(f)
		return nil
	})
}

// Update applies fn to a copy of the named field and stores the result.
// Renaming onto an existing name and clearing the type are rejected.
func (s *EditSession) Update(name string, fn func(*Field)) error {
	return s.mutate(func() error {
		p, i, ok := s.find(name)
		if !ok {
			return fmt.Errorf("update %q: %w", name, ErrFieldNotFound)
		}
		f := s.tpl.Pages[p][i]
		fn(&f)
		if err := completeField(&f); err != nil {
			return err
		}
		if f.Name != name {
			if _, _, taken := s.find(f.Name); taken {
				return fmt.Errorf("rename %q to %q: %w", name, f.Name, ErrFieldExists)
			}
			if s.dragging == name {
				s.dragging = f.Name
			}
		}
		if f.Page == p+1 {
			s.tpl.Pages[p][i] = f
			return nil
		}
		s.removeAt(p, i)
		s.insert(f)
		return nil
	})
}

// Remove deletes the named field.
func (s *EditSession) Remove(name string) error {
	return s.mutate(func() error {
		p, i, ok := s.find(name)
		if !ok {
			return fmt.Errorf("remove %q: %w", name, ErrFieldNotFound)
		}
		if s.dragging == name {
			return fmt.Errorf("remove %q: %w", name, ErrDragInProgress)
		}
		s.removeAt(p, i)
		return nil
	})
}

// BeginDrag enters Dragging for the named field.
func (s *EditSession) BeginDrag(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Dragging {
		return fmt.Errorf("begin drag %q: %w", name, ErrDragInProgress)
	}
	if _, _, ok := s.find(name); !ok {
		return fmt.Errorf("begin drag %q: %w", name, ErrFieldNotFound)
	}
	s.state = Dragging
	s.dragging = name
	return nil
}

// DragTo moves the dragged field. Only the field named in BeginDrag can be
// moved this way.
func (s *EditSession) DragTo(name string, pos Position) error {
	return s.mutate(func() error {
		if s.state != Dragging || s.dragging != name {
			return fmt.Errorf("drag %q: %w", name, ErrNotDragging)
		}
		p, i, _ := s.find(name)
		s.tpl.Pages[p][i].Position = pos
		return nil
	})
}

// EndDrag returns to Idle and emits one notification if anything changed
// during the drag.
func (s *EditSession) EndDrag() error {
	return s.mutate(func() error {
		if s.state != Dragging {
			return ErrNotDragging
		}
		s.state = Idle
		s.dragging = ""
		return nil
	})
}

// mutate runs fn under the lock and notifies outside it. A failing fn
// leaves the template untouched and notifies nobody.
func (s *EditSession) mutate(fn func() error) error {
	s.mu.Lock()
	prev := s.tpl.Clone()
	if err := fn(); err != nil {
		s.tpl = prev
		s.mu.Unlock()
		return err
	}
	s.dirty = s.dirty || !sameTemplate(prev, s.tpl)
	var snap *Template
	if s.state == Idle && s.dirty {
		s.dirty = false
		snap = s.tpl.Clone()
	}
	cb := s.onChange
	s.mu.Unlock()

	if snap != nil && cb != nil {
		cb(snap)
	}
	return nil
}

func (s *EditSession) find(name string) (page, idx int, ok bool) {
	for p, fields := range s.tpl.Pages {
		for i, f := range fields {
			if f.Name == name {
				return p, i, true
			}
		}
	}
	return 0, 0, false
}

func (s *EditSession) insert(f Field) {
	for len(s.tpl.Pages) < f.Page {
		s.tpl.Pages = append(s.tpl.Pages, nil)
	}
	s.tpl.Pages[f.Page-1] = append(s.tpl.Pages[f.Page-1], f)
}

func (s *EditSession) removeAt(p, i int) {
	page := s.tpl.Pages[p]
	s.tpl.Pages[p] = append(page[:i:i], page[i+1:]...)
}

// completeField fills in the style variant and defaults of a field built
// outside the JSON decoder.
func completeField(f *Field) error {
	if f.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformedField)
	}
	if f.Style == nil {
		switch f.Type {
		case TypeText:
			f.Style = defaultTextStyle()
		case TypeImage:
			f.Style = ImageStyle{}
		case TypeQRCode:
			f.Style = QRStyle{}
		default:
			return fmt.Errorf("%w: unknown type %q", ErrMalformedField, f.Type)
		}
	}
	if f.Style.fieldType() != f.Type {
		return fmt.Errorf("%w: %s style on %s field", ErrMalformedField, f.Style.fieldType(), f.Type)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	applyFieldDefaults(f)
	return nil
}

// sameTemplate compares field layouts. Base document changes only happen
// through Replace, which marks the session dirty itself.
func sameTemplate(a, b *Template) bool {
	if len(a.Pages) != len(b.Pages) {
		return false
	}
	for p := range a.Pages {
		if len(a.Pages[p]) != len(b.Pages[p]) {
			return false
		}
		for i := range a.Pages[p] {
			if a.Pages[p][i] != b.Pages[p][i] {
				return false
			}
		}
	}
	return true
}
