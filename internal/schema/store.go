package schema

import "fmt"

// Store is the name-keyed registry of declared schemas.
type Store struct {
	schemas map[string]*Schema
	order   []string
}

func NewStore() *Store {
	return &Store{schemas: make(map[string]*Schema)}
}

func (st *Store) Add(s *Schema) error {
	if _, ok := st.schemas[s.Name()]; ok {
		return fmt.Errorf("%s: %w", s.Name(), ErrDuplicateSchema)
	}
	st.schemas[s.Name()] = s
	st.order = append(st.order, s.Name())
	return nil
}

func (st *Store) Get(name string) (*Schema, bool) {
	s, ok := st.schemas[name]
	return s, ok
}

// Lookup is Get for callers that treat a missing schema as an error.
func (st *Store) Lookup(name string) (*Schema, error) {
	s, ok := st.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSchema)
	}
	return s, nil
}

// Names lists registered schemas in registration order.
func (st *Store) Names() []string {
	return append([]string(nil), st.order...)
}
