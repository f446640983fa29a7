package schema

import (
	"reflect"
)

// Rel is the cardinality kind of a relation.
type Rel int

// Relation kinds.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one.
	O2M            // One to many.
	M2O            // Many to one (inverse perspective for O2M).
	M2M            // Many to many, through a join table.
)

// String returns the relation kind name.
func (r Rel) String() string {
	s := "Unknown"
	switch r {
	case O2O:
		s = "O2O"
	case O2M:
		s = "O2M"
	case M2O:
		s = "M2O"
	case M2M:
		s = "M2M"
	}
	return s
}

// Relation describes a named link from an owning entity to a target entity.
//
// The meaning of Columns depends on the kind:
//
//	M2O, O2O      foreign-key columns in the owner's table, referencing the target key
//	O2O (inverse) foreign-key columns in the target's table, referencing the owner key
//	O2M           foreign-key columns in the target's table, referencing the owner key
//	M2M           join-table columns referencing the target key
//
// For M2M, SourceColumns are the join-table columns referencing the owner key.
type Relation struct {
	Name          string
	Rel           Rel
	Inverse       bool
	Columns       []string
	Table         string
	SourceColumns []string

	owner  *Entity
	target *Entity
	field  string
	typ    reflect.Type // target struct type
	index  []int
}

// Owner returns the entity that declares the relation.
func (r *Relation) Owner() *Entity { return r.owner }

// Target returns the entity at the other end of the relation.
func (r *Relation) Target() *Entity { return r.target }

// Field returns the name of the struct field holding the relation.
func (r *Relation) Field() string { return r.field }

// OwnFK reports whether the foreign key resides in the owner's table.
func (r *Relation) OwnFK() bool {
	switch {
	case r.Rel == M2O:
		return true
	case r.Rel == O2O && !r.Inverse:
		return true
	}
	return false
}

// Many reports whether the relation field holds a collection.
func (r *Relation) Many() bool {
	return r.Rel == O2M || r.Rel == M2M
}

// Get returns the relation field of obj. obj must be an addressable struct
// value of the owner type.
func (r *Relation) Get(obj reflect.Value) reflect.Value {
	return obj.FieldByIndex(r.index)
}

// Set assigns child (a pointer to a target struct) to a single-valued relation.
func (r *Relation) Set(obj, child reflect.Value) {
	obj.FieldByIndex(r.index).Set(child)
}

// Append adds child (a pointer to a target struct) to a collection relation.
func (r *Relation) Append(obj, child reflect.Value) {
	f := obj.FieldByIndex(r.index)
	f.Set(reflect.Append(f, child))
}

// Linked returns the non-nil target pointers currently referenced by obj
// through this relation.
func (r *Relation) Linked(obj reflect.Value) []reflect.Value {
	f := obj.FieldByIndex(r.index)
	if !r.Many() {
		if f.IsNil() {
			return nil
		}
		return []reflect.Value{f}
	}
	linked := make([]reflect.Value, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if e := f.Index(i); !e.IsNil() {
			linked = append(linked, e)
		}
	}
	return linked
}

// ReferencedKeys returns the key columns the foreign-key columns point at.
// For M2M relations these are the target keys referenced by Columns.
func (r *Relation) ReferencedKeys() []string {
	if r.OwnFK() || r.Rel == M2M {
		return r.target.KeyNames()
	}
	return r.owner.KeyNames()
}
