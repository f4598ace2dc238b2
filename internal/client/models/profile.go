package models

import "encoding/json"

// Patch is a tri-state field of a partial update. The zero value skips
// the field; Set sends a value; Clear sends an explicit null.
type Patch[T any] struct {
	set   bool
	value *T
}

func Set[T any](v T) Patch[T] { return Patch[T]{set: true, value: &v} }

func Clear[T any]() Patch[T] { return Patch[T]{set: true} }

// IsSet reports whether the field takes part in the update.
func (p Patch[T]) IsSet() bool { return p.set }

// IsClear reports whether the field is sent as null.
func (p Patch[T]) IsClear() bool { return p.set && p.value == nil }

// Value returns the value to send, ok is false for skipped or cleared fields.
func (p Patch[T]) Value() (v T, ok bool) {
	if p.value == nil {
		return v, false
	}
	return *p.value, true
}

func (p Patch[T]) wireValue() (any, bool) {
	if p.value == nil {
		return nil, p.set
	}
	return *p.value, p.set
}

type patchField interface {
	wireValue() (any, bool)
}

// ProfileUpdate is the body of PATCH profile/.
type ProfileUpdate struct {
	Nickname     Patch[string]
	Phone        Patch[string]
	Country      Patch[string]
	State        Patch[string]
	IsUniversity Patch[bool]
}

func (p ProfileUpdate) fields() map[string]patchField {
	return map[string]patchField{
		"nickname":      p.Nickname,
		"phone":         p.Phone,
		"country":       p.Country,
		"state":         p.State,
		"is_university": p.IsUniversity,
	}
}

// IsEmpty reports whether no field is touched.
func (p ProfileUpdate) IsEmpty() bool {
	for _, f := range p.fields() {
		if _, ok := f.wireValue(); ok {
			return false
		}
	}
	return true
}

// MarshalJSON emits only touched keys; cleared fields become null.
func (p ProfileUpdate) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	for k, f := range p.fields() {
		if v, ok := f.wireValue(); ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// ApplyTo writes the touched fields into u.
func (p ProfileUpdate) ApplyTo(u *User) {
	applyString(p.Nickname, &u.Nickname)
	applyString(p.Phone, &u.Phone)
	applyString(p.Country, &u.Country)
	applyString(p.State, &u.State)
	if p.IsUniversity.IsSet() {
		v, _ := p.IsUniversity.Value()
		u.IsUniversity = v
	}
}

func applyString(p Patch[string], dst **string) {
	if !p.IsSet() {
		return
	}
	if v, ok := p.Value(); ok {
		*dst = &v
		return
	}
	*dst = nil
}
