// Package models defines the client-side data models exchanged with the
// Kefi authentication API.
package models

import "encoding/json"

// User is the authenticated account as returned by the profile endpoint.
// Optional profile fields are pointers: nil means "not set" or "cleared".
type User struct {
	ID               int64   `json:"id"`
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	FullName         string  `json:"full_name,omitempty"`
	BirthDate        string  `json:"birth_date,omitempty"`
	Gender           string  `json:"gender,omitempty"`
	IsStudent        bool    `json:"is_student"`
	ProfileCompleted bool    `json:"profile_completed"`
	Nickname         *string `json:"nickname"`
	Phone            *string `json:"phone"`
	Country          *string `json:"country"`
	State            *string `json:"state"`
	IsUniversity     bool    `json:"is_university"`
}

// UnmarshalJSON decodes over the receiver's current values, so keys absent
// from data keep what u already holds. The legacy is_profile_complete key
// is honoured when profile_completed is missing.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		ProfileCompleted  *bool `json:"profile_completed"`
		IsProfileComplete *bool `json:"is_profile_complete"`
	}{plain: (*plain)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.ProfileCompleted != nil:
		u.ProfileCompleted = *aux.ProfileCompleted
	case aux.IsProfileComplete != nil:
		u.ProfileCompleted = *aux.IsProfileComplete
	}
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Nickname = clonePtr(u.Nickname)
	c.Phone = clonePtr(u.Phone)
	c.Country = clonePtr(u.Country)
	c.State = clonePtr(u.State)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Tokens is the access/refresh pair issued by login, signup and refresh.
// Refresh may be empty on a refresh response without rotation.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResult is the payload of a successful login or signup.
type AuthResult struct {
	Tokens
	User *User `json:"user"`
}
