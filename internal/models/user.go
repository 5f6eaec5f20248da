package models

import (
	"bytes"
	"encoding/json"
	"sort"

	"golang.org/x/text/cases"
)

// User represents a registered account. The JSON tags match the on-disk
// layout of the users file.
type User struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"password"`

	// Extra holds keys of a stored record that User has no field for, so
	// they survive a load and save.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownUserKeys = map[string]bool{
	"id": true, "firstname": true, "lastname": true,
	"email": true, "username": true, "password": true,
}

// UsernameKey returns the Unicode case fold of username. Two usernames
// are the same account when their keys are equal.
func UsernameKey(username string) string {
	return cases.Fold().String(username)
}

// UnmarshalJSON decodes a record and keeps unknown keys in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownUserKeys[k] {
			delete(raw, k)
		}
	}
	p.Extra = nil
	if len(raw) > 0 {
		p.Extra = raw
	}

	*u = User(p)
	return nil
}

// MarshalJSON encodes the known fields followed by Extra in key order.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	data, err := json.Marshal(plain(u))
	if err != nil || len(u.Extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(u.Extra))
	for k := range u.Extra {
		if !knownUserKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(u.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
