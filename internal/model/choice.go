package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ChoiceIndex is a choice position held in canonical decimal string form.
// Stored correct indices and submitted answers are both ChoiceIndex values,
// so 1, "1" and " 01 " denote the same choice and compare equal with ==.
type ChoiceIndex string

// NewChoiceIndex returns the canonical form of i.
func NewChoiceIndex(i int) ChoiceIndex {
	return ChoiceIndex(strconv.Itoa(i))
}

// ParseChoiceIndex canonicalizes s. Integer text is normalized; anything
// else is kept trimmed and will never equal a valid index.
func ParseChoiceIndex(s string) ChoiceIndex {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return NewChoiceIndex(n)
	}
	return ChoiceIndex(s)
}

// Int reports the integer value of c, if it has one.
func (c ChoiceIndex) Int() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Valid reports whether c addresses one of n choices.
func (c ChoiceIndex) Valid(n int) bool {
	i, ok := c.Int()
	return ok && i >= 0 && i < n
}

func (c ChoiceIndex) String() string { return string(c) }

// UnmarshalJSON accepts a JSON number or string.
func (c *ChoiceIndex) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ParseChoiceIndex(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f == float64(int(f)) {
		*c = NewChoiceIndex(int(f))
		return nil
	}
	*c = ChoiceIndex(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}
