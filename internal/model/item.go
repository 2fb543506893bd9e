package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Item is a persisted shopping-list entry. GroupID never changes after creation.
type Item struct {
	ID        string
	GroupID   string
	Name      string
	Quantity  *int
	Checked   bool
	AddedByID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemView is the wire representation of an item, enriched with the
// creator's display name.
type ItemView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Quantity    *int      `json:"quantity,omitempty"`
	Checked     bool      `json:"checked"`
	AddedByID   string    `json:"addedById"`
	AddedByName string    `json:"addedByName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OptionalInt distinguishes an absent JSON field from an explicit null.
// Set is true whenever the key was present; Value is nil for null.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

// Clear returns an OptionalInt that explicitly unsets the value.
func Clear() OptionalInt {
	return OptionalInt{Set: true}
}

// Some returns an OptionalInt holding n.
func Some(n int) OptionalInt {
	return OptionalInt{Set: true, Value: &n}
}

// ItemPatch is a partial update. Nil pointers and an unset Quantity leave the
// stored value untouched.
type ItemPatch struct {
	Name     *string     `json:"name"`
	Quantity OptionalInt `json:"quantity"`
	Checked  *bool       `json:"checked"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && !p.Quantity.Set && p.Checked == nil
}

// OnlyChecked reports whether the patch touches the checked flag and nothing else.
func (p ItemPatch) OnlyChecked() bool {
	return p.Checked != nil && p.Name == nil && !p.Quantity.Set
}

// MarshalJSON emits only the fields the patch sets, writing null for a
// cleared quantity.
func (p ItemPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3)
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Quantity.Set {
		m["quantity"] = p.Quantity.Value
	}
	if p.Checked != nil {
		m["checked"] = *p.Checked
	}
	return json.Marshal(m)
}

// GroupSummary holds aggregate counts recomputed from a group's items.
type GroupSummary struct {
	GroupID      string `json:"groupId"`
	ItemCount    int    `json:"itemCount"`
	CheckedCount int    `json:"checkedCount"`
}
