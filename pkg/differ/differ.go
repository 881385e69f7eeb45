// Package differ compares normalized court records and plans the legacy
// writes needed to bring one in line with the other.
//
// Compare produces a field-level structural diff used for reporting and
// change classification. Plan resolves the nested address and phone
// operations that the sync orchestrator applies.
package differ

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
)

// Class is the outcome of reconciling one court.
type Class string

const (
	// ClassNone means both sides already match.
	ClassNone Class = "NONE"
	// ClassInsert means the court is new to the legacy system.
	ClassInsert Class = "INSERT"
	// ClassUpdate means an existing legacy court differs.
	ClassUpdate Class = "UPDATE"
	// ClassError means applying the changes failed.
	ClassError Class = "ERROR"
)

// ChangeType represents the type of change to a single field.
type ChangeType string

const (
	// ChangeTypeAdd indicates a field present only on the right.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a field present on both sides with different values.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a field present only on the left.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to one top-level field of a court.
type FieldChange struct {
	Path     string     // serialized field name, e.g. "addresses"
	OldValue string     // rendered left value, empty for adds
	NewValue string     // rendered right value, empty for removes
	Type     ChangeType // add, update or remove
}

// Diff is a structural difference between two court records. The left side
// is the legacy record and the right side the incoming one.
type Diff struct {
	Changes []FieldChange
	Common  []string
}

// Result pairs a diff with its classification.
type Result struct {
	Diff  Diff
	Class Class
}

// Compare diffs the legacy record old (nil when the court is unknown to the
// legacy system) against the incoming record.
func Compare(old *courts.Court, incoming courts.Court) Result {
	d := diffFields(fields(old), fields(&incoming))

	class := ClassUpdate
	switch {
	case d.Equal():
		class = ClassNone
	case old == nil:
		class = ClassInsert
	}
	return Result{Diff: d, Class: class}
}

// Equal reports whether the compared records were identical.
func (d Diff) Equal() bool {
	return len(d.Changes) == 0
}

// OnlyOnLeft returns the fields present only on the legacy side.
func (d Diff) OnlyOnLeft() []FieldChange {
	return d.filter(ChangeTypeRemove)
}

// OnlyOnRight returns the fields present only on the incoming side.
func (d Diff) OnlyOnRight() []FieldChange {
	return d.filter(ChangeTypeAdd)
}

// Differing returns the fields present on both sides with different values.
func (d Diff) Differing() []FieldChange {
	return d.filter(ChangeTypeUpdate)
}

func (d Diff) filter(t ChangeType) []FieldChange {
	var out []FieldChange
	for _, c := range d.Changes {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// String renders the diff the way it is reported in statistics and events:
//
//	not equal: only on left={k=v}: only on right={k=v}: value differences={k=(left, right)}
//
// Empty sections are left out; identical records render as "equal".
func (d Diff) String() string {
	if d.Equal() {
		return "equal"
	}

	var b strings.Builder
	b.WriteString("not equal")
	if left := d.OnlyOnLeft(); len(left) > 0 {
		b.WriteString(": only on left=")
		writeEntries(&b, left, func(c FieldChange) string { return c.OldValue })
	}
	if right := d.OnlyOnRight(); len(right) > 0 {
		b.WriteString(": only on right=")
		writeEntries(&b, right, func(c FieldChange) string { return c.NewValue })
	}
	if differing := d.Differing(); len(differing) > 0 {
		b.WriteString(": value differences=")
		writeEntries(&b, differing, func(c FieldChange) string {
			return "(" + c.OldValue + ", " + c.NewValue + ")"
		})
	}
	return b.String()
}

func writeEntries(b *strings.Builder, changes []FieldChange, value func(FieldChange) string) {
	b.WriteByte('{')
	for i, c := range changes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Path)
		b.WriteByte('=')
		b.WriteString(value(c))
	}
	b.WriteByte('}')
}

// field is one rendered top-level value of a record.
type field struct {
	key   string
	value string
}

// fields renders the present fields of a court in serialization order.
// Absent values are omitted, and a nil court has no fields at all.
func fields(c *courts.Court) []field {
	if c == nil {
		return nil
	}
	var out []field
	add := func(key, value string) {
		if value != "" {
			out = append(out, field{key, value})
		}
	}
	add("courtId", c.CourtID)
	add("description", c.Description)
	add("longDescription", c.LongDescription)
	add("active", strconv.FormatBool(c.Active))
	add("courtType", c.Type)
	if c.DeactivationDate != nil {
		add("deactivationDate", c.DeactivationDate.String())
	}
	if len(c.Addresses) > 0 {
		add("addresses", renderAddresses(c.Addresses))
	}
	return out
}

func diffFields(left, right []field) Diff {
	var d Diff
	rightValues := make(map[string]string, len(right))
	for _, f := range right {
		rightValues[f.key] = f.value
	}
	leftKeys := make(map[string]bool, len(left))

	for _, l := range left {
		leftKeys[l.key] = true
		r, ok := rightValues[l.key]
		switch {
		case !ok:
			d.Changes = append(d.Changes, FieldChange{Path: l.key, OldValue: l.value, Type: ChangeTypeRemove})
		case r != l.value:
			d.Changes = append(d.Changes, FieldChange{Path: l.key, OldValue: l.value, NewValue: r, Type: ChangeTypeUpdate})
		default:
			d.Common = append(d.Common, l.key)
		}
	}
	for _, r := range right {
		if !leftKeys[r.key] {
			d.Changes = append(d.Changes, FieldChange{Path: r.key, NewValue: r.value, Type: ChangeTypeAdd})
		}
	}
	return d
}

// renderAddresses renders addresses as an order-insensitive list. Addresses
// are sorted canonically, with the rendered text breaking ties.
func renderAddresses(addresses []courts.Address) string {
	type rendered struct {
		address courts.Address
		text    string
	}
	items := make([]rendered, len(addresses))
	for i, a := range addresses {
		items[i] = rendered{a, renderAddress(a)}
	}
	slices.SortFunc(items, func(a, b rendered) int {
		return cmp.Or(courts.CompareAddresses(a.address, b.address), cmp.Compare(a.text, b.text))
	})

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.text
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderAddress(a courts.Address) string {
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	if a.ID != nil {
		add("addressId", strconv.FormatInt(*a.ID, 10))
	}
	add("addressType", renderCode(a.Type))
	add("premise", a.Premise)
	add("street", a.Street)
	add("locality", a.Locality)
	add("town", renderCode(a.Town))
	add("postalCode", a.PostalCode)
	add("county", renderCode(a.County))
	add("country", renderCode(a.Country))
	add("primary", strconv.FormatBool(a.Primary))
	add("noFixedAddress", strconv.FormatBool(a.NoFixedAddress))
	if a.StartDate != nil {
		add("startDate", a.StartDate.String())
	}
	if a.EndDate != nil {
		add("endDate", a.EndDate.String())
	}
	add("comment", a.Comment)
	if len(a.Phones) > 0 {
		add("phones", renderPhones(a.Phones))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func renderPhones(phones []courts.Phone) string {
	sorted := slices.Clone(phones)
	slices.SortFunc(sorted, func(a, b courts.Phone) int {
		return cmp.Or(courts.ComparePhones(a, b), cmp.Compare(ptr.Value(a.ID), ptr.Value(b.ID)))
	})
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		kv := make([]string, 0, 4)
		if p.ID != nil {
			kv = append(kv, "phoneId="+strconv.FormatInt(*p.ID, 10))
		}
		kv = append(kv, "number="+p.Number, "type="+p.Type)
		if p.Ext != "" {
			kv = append(kv, "ext="+p.Ext)
		}
		parts[i] = "{" + strings.Join(kv, ", ") + "}"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// renderCode renders the fields that take part in reference code equality.
func renderCode(r *courts.ReferenceCode) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("{domain=%s, code=%s, description=%s}", r.Domain, r.Code, r.Description)
}
