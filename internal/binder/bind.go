// Package binder reconciles a reflected record model with a live table schema
// into an ordered, validated binding plan.
package binder

import (
	"fmt"

	"dataflow/internal/bulkerr"
	"dataflow/internal/model"
	"dataflow/internal/schema"
	"dataflow/internal/wiretype"
)

// Binding pairs one table column with the record field that feeds it.
type Binding struct {
	Column   schema.Column
	Wire     wiretype.WireType // Unknown only for generated columns of unmapped types
	Field    model.Field
	Accessor model.Accessor
	Encode   wiretype.Encoder // nil only for generated columns whose type does not match
}

// Insertable reports whether the binding is written by COPY.
func (b *Binding) Insertable() bool { return !b.Column.Generated }

// Plan is the immutable result of Bind. Bindings follow table column order.
type Plan struct {
	Table      string
	Bindings   []Binding
	Insertable []string // column names, in binding order, excluding generated
	PrimaryKey int      // index into Bindings
}

// Bind validates m against t. Generated columns are identified solely by the
// table's generated flag, never by the primary-key name.
func Bind(m *model.Model, t *schema.Table) (*Plan, error) {
	byColumn := make(map[string]model.Field, len(m.Fields))
	for _, f := range m.Fields {
		byColumn[f.Column] = f
	}
	if len(byColumn) == 0 {
		return nil, &bulkerr.SchemaMismatchError{
			Table:   t.Name,
			Columns: len(t.Columns),
			Reason:  fmt.Sprintf("%s declares no mapped fields", m.Type),
		}
	}
	if len(byColumn) != len(t.Columns) {
		return nil, &bulkerr.SchemaMismatchError{
			Table:   t.Name,
			Fields:  len(byColumn),
			Columns: len(t.Columns),
			Reason:  "field count differs from column count",
		}
	}

	pkField, _ := m.Field(m.PrimaryKey)
	if pkField.Column != t.PrimaryKey {
		return nil, &bulkerr.SchemaMismatchError{
			Table:   t.Name,
			Fields:  len(byColumn),
			Columns: len(t.Columns),
			Reason: fmt.Sprintf("model primary key %s (column %q) differs from table primary key %q",
				pkField.Name, pkField.Column, t.PrimaryKey),
		}
	}

	plan := &Plan{
		Table:      t.Name,
		Bindings:   make([]Binding, 0, len(t.Columns)),
		Insertable: make([]string, 0, len(t.Columns)),
		PrimaryKey: -1,
	}
	for _, col := range t.Columns {
		f, ok := byColumn[col.Name]
		if !ok {
			return nil, &bulkerr.FieldNotFoundError{Table: t.Name, Column: col.Name}
		}
		b, err := bindColumn(col, f, m.Accessors[f.Name])
		if err != nil {
			return nil, err
		}
		if col.Name == t.PrimaryKey {
			plan.PrimaryKey = len(plan.Bindings)
		}
		if b.Insertable() {
			plan.Insertable = append(plan.Insertable, col.Name)
		}
		plan.Bindings = append(plan.Bindings, b)
	}

	if len(plan.Insertable) == 0 {
		return nil, &bulkerr.NoColumnsError{Table: t.Name}
	}
	return plan, nil
}

func bindColumn(col schema.Column, f model.Field, acc model.Accessor) (Binding, error) {
	b := Binding{Column: col, Field: f, Accessor: acc}

	w, err := wiretype.FromOID(col.OID)
	if err != nil {
		if col.Generated {
			// Never encoded; only the zero-value check is needed.
			return b, nil
		}
		return Binding{}, &bulkerr.UnsupportedTypeError{
			WireType: fmt.Sprintf("%s (oid %d) of column %s", col.TypeName, col.OID, col.Name),
		}
	}
	b.Wire = w

	ok, err := wiretype.Accepts(f.Underlying, w)
	if err != nil {
		return Binding{}, err
	}
	if !ok {
		if col.Generated {
			// Not written on insert, so the types need not agree.
			return b, nil
		}
		accepted, _ := wiretype.AcceptableWireTypes(f.Underlying)
		tm := &bulkerr.TypeMismatchError{
			Field:    f.Name,
			HostType: f.HostType.String(),
			Column:   col.Name,
			WireType: w.String(),
			Accepted: wiretype.Names(accepted),
		}
		if rep, err := wiretype.RepresentativeHostType(w); err == nil {
			tm.Expects = rep.String()
		}
		return Binding{}, tm
	}

	enc, err := wiretype.EncoderFor(w)
	if err != nil {
		return Binding{}, err
	}
	b.Encode = enc
	return b, nil
}

// ColumnIndex returns the binding index of column name, or -1.
func (p *Plan) ColumnIndex(name string) int {
	for i := range p.Bindings {
		if p.Bindings[i].Column.Name == name {
			return i
		}
	}
	return -1
}

// Key returns the primary-key binding.
func (p *Plan) Key() *Binding { return &p.Bindings[p.PrimaryKey] }
