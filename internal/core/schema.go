package core

import (
	"fmt"
	"strings"
)

// FieldType tags how a form value is parsed and validated. The create and
// edit handlers walk the schema generically instead of sniffing column
// types from field names.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldAmount FieldType = "amount"
	FieldDate   FieldType = "date"
	FieldSelect FieldType = "select"
	FieldPhoto  FieldType = "photo"
)

// Field describes one editable attribute of a record kind.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Options  []string // for FieldSelect: allowed values
}

// ExpenseCategories and PaymentMethods are the fixed vocabularies used by
// the residence. "Other" doubles as the aggregation bucket for records
// that arrive without a category.
var (
	ExpenseCategories = []string{"Food", "Cleaning", "Maintenance", "Transport", "Equipment", "Other"}
	PaymentMethods    = []string{"Cash", "Credit Card", "Bank Transfer", "Other"}
)

var schemas = map[Kind][]Field{
	KindExpense: {
		{Name: "title", Label: "Title", Type: FieldText, Required: true},
		{Name: "amount", Label: "Amount", Type: FieldAmount, Required: true},
		{Name: "category", Label: "Category", Type: FieldSelect, Options: ExpenseCategories},
		{Name: "paymentMethod", Label: "Payment Method", Type: FieldSelect, Options: PaymentMethods},
		{Name: "date", Label: "Date", Type: FieldDate, Required: true},
		{Name: "notes", Label: "Notes", Type: FieldText},
		{Name: "photoUrl", Label: "Receipt Photo", Type: FieldPhoto},
	},
	KindRefund: {
		{Name: "title", Label: "Title", Type: FieldText, Required: true},
		{Name: "amount", Label: "Amount", Type: FieldAmount, Required: true},
		{Name: "category", Label: "Category", Type: FieldSelect, Options: ExpenseCategories},
		{Name: "paymentMethod", Label: "Payment Method", Type: FieldSelect, Options: PaymentMethods},
		{Name: "ownerName", Label: "Requested By", Type: FieldText, Required: true},
		{Name: "ownerRoom", Label: "Room", Type: FieldText},
		{Name: "date", Label: "Date", Type: FieldDate, Required: true},
		{Name: "notes", Label: "Notes", Type: FieldText},
		{Name: "photoUrl", Label: "Receipt Photo", Type: FieldPhoto},
	},
	KindProblem: {
		{Name: "title", Label: "Description", Type: FieldText, Required: true},
		{Name: "ownerName", Label: "Reported By", Type: FieldText, Required: true},
		{Name: "ownerRoom", Label: "Room", Type: FieldText},
		{Name: "date", Label: "Date", Type: FieldDate},
		{Name: "notes", Label: "Notes", Type: FieldText},
		{Name: "photoUrl", Label: "Photo", Type: FieldPhoto},
	},
}

// Schema returns the editable fields for a record kind, or nil for an
// unknown kind.
func Schema(k Kind) []Field {
	return schemas[k]
}

func (f Field) validate(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if f.Required {
			return fmt.Errorf("%w: %s", ErrMissingField, f.Name)
		}
		return nil
	}
	switch f.Type {
	case FieldAmount:
		if _, err := ParseDecimalToCents(value); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	case FieldDate:
		if _, err := ParseInstant(value); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	case FieldSelect:
		for _, opt := range f.Options {
			if value == opt {
				return nil
			}
		}
		return fmt.Errorf("field %s: %q is not one of %v", f.Name, value, f.Options)
	}
	return nil
}

// ApplyFields validates a map of submitted form values against the schema
// for the record's kind and writes them onto the record. Unknown field
// names are rejected; on create, all required fields must be present.
func ApplyFields(r *Record, values map[string]string, create bool) error {
	fields := Schema(r.Kind)
	if fields == nil {
		return ErrUnknownKind
	}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	for name := range values {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	if create {
		for _, f := range fields {
			if f.Required {
				if strings.TrimSpace(values[f.Name]) == "" {
					return fmt.Errorf("%w: %s", ErrMissingField, f.Name)
				}
			}
		}
	}

	for name, raw := range values {
		f := byName[name]
		if err := f.validate(raw); err != nil {
			return err
		}
		if err := setField(r, f, strings.TrimSpace(raw)); err != nil {
			return err
		}
	}
	return nil
}

func setField(r *Record, f Field, value string) error {
	switch f.Name {
	case "title":
		r.Title = value
	case "amount":
		cents, err := ParseDecimalToCents(value)
		if err != nil {
			return err
		}
		r.Amount = Money{Cents: cents}
	case "category":
		r.Category = value
	case "paymentMethod":
		r.PaymentMethod = value
	case "ownerName":
		r.OwnerName = value
	case "ownerRoom":
		r.OwnerRoom = value
	case "date":
		inst, err := ParseInstant(value)
		if err != nil {
			return err
		}
		r.Date = inst
	case "notes":
		r.Notes = value
	case "photoUrl":
		r.PhotoURL = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, f.Name)
	}
	return nil
}
