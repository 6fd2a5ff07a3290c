package props

import (
	"fmt"
	"strconv"
)

// Field is one editable property of a node.
type Field struct {
	Name  string // stable key passed back to ApplyField
	Label string
	Value Value
}

// Editor is the frontend description of a property widget.
type Editor struct {
	Field   string   `json:"field"`
	Label   string   `json:"label"`
	Widget  string   `json:"widget"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Index   int      `json:"index,omitempty"`
}

// Builder turns a field into an editor.
type Builder func(f Field) (Editor, error)

// builders is the one place that maps a value kind to its editor.
var builders = map[Kind]Builder{
	KindNumber:        numberEditor,
	KindVector:        vectorEditor,
	KindString:        stringEditor,
	KindChildSelector: selectorEditor,
}

// BuildEditor dispatches on the field's kind.
func BuildEditor(f Field) (Editor, error) {
	if f.Value == nil {
		return Editor{}, fmt.Errorf("props: field %q has no value", f.Name)
	}
	b, ok := builders[f.Value.Kind()]
	if !ok {
		return Editor{}, fmt.Errorf("props: field %q: no editor for %s", f.Name, f.Value.Kind())
	}
	return b(f)
}

// BuildEditors builds one editor per field, in order.
func BuildEditors(fields []Field) ([]Editor, error) {
	out := make([]Editor, 0, len(fields))
	for _, f := range fields {
		e, err := BuildEditor(f)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func numberEditor(f Field) (Editor, error) {
	v := f.Value.(Number)
	text := v.Expr
	if text == "" {
		text = formatFloat(v.V)
	}
	return Editor{Field: f.Name, Label: f.Label, Widget: "number", Text: text}, nil
}

func vectorEditor(f Field) (Editor, error) {
	v := f.Value.(Vector)
	text := v.Expr
	if text == "" {
		text = formatFloat(v.V[0]) + ", " + formatFloat(v.V[1]) + ", " + formatFloat(v.V[2])
	}
	return Editor{Field: f.Name, Label: f.Label, Widget: "vector", Text: text}, nil
}

func stringEditor(f Field) (Editor, error) {
	return Editor{Field: f.Name, Label: f.Label, Widget: "text", Text: f.Value.(Text).S}, nil
}

func selectorEditor(f Field) (Editor, error) {
	v := f.Value.(Choice)
	if len(v.Options) == 0 {
		return Editor{}, fmt.Errorf("props: selector %q has no options", f.Name)
	}
	return Editor{
		Field:   f.Name,
		Label:   f.Label,
		Widget:  "select",
		Text:    v.Selected(),
		Options: v.Options,
		Index:   v.Index,
	}, nil
}
