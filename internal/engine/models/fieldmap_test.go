package models

import "testing"

func TestSelectorSpec_Validate(t *testing.T) {
	tests := []struct {
		name      string
		sel       SelectorSpec
		wantValid bool
	}{
		{
			name:      "valid text selector",
			sel:       SelectorSpec{Language: SelectorCSS, Expression: ".title", Mode: SelectorModeText},
			wantValid: true,
		},
		{
			name:      "valid attribute selector",
			sel:       SelectorSpec{Language: SelectorXPath, Expression: "//a", Mode: SelectorModeAttribute, Attribute: "href"},
			wantValid: true,
		},
		{
			name:      "empty expression rejected",
			sel:       SelectorSpec{Language: SelectorCSS, Mode: SelectorModeText},
			wantValid: false,
		},
		{
			name:      "invalid language rejected",
			sel:       SelectorSpec{Language: "regex", Expression: ".title", Mode: SelectorModeText},
			wantValid: false,
		},
		{
			name:      "invalid mode rejected",
			sel:       SelectorSpec{Language: SelectorCSS, Expression: ".title", Mode: "html"},
			wantValid: false,
		},
		{
			name:      "attribute mode without attribute rejected",
			sel:       SelectorSpec{Language: SelectorCSS, Expression: "a.item", Mode: SelectorModeAttribute},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if tt.wantValid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantValid && err == nil {
				t.Errorf("Validate() = nil, want an error")
			}
		})
	}
}

func TestFieldMap_Validate(t *testing.T) {
	validSelector := SelectorSpec{Language: SelectorCSS, Expression: ".price", Mode: SelectorModeText}

	tests := []struct {
		name      string
		fm        FieldMap
		wantValid bool
	}{
		{
			name:      "valid field map",
			fm:        FieldMap{JobID: "job-1", FieldName: "price", Selector: validSelector, FieldType: FieldTypeMoney},
			wantValid: true,
		},
		{
			name:      "missing job_id rejected",
			fm:        FieldMap{FieldName: "price", Selector: validSelector, FieldType: FieldTypeMoney},
			wantValid: false,
		},
		{
			name:      "missing field_name rejected",
			fm:        FieldMap{JobID: "job-1", Selector: validSelector, FieldType: FieldTypeMoney},
			wantValid: false,
		},
		{
			name:      "invalid field_type rejected",
			fm:        FieldMap{JobID: "job-1", FieldName: "price", Selector: validSelector, FieldType: "currency"},
			wantValid: false,
		},
		{
			name:      "invalid nested selector rejected",
			fm:        FieldMap{JobID: "job-1", FieldName: "price", Selector: SelectorSpec{Mode: SelectorModeText}, FieldType: FieldTypeMoney},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fm.Validate()
			if tt.wantValid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantValid && err == nil {
				t.Errorf("Validate() = nil, want an error")
			}
		})
	}
}
