package models

import "fmt"

// SelectorLanguage picks the selector engine a SelectorSpec is evaluated with.
type SelectorLanguage string

const (
	SelectorCSS   SelectorLanguage = "css"
	SelectorXPath SelectorLanguage = "xpath"
)

// SelectorMode picks whether a selector reads an attribute or text content.
type SelectorMode string

const (
	SelectorModeText      SelectorMode = "text"
	SelectorModeAttribute SelectorMode = "attribute"
)

// SelectorSpec is the mapping instruction for one field: which selector
// language and expression to evaluate, what to read off the matched
// element(s), and an optional regex capture group applied to the raw
// string before it reaches the Value Typer.
type SelectorSpec struct {
	Language     SelectorLanguage `json:"language" validate:"required,oneof=css xpath"`
	Expression   string           `json:"expression" validate:"required"`
	Mode         SelectorMode     `json:"mode" validate:"required,oneof=text attribute"`
	Attribute    string           `json:"attribute,omitempty" validate:"required_if=Mode attribute"` // required when Mode=attribute
	All          bool             `json:"all"`
	RegexCapture string           `json:"regex_capture,omitempty"` // optional, group 1 extracted
}

// Validate checks the SelectorSpec is self-consistent. The closed
// language/mode sets, the required expression and the
// mode=attribute→attribute conditional all run through go-playground/validator
// tags, and any failure is returned as the wrapped tag error.
func (s SelectorSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("selector_spec: %w", err)
	}
	return nil
}

// FieldType is the closed set of typed-extraction outputs the Value Typer
// supports (§4.1).
type FieldType string

const (
	FieldTypeString      FieldType = "string"
	FieldTypeText        FieldType = "text"
	FieldTypeHTML        FieldType = "html"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeInteger     FieldType = "integer"
	FieldTypeDecimal     FieldType = "decimal"
	FieldTypeNumber      FieldType = "number"
	FieldTypeMoney       FieldType = "money"
	FieldTypePercentage  FieldType = "percentage"
	FieldTypeRating      FieldType = "rating"
	FieldTypeDate        FieldType = "date"
	FieldTypeTime        FieldType = "time"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeURL         FieldType = "url"
	FieldTypeImageURL    FieldType = "image_url"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeMobile      FieldType = "mobile"
	FieldTypeFax         FieldType = "fax"
	FieldTypePersonName  FieldType = "person_name"
	FieldTypeFirstName   FieldType = "first_name"
	FieldTypeLastName    FieldType = "last_name"
	FieldTypeCompany     FieldType = "company"
	FieldTypeJobTitle    FieldType = "job_title"
	FieldTypeAddress     FieldType = "address"
	FieldTypeCity        FieldType = "city"
	FieldTypeState       FieldType = "state"
	FieldTypeZipCode     FieldType = "zip_code"
	FieldTypeCountry     FieldType = "country"
	FieldTypeCategory    FieldType = "category"
)

// ValidFieldTypes enumerates the closed field_type set for validation and
// exhaustive-dispatch tests.
var ValidFieldTypes = map[FieldType]bool{
	FieldTypeString: true, FieldTypeText: true, FieldTypeHTML: true,
	FieldTypeBoolean: true, FieldTypeInteger: true, FieldTypeDecimal: true,
	FieldTypeNumber: true, FieldTypeMoney: true, FieldTypePercentage: true,
	FieldTypeRating: true, FieldTypeDate: true, FieldTypeTime: true,
	FieldTypeDatetime: true, FieldTypeURL: true, FieldTypeImageURL: true,
	FieldTypeEmail: true, FieldTypePhone: true, FieldTypeMobile: true,
	FieldTypeFax: true, FieldTypePersonName: true, FieldTypeFirstName: true,
	FieldTypeLastName: true, FieldTypeCompany: true, FieldTypeJobTitle: true,
	FieldTypeAddress: true, FieldTypeCity: true, FieldTypeState: true,
	FieldTypeZipCode: true, FieldTypeCountry: true, FieldTypeCategory: true,
}

// ValidationRules bounds/shapes the normalized value for a field.
type ValidationRules struct {
	Required   bool     `json:"required"`
	MinLength  int      `json:"min_length,omitempty"`
	MaxLength  int      `json:"max_length,omitempty"`
	MinValue   *float64 `json:"min_value,omitempty"`
	MaxValue   *float64 `json:"max_value,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	AllowedSet []string `json:"allowed_set,omitempty"`
}

// SmartConfig carries type-specific options (e.g. default region for phone
// numbers, locale/timezone for dates, force-https for urls).
type SmartConfig struct {
	DefaultRegion       string   `json:"default_region,omitempty"`        // phone/mobile/fax
	Locale              string   `json:"locale,omitempty"`                // date/time/datetime
	Timezone            string   `json:"timezone,omitempty"`              // date/time/datetime
	MinYear             int      `json:"min_year,omitempty"`              // date/time/datetime
	MaxYear             int      `json:"max_year,omitempty"`              // date/time/datetime
	PastOnly            bool     `json:"past_only,omitempty"`             // date/time/datetime
	FutureOnly          bool     `json:"future_only,omitempty"`           // date/time/datetime
	ForceHTTPS          bool     `json:"force_https,omitempty"`           // url/image_url
	StripTrackingParams bool     `json:"strip_tracking_params,omitempty"` // url/image_url
	RejectDisposable    bool     `json:"reject_disposable,omitempty"`     // email
	DefaultCurrency     string   `json:"default_currency,omitempty"`      // money
	AllowNegative       bool     `json:"allow_negative,omitempty"`        // money/number
}

// FieldMap maps one declared job field to a selector and typed-extraction
// configuration.
type FieldMap struct {
	JobID     string       `json:"job_id" badgerhold:"index" validate:"required"`
	FieldName string       `json:"field_name" validate:"required"`
	Selector  SelectorSpec `json:"selector" validate:"required"`
	FieldType FieldType    `json:"field_type" validate:"required,oneof=string text html boolean integer decimal number money percentage rating date time datetime url image_url email phone mobile fax person_name first_name last_name company job_title address city state zip_code country category"`
	SmartConfig     SmartConfig     `json:"smart_config"`
	ValidationRules ValidationRules `json:"validation_rules"`
}

// Key returns the badgerhold composite key "(job_id, field_name)".
func (f FieldMap) Key() string {
	return f.JobID + "::" + f.FieldName
}

// Validate enforces "mapping without a spec is rejected at save time": the
// required fields, the closed field_type set, and the nested selector's own
// rules all run through the same validator.Struct pass as Job.Validate.
func (f FieldMap) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("field_map %s: %w", f.FieldName, err)
	}
	return nil
}
