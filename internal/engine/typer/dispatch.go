package typer

import (
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Type runs the clean -> parse -> validate -> normalize -> score pipeline
// for one raw string against its declared field_type. The regex capture
// (if configured on the selector) must already have been applied by the
// caller before raw reaches here.
func Type(fieldType models.FieldType, raw string, smart models.SmartConfig, rules models.ValidationRules, ctx Context) Typed {
	switch fieldType {
	case models.FieldTypeString:
		return typeString(raw, rules)
	case models.FieldTypeText:
		return typeText(raw, rules)
	case models.FieldTypeHTML:
		return typeHTML(raw, rules)
	case models.FieldTypeBoolean:
		return typeBoolean(raw)
	case models.FieldTypeInteger:
		return typeInteger(raw, smart, rules)
	case models.FieldTypeDecimal:
		return typeDecimal(raw, smart, rules)
	case models.FieldTypeNumber:
		return typeNumber(raw, smart, rules)
	case models.FieldTypeMoney:
		return typeMoney(raw, smart, rules)
	case models.FieldTypePercentage:
		return typePercentage(raw, smart, rules)
	case models.FieldTypeRating:
		return typeRating(raw, smart, rules)
	case models.FieldTypeDate:
		return typeDateLike(raw, smart, ctx, dateKindDate)
	case models.FieldTypeTime:
		return typeDateLike(raw, smart, ctx, dateKindTime)
	case models.FieldTypeDatetime:
		return typeDateLike(raw, smart, ctx, dateKindDatetime)
	case models.FieldTypeURL:
		return typeURL(raw, smart, false)
	case models.FieldTypeImageURL:
		return typeURL(raw, smart, true)
	case models.FieldTypeEmail:
		return typeEmail(raw, smart)
	case models.FieldTypePhone:
		return typePhone(raw, smart, ctx)
	case models.FieldTypeMobile:
		return typePhone(raw, smart, ctx)
	case models.FieldTypeFax:
		return typePhone(raw, smart, ctx)
	case models.FieldTypePersonName:
		return typeNamePart(raw, rules)
	case models.FieldTypeFirstName:
		return typeNamePart(raw, rules)
	case models.FieldTypeLastName:
		return typeNamePart(raw, rules)
	case models.FieldTypeCompany:
		return typeNamePart(raw, rules)
	case models.FieldTypeJobTitle:
		return typeNamePart(raw, rules)
	case models.FieldTypeCategory:
		return typeCategory(raw, rules)
	case models.FieldTypeAddress:
		return typeAddress(raw, smart)
	case models.FieldTypeCity, models.FieldTypeState, models.FieldTypeZipCode, models.FieldTypeCountry:
		return typeAddressPart(raw, rules)
	default:
		r := newResult(raw)
		return r.fail("unknown_field_type")
	}
}
