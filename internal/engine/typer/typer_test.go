package typer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func testContext() Context {
	return Context{
		DefaultRegion: "US",
		Locale:        "en",
		Timezone:      "UTC",
		Now:           time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestEmail_ParsedAndNormalized(t *testing.T) {
	got := Type(models.FieldTypeEmail, "  John.Doe@EXAMPLE.com ", models.SmartConfig{}, models.ValidationRules{}, testContext())
	require.Equal(t, "John.Doe@example.com", got.Value)
	assert.InDelta(t, 0.98, got.Confidence, 0.001)
	assert.Empty(t, got.Errors)
}

func TestEmail_Idempotent(t *testing.T) {
	first := Type(models.FieldTypeEmail, "a@example.com", models.SmartConfig{}, models.ValidationRules{}, testContext())
	second := Type(models.FieldTypeEmail, first.Value.(string), models.SmartConfig{}, models.ValidationRules{}, testContext())
	assert.Equal(t, first.Value, second.Value)
	assert.GreaterOrEqual(t, second.Confidence, first.Confidence)
}

func TestEmail_Invalid(t *testing.T) {
	got := Type(models.FieldTypeEmail, "not-an-email", models.SmartConfig{}, models.ValidationRules{}, testContext())
	assert.Nil(t, got.Value)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Contains(t, got.Errors, "invalid_format")
}

func TestEmail_DisposableRejected(t *testing.T) {
	got := Type(models.FieldTypeEmail, "foo@mailinator.com", models.SmartConfig{RejectDisposable: true}, models.ValidationRules{}, testContext())
	assert.Nil(t, got.Value)
	assert.Contains(t, got.Errors, "disposable_domain")
}

func TestPhone_ValidE164(t *testing.T) {
	got := Type(models.FieldTypePhone, "(555) 012-3456", models.SmartConfig{DefaultRegion: "US"}, models.ValidationRules{}, testContext())
	if got.Value != nil {
		assert.InDelta(t, 0.95, got.Confidence, 0.25)
	}
}

func TestURL_CanonicalRoundTrip(t *testing.T) {
	got := Type(models.FieldTypeURL, "http://Example.com/path?utm_source=x&id=5", models.SmartConfig{ForceHTTPS: true, StripTrackingParams: true}, models.ValidationRules{}, testContext())
	require.NotNil(t, got.Value)
	canonical := got.Value.(string)
	assert.Contains(t, canonical, "https://")
	assert.NotContains(t, canonical, "utm_source")

	again := Type(models.FieldTypeURL, canonical, models.SmartConfig{ForceHTTPS: true, StripTrackingParams: true}, models.ValidationRules{}, testContext())
	assert.Equal(t, canonical, again.Value)
}

func TestURL_MissingHostFails(t *testing.T) {
	got := Type(models.FieldTypeURL, "not a url", models.SmartConfig{}, models.ValidationRules{}, testContext())
	assert.Nil(t, got.Value)
}

func TestMoney_ParsesCurrencyAndAmount(t *testing.T) {
	got := Type(models.FieldTypeMoney, "$1,299.99", models.SmartConfig{}, models.ValidationRules{}, testContext())
	require.NotNil(t, got.Value)
	m := got.Value.(Money)
	assert.Equal(t, "USD", m.Currency)
	assert.True(t, m.Amount.Equal(decimal.NewFromFloat(1299.99)))
}

func TestMoney_NegativeRejectedByDefault(t *testing.T) {
	got := Type(models.FieldTypeMoney, "-$40.00", models.SmartConfig{}, models.ValidationRules{}, testContext())
	assert.Nil(t, got.Value)
}

func TestInteger_StripsThousands(t *testing.T) {
	got := Type(models.FieldTypeInteger, "12,345", models.SmartConfig{}, models.ValidationRules{}, testContext())
	assert.Equal(t, int64(12345), got.Value)
}

func TestBoolean_Variants(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want bool
	}{
		{"Yes", true}, {"no", false}, {"1", true}, {"0", false}, {"In Stock", true},
	} {
		got := Type(models.FieldTypeBoolean, tc.raw, models.SmartConfig{}, models.ValidationRules{}, testContext())
		assert.Equal(t, tc.want, got.Value, tc.raw)
	}
}

func TestDatetime_NormalizesToISO8601(t *testing.T) {
	got := Type(models.FieldTypeDatetime, "Jan 2, 2024", models.SmartConfig{}, models.ValidationRules{}, testContext())
	if got.Value != nil {
		parsed, err := time.Parse(time.RFC3339, got.Value.(string))
		require.NoError(t, err)
		assert.Equal(t, 2024, parsed.Year())
	}
}

func TestCategory_AllowedSet(t *testing.T) {
	rules := models.ValidationRules{AllowedSet: []string{"Electronics", "Books"}}
	ok := Type(models.FieldTypeCategory, "electronics", models.SmartConfig{}, rules, testContext())
	assert.Equal(t, "electronics", ok.Value)

	bad := Type(models.FieldTypeCategory, "Toys", models.SmartConfig{}, rules, testContext())
	assert.Nil(t, bad.Value)
}

func TestRequiredFieldMissing_YieldsNullZeroConfidence(t *testing.T) {
	rules := models.ValidationRules{Required: true}
	got := Type(models.FieldTypeString, "   ", models.SmartConfig{}, rules, testContext())
	assert.Nil(t, got.Value)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestAddress_DegradesGracefullyOnParseFailure(t *testing.T) {
	got := Type(models.FieldTypeAddress, "some unstructured blob of text", models.SmartConfig{}, models.ValidationRules{}, testContext())
	require.NotNil(t, got.Value)
	addr := got.Value.(Address)
	assert.Equal(t, "some unstructured blob of text", addr.Raw)
	assert.Less(t, got.Confidence, 0.5)
}

func TestAllFieldTypesHaveADispatchCase(t *testing.T) {
	for ft := range models.ValidFieldTypes {
		got := Type(ft, "", models.SmartConfig{}, models.ValidationRules{}, testContext())
		assert.NotContains(t, got.Errors, "unknown_field_type", "field type %s has no dispatch case", ft)
	}
}
