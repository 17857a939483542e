package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gotidy/domain/table"
)

// TypeCoercer handles deterministic conversion of raw cells to semantic types
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64  `json:"numeric_threshold" yaml:"numeric_threshold"`     // % of values that must parse as numbers
	TimestampThreshold float64  `json:"timestamp_threshold" yaml:"timestamp_threshold"` // % of values that must parse as dates
	DecimalComma       bool     `json:"decimal_comma" yaml:"decimal_comma"`             // "1.234,56" style input
	NormalizeStrings   bool     `json:"normalize_strings" yaml:"normalize_strings"`     // collapse internal whitespace
	DateLayouts        []string `json:"date_layouts" yaml:"date_layouts"`
}

// DefaultDateLayouts are tried in order when parsing dates
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8,
		TimestampThreshold: 0.8,
		NormalizeStrings:   true,
		DateLayouts:        DefaultDateLayouts,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if len(config.DateLayouts) == 0 {
		config.DateLayouts = DefaultDateLayouts
	}
	return &TypeCoercer{config: config}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Coerce converts v to the semantic type t. The boolean is false when the
// value is missing or cannot be represented as t; the returned value is then
// the missing sentinel. Values already holding t pass through unchanged.
func (c *TypeCoercer) Coerce(v table.Value, t table.SemanticType) (table.Value, bool) {
	if v.IsMissing() {
		return table.Missing(), false
	}

	switch t {
	case table.TypeInteger:
		switch v.Kind() {
		case table.KindInteger:
			return v, true
		case table.KindFloat:
			return narrowFloat(v.Float())
		}
		if n, ok := c.ParseInteger(v.String()); ok {
			return table.Int(n), true
		}
	case table.TypeFloat:
		if v.IsNumeric() {
			return table.Float(v.Float()), true
		}
		if f, ok := c.ParseNumeric(v.String()); ok {
			return table.Float(f), true
		}
	case table.TypeDate:
		if v.Kind() == table.KindDate {
			return v, true
		}
		if ts, ok := c.ParseDate(v.String()); ok {
			return table.Date(ts), true
		}
	case table.TypeText, table.TypeCategory:
		if v.Kind() == table.KindText {
			return v, true
		}
		s := c.normalizeString(v.String())
		if s == "" {
			return table.Missing(), false
		}
		return table.Text(s), true
	}

	return table.Missing(), false
}

func narrowFloat(f float64) (table.Value, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return table.Missing(), false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f >= 1<<63 || f < -(1<<63) {
		return table.Missing(), false
	}
	return table.Int(int64(f)), true
}

// ParseInteger accepts plain integers and integral floats such as "50001.0"
func (c *TypeCoercer) ParseInteger(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, ok := c.ParseNumeric(s)
	if !ok {
		return 0, false
	}
	v, ok := narrowFloat(f)
	if !ok {
		return 0, false
	}
	return v.Int(), true
}

// ParseNumeric attempts to parse s as a finite number.
// Handles parentheses for negatives, currency symbols, percent signs and
// thousands separators.
func (c *TypeCoercer) ParseNumeric(s string) (float64, bool) {
	cleanVal := strings.TrimSpace(s)
	if cleanVal == "" {
		return 0, false
	}

	// Handle parentheses for negative numbers: (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY", "%"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	if c.config.DecimalComma {
		cleanVal = strings.ReplaceAll(cleanVal, ".", "")
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	} else {
		cleanVal = strings.ReplaceAll(cleanVal, ",", "")
	}

	if cleanVal == "" {
		return 0, false
	}
	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseDate tries each configured layout in order
func (c *TypeCoercer) ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range c.config.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeString trims, optionally collapses whitespace, and drops control characters
func (c *TypeCoercer) normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if c.config.NormalizeStrings {
		s = whitespaceRun.ReplaceAllString(s, " ")
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int                `json:"total_count"`
	ValidCount      int                `json:"valid_count"`
	NumericCount    int                `json:"numeric_count"`
	IntegerCount    int                `json:"integer_count"`
	TimestampCount  int                `json:"timestamp_count"`
	NumericRatio    float64            `json:"numeric_ratio"`
	TimestampRatio  float64            `json:"timestamp_ratio"`
	RecommendedType table.SemanticType `json:"recommended_type"`
}

// AnalyzeTypeDistribution inspects a sample of raw cells and recommends a
// semantic type for the column. Placeholders count against every ratio.
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, val := range values {
		if strings.TrimSpace(val) == "" {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.ParseNumeric(val); ok {
			analysis.NumericCount++
			if _, ok := c.ParseInteger(val); ok {
				analysis.IntegerCount++
			}
			continue
		}
		if _, ok := c.ParseDate(val); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) table.SemanticType {
	if analysis.ValidCount == 0 {
		return table.TypeText
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		if analysis.IntegerCount == analysis.NumericCount {
			return table.TypeInteger
		}
		return table.TypeFloat
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return table.TypeDate
	}
	return table.TypeText
}
