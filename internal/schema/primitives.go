package schema

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var exampleWords = []string{
	"amber", "basalt", "cedar", "delta", "ember", "fjord", "granite", "harbor",
	"island", "juniper", "kelp", "lagoon", "meadow", "nickel", "orchid", "pebble",
	"quartz", "raven", "summit", "tundra", "umber", "valley", "willow", "zephyr",
}

func randomWord() string {
	return exampleWords[rand.Intn(len(exampleWords))]
}

// Int returns a pointer to v, for bounded Integer declarations.
func Int(v int64) *int64 { return &v }

// Float returns a pointer to v, for bounded Decimal declarations.
func Float(v float64) *float64 { return &v }

// String accepts JSON strings, optionally bounded in length (in runes)
// and constrained to a known format such as "email" or "uuid".
type String struct {
	MinLength int
	MaxLength int
	Format    string
}

func (t String) Name() string {
	if t.Format != "" {
		return "string(" + t.Format + ")"
	}
	return "string"
}

func (t String) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	n := utf8.RuneCountInString(s)
	if n < t.MinLength || (t.MaxLength > 0 && n > t.MaxLength) {
		return false, nil
	}
	return t.Format == "" || matchesFormat(t.Format, s), nil
}

func (t String) ExampleFor(_ context.Context, _ *Attribute) (any, error) {
	if t.Format != "" && KnownFormat(t.Format) {
		s := t.formatExample()
		if !t.fits(s) || !matchesFormat(t.Format, s) {
			return nil, fmt.Errorf("%s of length [%d, %d]: %w", t.Name(), t.MinLength, t.MaxLength, ErrNoExample)
		}
		return s, nil
	}
	words := []string{randomWord(), randomWord()}
	s := strings.Join(words, " ")
	for utf8.RuneCountInString(s) < t.MinLength {
		s += " " + randomWord()
	}
	if t.MaxLength > 0 && utf8.RuneCountInString(s) > t.MaxLength {
		s = string([]rune(s)[:t.MaxLength])
	}
	return s, nil
}

func (t String) fits(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= t.MinLength && (t.MaxLength <= 0 || n <= t.MaxLength)
}

// formatExample builds a value of the format, stretching the variable
// part of emails and URIs to the length bounds. Fixed-width formats are
// returned as they are and rejected by the caller when out of bounds.
func (t String) formatExample() string {
	switch strings.ToLower(t.Format) {
	case "email":
		domain := "@example.com"
		if t.MaxLength > 0 && t.MaxLength <= len(domain) {
			domain = "@ex.io"
		}
		return t.stretch("", fmt.Sprintf("%s%d", randomWord(), rand.Intn(1000)), domain)
	case "uuid":
		return uuid.NewString()
	case "date":
		return randomTime().Format(dateLayout)
	case "datetime", "date-time":
		return randomTime().Format(dateTimeLayout)
	case "uri", "url":
		host := "https://example.com/"
		if t.MaxLength > 0 && t.MaxLength <= len(host) {
			host = "http://ex.io/"
		}
		return t.stretch(host, randomWord(), "")
	case "ipv4":
		return fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
	default:
		return randomWord()
	}
}

// stretch pads or cuts the ASCII part between prefix and suffix so the
// whole lands within the length bounds. The part keeps one character.
func (t String) stretch(prefix, part, suffix string) string {
	fixed := len(prefix) + len(suffix)
	for len(part)+fixed < t.MinLength {
		part += "x"
	}
	if t.MaxLength > 0 && len(part)+fixed > t.MaxLength {
		part = part[:max(1, t.MaxLength-fixed)]
	}
	return prefix + part + suffix
}

func randomTime() time.Time {
	return time.Now().UTC().Truncate(time.Second).Add(-time.Duration(rand.Intn(365*24)) * time.Hour)
}

// Integer accepts whole JSON numbers within optional bounds.
type Integer struct {
	Min *int64
	Max *int64
}

func (Integer) Name() string { return "integer" }

func (t Integer) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	f, ok := toFloat(value)
	if !ok || !isIntegral(f) {
		return false, nil
	}
	if t.Min != nil && f < float64(*t.Min) {
		return false, nil
	}
	if t.Max != nil && f > float64(*t.Max) {
		return false, nil
	}
	return true, nil
}

func (t Integer) ExampleFor(_ context.Context, _ *Attribute) (any, error) {
	lo, hi := int64(1), int64(1000)
	switch {
	case t.Min != nil && t.Max != nil:
		lo, hi = *t.Min, *t.Max
	case t.Min != nil:
		lo, hi = *t.Min, *t.Min+1000
	case t.Max != nil:
		hi = *t.Max
		if hi < lo {
			lo = hi - 1000
		}
	}
	if hi < lo {
		return nil, fmt.Errorf("integer bounds [%d, %d]: %w", lo, hi, ErrNoExample)
	}
	return lo + rand.Int63n(hi-lo+1), nil
}

// Decimal accepts any JSON number within optional bounds.
type Decimal struct {
	Min *float64
	Max *float64
}

func (Decimal) Name() string { return "decimal" }

func (t Decimal) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) {
		return false, nil
	}
	if t.Min != nil && f < *t.Min {
		return false, nil
	}
	if t.Max != nil && f > *t.Max {
		return false, nil
	}
	return true, nil
}

func (t Decimal) ExampleFor(_ context.Context, _ *Attribute) (any, error) {
	lo, hi := 0.0, 1000.0
	switch {
	case t.Min != nil && t.Max != nil:
		lo, hi = *t.Min, *t.Max
	case t.Min != nil:
		lo, hi = *t.Min, *t.Min+1000
	case t.Max != nil:
		hi = *t.Max
		if hi < lo {
			lo = hi - 1000
		}
	}
	if hi < lo {
		return nil, fmt.Errorf("decimal bounds [%g, %g]: %w", lo, hi, ErrNoExample)
	}
	v := math.Round((lo+rand.Float64()*(hi-lo))*100) / 100
	return math.Min(math.Max(v, lo), hi), nil
}

// DecimalString accepts numbers encoded as JSON strings, e.g. "12.50".
type DecimalString struct{}

func (DecimalString) Name() string { return "decimal_string" }

func (DecimalString) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil, nil
}

func (DecimalString) ExampleFor(ctx context.Context, attr *Attribute) (any, error) {
	v, _ := Decimal{}.ExampleFor(ctx, attr)
	return strconv.FormatFloat(v.(float64), 'f', 2, 64), nil
}

type Boolean struct{}

func (Boolean) Name() string { return "boolean" }

func (Boolean) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	_, ok := value.(bool)
	return ok, nil
}

func (Boolean) ExampleFor(context.Context, *Attribute) (any, error) {
	return rand.Intn(2) == 1, nil
}

type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	return value == nil, nil
}

func (Null) ExampleFor(context.Context, *Attribute) (any, error) {
	return nil, nil
}

// Date accepts YYYY-MM-DD strings.
type Date struct{}

func (Date) Name() string { return "date" }

func (Date) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	return ok && isDate(s), nil
}

func (Date) ExampleFor(context.Context, *Attribute) (any, error) {
	return String{Format: "date"}.formatExample(), nil
}

// DateTime accepts RFC 3339 timestamps.
type DateTime struct{}

func (DateTime) Name() string { return "datetime" }

func (DateTime) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	return ok && isDateTime(s), nil
}

func (DateTime) ExampleFor(context.Context, *Attribute) (any, error) {
	return String{Format: "datetime"}.formatExample(), nil
}

type Email struct{}

func (Email) Name() string { return "email" }

func (Email) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	return ok && isEmail(s), nil
}

func (Email) ExampleFor(context.Context, *Attribute) (any, error) {
	return String{Format: "email"}.formatExample(), nil
}

type UUID struct{}

func (UUID) Name() string { return "uuid" }

func (UUID) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	s, ok := value.(string)
	return ok && isUUID(s), nil
}

func (UUID) ExampleFor(context.Context, *Attribute) (any, error) {
	return uuid.NewString(), nil
}

// OneOf accepts exactly one of a fixed set of values.
type OneOf struct {
	Values []any
}

func (t OneOf) Name() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = fmt.Sprint(v)
	}
	return "one_of(" + strings.Join(parts, ", ") + ")"
}

func (t OneOf) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	for _, v := range t.Values {
		if SameValue(v, value) {
			return true, nil
		}
	}
	return false, nil
}

func (t OneOf) ExampleFor(_ context.Context, attr *Attribute) (any, error) {
	if len(t.Values) == 0 {
		return nil, fmt.Errorf("one_of %s has no values: %w", attr.Name(), ErrNoExample)
	}
	return t.Values[rand.Intn(len(t.Values))], nil
}

// Array accepts JSON arrays whose items all satisfy Of. A nil Of
// accepts any items.
type Array struct {
	Of Type
}

func (t Array) Name() string {
	if t.Of == nil {
		return "array"
	}
	return "array(" + t.Of.Name() + ")"
}

func (t Array) Valid(ctx context.Context, attr *Attribute, value any) (bool, error) {
	items, ok := value.([]any)
	if !ok {
		return false, nil
	}
	if t.Of == nil {
		return true, nil
	}
	for _, item := range items {
		ok, err := t.Of.Valid(ctx, attr, item)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (t Array) ExampleFor(ctx context.Context, attr *Attribute) (any, error) {
	if t.Of == nil {
		return []any{}, nil
	}
	n := 1 + rand.Intn(3)
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := t.Of.ExampleFor(ctx, attr)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Hash accepts any JSON object.
type Hash struct{}

func (Hash) Name() string { return "hash" }

func (Hash) Valid(_ context.Context, _ *Attribute, value any) (bool, error) {
	_, ok := value.(map[string]any)
	return ok, nil
}

func (Hash) ExampleFor(context.Context, *Attribute) (any, error) {
	return map[string]any{}, nil
}

// EmbeddedSchema accepts a nested object conforming to another
// registered schema.
type EmbeddedSchema struct {
	SchemaName string
	Store      *Store
}

func (t EmbeddedSchema) Name() string { return "embedded_schema(" + t.SchemaName + ")" }

func (t EmbeddedSchema) Valid(ctx context.Context, _ *Attribute, value any) (bool, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return false, nil
	}
	s, err := t.Store.Lookup(t.SchemaName)
	if err != nil {
		return false, err
	}
	res := &Result{Schema: s.Name()}
	if err := s.WithIntention(Response).checkObject(ctx, obj, "", res); err != nil {
		return false, err
	}
	return res.Valid(), nil
}

func (t EmbeddedSchema) ExampleFor(ctx context.Context, _ *Attribute) (any, error) {
	s, err := t.Store.Lookup(t.SchemaName)
	if err != nil {
		return nil, err
	}
	return s.WithIntention(Payload).exampleObject(ctx)
}

// Or accepts a value when any of its alternatives does. Examples come
// from the first alternative.
type Or struct {
	Types []Type
}

// Nullable is t | null.
func Nullable(t Type) Or {
	return Or{Types: []Type{t, Null{}}}
}

func (t Or) Name() string {
	parts := make([]string, len(t.Types))
	for i, alt := range t.Types {
		parts[i] = alt.Name()
	}
	return strings.Join(parts, " | ")
}

func (t Or) Valid(ctx context.Context, attr *Attribute, value any) (bool, error) {
	for _, alt := range t.Types {
		ok, err := alt.Valid(ctx, attr, value)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (t Or) ExampleFor(ctx context.Context, attr *Attribute) (any, error) {
	if len(t.Types) == 0 {
		return nil, fmt.Errorf("empty union for %s: %w", attr.Name(), ErrNoExample)
	}
	return t.Types[0].ExampleFor(ctx, attr)
}
