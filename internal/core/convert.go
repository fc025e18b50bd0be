package core

// convert.go coerces raw TSV cells into typed attribute values.
//
// Each value kind has a coercionRule: whether blank input means "no value", whether
// zero-like input ("0", "0.00", " . ") means "no value", and the parser itself.
// CoerceValue is pure and returns a typed error; Coercer wraps it with the logging
// the assembler needs.

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DateTimeLayout matches tool timestamps such as "2020-01-15 13:45:00" and "2020-1-5 13:45:00".
const DateTimeLayout = "2006-1-2 15:04:05"

var (
	nonPrintableRegex = regexp.MustCompile(`\p{C}`)
	zeroRegex         = regexp.MustCompile(`^\s*[0.]*\s*$`)
)

// Coercion outcomes that mean "no value".
var (
	ErrBlankValue      = errors.New("blank value")
	ErrZeroValue       = errors.New("zero value")
	ErrUnparseable     = errors.New("value cannot be parsed")
	ErrUnsupportedKind = errors.New("no coercion rule for value kind")
)

type coercionRule struct {
	blankIsNull bool
	zeroIsNull  bool
	trim        bool
	parse       func(string) (TypedValue, error)
}

var coercionRules = map[ValueKind]coercionRule{
	KindString:   {parse: func(s string) (TypedValue, error) { return StringValue(s), nil }},
	KindJSON:     {parse: func(s string) (TypedValue, error) { return JSONValue(s), nil }},
	KindInteger:  {blankIsNull: true, zeroIsNull: true, trim: true, parse: parseInteger},
	KindLong:     {blankIsNull: true, zeroIsNull: true, trim: true, parse: parseLong},
	KindDouble:   {blankIsNull: true, zeroIsNull: true, trim: true, parse: parseDouble},
	KindByte:     {blankIsNull: true, zeroIsNull: true, trim: true, parse: parseByte},
	KindDateTime: {blankIsNull: true, zeroIsNull: true, trim: true, parse: parseDateTime},
}

// CoerceValue converts one raw cell for the given attribute type.
// The returned error wraps ErrBlankValue, ErrZeroValue, ErrUnparseable or ErrUnsupportedKind.
func CoerceValue(attrType AttributeType, raw string) (TypedValue, error) {
	if attrType.Name == DomainAttributeName {
		raw = ExtractDomain(raw)
	}

	rule, ok := coercionRules[attrType.Kind]
	if !ok {
		return TypedValue{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, attrType.Kind)
	}

	value := StripNonPrintable(raw)
	if rule.trim {
		value = strings.TrimSpace(value)
	}

	if rule.blankIsNull && strings.TrimSpace(value) == "" {
		return TypedValue{}, ErrBlankValue
	}
	if rule.zeroIsNull && zeroRegex.MatchString(value) {
		return TypedValue{}, ErrZeroValue
	}

	v, err := rule.parse(value)
	if err != nil {
		return TypedValue{}, fmt.Errorf("%w: %q as %s: %v", ErrUnparseable, value, attrType.Kind, err)
	}
	return v, nil
}

// StripNonPrintable removes control, format, private-use and unassigned code points.
func StripNonPrintable(s string) string {
	return nonPrintableRegex.ReplaceAllString(s, "")
}

// ExtractDomain reduces a URL or host to its registrable domain:
// "https://mail.google.com/inbox" becomes "google.com". IP addresses and hosts
// without a public suffix are returned as the bare host.
func ExtractDomain(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}

	target := value
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	host := value
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// truncate narrows toward zero, saturating at the bounds; NaN becomes 0.
func truncate(f, lo, hi float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= hi:
		return hi
	case f <= lo:
		return lo
	default:
		return math.Trunc(f)
	}
}

func parseInteger(s string) (TypedValue, error) {
	f, err := parseFloat(s)
	if err != nil {
		return TypedValue{}, err
	}
	return IntegerValue(int32(truncate(f, math.MinInt32, math.MaxInt32))), nil
}

func parseLong(s string) (TypedValue, error) {
	f, err := parseFloat(s)
	if err != nil {
		return TypedValue{}, err
	}
	if f >= math.MaxInt64 {
		return LongValue(math.MaxInt64), nil
	}
	return LongValue(int64(truncate(f, math.MinInt64, math.MaxInt64))), nil
}

func parseDouble(s string) (TypedValue, error) {
	f, err := parseFloat(s)
	if err != nil {
		return TypedValue{}, err
	}
	return DoubleValue(f), nil
}

func parseByte(s string) (TypedValue, error) {
	n, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return TypedValue{}, err
	}
	return ByteValue(byte(int8(n))), nil
}

// parseDateTime reads DateTimeLayout in UTC. Fractional seconds are accepted and
// anything after the time-of-day field (a zone label, say) is ignored.
func parseDateTime(s string) (TypedValue, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		fields := strings.Fields(s)
		if len(fields) < 3 {
			return TypedValue{}, err
		}
		t, err = time.Parse(DateTimeLayout, fields[0]+" "+fields[1])
		if err != nil {
			return TypedValue{}, err
		}
	}
	return DateTimeValue(t.UnixMilli() / 1000), nil
}

// Coercer applies CoerceValue and logs parse failures.
type Coercer struct {
	logger *slog.Logger
}

// NewCoercer creates a Coercer. A nil logger uses slog.Default.
func NewCoercer(logger *slog.Logger) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{logger: logger}
}

// Coerce returns the typed value, or false when the cell yields no value.
func (c *Coercer) Coerce(attrType AttributeType, raw, fileName string) (TypedValue, bool) {
	v, err := CoerceValue(attrType, raw)
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, ErrUnparseable):
		c.logger.Warn("unable to format value",
			"value", raw,
			"attribute_type", attrType.Name,
			"value_kind", attrType.Kind.String(),
			"file", fileName,
			"error", err,
		)
	case errors.Is(err, ErrUnsupportedKind):
		c.logger.Warn("attribute type has no coercion rule",
			"attribute_type", attrType.Name,
			"value_kind", attrType.Kind.String(),
			"file", fileName,
		)
	}
	return TypedValue{}, false
}
