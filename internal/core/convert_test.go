package core

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrOf(name string, kind ValueKind) AttributeType {
	return AttributeType{Name: name, Kind: kind}
}

// ----------------------------------------------------------------------------
// CoerceValue Tests
// ----------------------------------------------------------------------------

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name    string
		attr    AttributeType
		raw     string
		want    TypedValue
		wantErr error
	}{
		// STRING and JSON keep blanks and whitespace
		{"string verbatim", attrOf("TSK_NAME", KindString), "  Alice ", StringValue("  Alice "), nil},
		{"string blank is a value", attrOf("TSK_NAME", KindString), "", StringValue(""), nil},
		{"string zero is a value", attrOf("TSK_NAME", KindString), "0", StringValue("0"), nil},
		{"string strips control chars", attrOf("TSK_NAME", KindString), "a\x00b\x07c", StringValue("abc"), nil},
		{"json verbatim", attrOf("TSK_ATTACHMENTS", KindJSON), `{"a":1}`, JSONValue(`{"a":1}`), nil},

		// INTEGER
		{"integer", attrOf("TSK_COUNT", KindInteger), "42", IntegerValue(42), nil},
		{"integer trims", attrOf("TSK_COUNT", KindInteger), "  7 ", IntegerValue(7), nil},
		{"integer truncates fraction", attrOf("TSK_COUNT", KindInteger), "3.9", IntegerValue(3), nil},
		{"integer negative truncates toward zero", attrOf("TSK_COUNT", KindInteger), "-3.9", IntegerValue(-3), nil},
		{"integer saturates", attrOf("TSK_COUNT", KindInteger), "1e12", IntegerValue(math.MaxInt32), nil},
		{"integer blank", attrOf("TSK_COUNT", KindInteger), "   ", TypedValue{}, ErrBlankValue},
		{"integer zero", attrOf("TSK_COUNT", KindInteger), "0", TypedValue{}, ErrZeroValue},
		{"integer garbage", attrOf("TSK_COUNT", KindInteger), "abc", TypedValue{}, ErrUnparseable},
		{"integer control char after space", attrOf("TSK_COUNT", KindInteger), "42 \x00", IntegerValue(42), nil},
		{"integer format char before space", attrOf("TSK_COUNT", KindInteger), "\u200b 42", IntegerValue(42), nil},
		{"integer control chars only", attrOf("TSK_COUNT", KindInteger), " \x00\x07 ", TypedValue{}, ErrBlankValue},

		// LONG
		{"long", attrOf("TSK_BYTES_SENT", KindLong), "9000000000", LongValue(9000000000), nil},
		{"long zero decimal", attrOf("TSK_BYTES_SENT", KindLong), "0.00", TypedValue{}, ErrZeroValue},
		{"long lone dot", attrOf("TSK_BYTES_SENT", KindLong), " . ", TypedValue{}, ErrZeroValue},

		// DOUBLE
		{"double", attrOf("TSK_GEO_LATITUDE", KindDouble), "51.5072", DoubleValue(51.5072), nil},
		{"double negative", attrOf("TSK_GEO_LONGITUDE", KindDouble), "-0.1276", DoubleValue(-0.1276), nil},
		{"double zero", attrOf("TSK_GEO_LATITUDE", KindDouble), "0.0", TypedValue{}, ErrZeroValue},

		// BYTE
		{"byte", attrOf("TSK_READ_STATUS", KindByte), "1", ByteValue(1), nil},
		{"byte negative", attrOf("TSK_READ_STATUS", KindByte), "-1", ByteValue(0xFF), nil},
		{"byte out of range", attrOf("TSK_READ_STATUS", KindByte), "300", TypedValue{}, ErrUnparseable},

		// DATETIME
		{"datetime", attrOf("TSK_DATETIME", KindDateTime), "2020-01-15 13:45:00", DateTimeValue(1579095900), nil},
		{"datetime single digit fields", attrOf("TSK_DATETIME", KindDateTime), "2020-1-5 13:45:00", DateTimeValue(1578231900), nil},
		{"datetime fraction", attrOf("TSK_DATETIME", KindDateTime), "2020-01-15 13:45:00.750", DateTimeValue(1579095900), nil},
		{"datetime trailing zone", attrOf("TSK_DATETIME", KindDateTime), "2020-01-15 13:45:00 UTC", DateTimeValue(1579095900), nil},
		{"datetime epoch zero is null", attrOf("TSK_DATETIME", KindDateTime), "0", TypedValue{}, ErrZeroValue},
		{"datetime blank", attrOf("TSK_DATETIME", KindDateTime), "", TypedValue{}, ErrBlankValue},
		{"datetime garbage", attrOf("TSK_DATETIME", KindDateTime), "yesterday", TypedValue{}, ErrUnparseable},
		{"datetime control char before space", attrOf("TSK_DATETIME", KindDateTime), "\x00 2020-01-15 13:45:00", DateTimeValue(1579095900), nil},

		// unknown kind
		{"unsupported kind", attrOf("TSK_X", ValueKind(99)), "1", TypedValue{}, ErrUnsupportedKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(tt.attr, tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceValue_Domain(t *testing.T) {
	domain := attrOf(DomainAttributeName, KindString)

	tests := []struct {
		raw  string
		want string
	}{
		{"https://mail.google.com/mail/u/0/#inbox", "google.com"},
		{"http://www.bbc.co.uk/news", "bbc.co.uk"},
		{"example.org/path?q=1", "example.org"},
		{"HTTPS://WWW.Example.COM", "example.com"},
		{"http://192.168.1.10:8080/admin", "192.168.1.10"},
		{"chrome://settings", "settings"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := CoerceValue(domain, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Str)
		})
	}
}

// ----------------------------------------------------------------------------
// Coercer Tests
// ----------------------------------------------------------------------------

func TestCoercer_LogsOnlyParseFailures(t *testing.T) {
	var buf bytes.Buffer
	c := NewCoercer(slog.New(slog.NewTextHandler(&buf, nil)))

	_, ok := c.Coerce(attrOf("TSK_COUNT", KindInteger), "0", "a.tsv")
	assert.False(t, ok)
	assert.Empty(t, buf.String(), "zero is an expected empty value")

	_, ok = c.Coerce(attrOf("TSK_COUNT", KindInteger), "", "a.tsv")
	assert.False(t, ok)
	assert.Empty(t, buf.String(), "blank is an expected empty value")

	_, ok = c.Coerce(attrOf("TSK_COUNT", KindInteger), "many", "a.tsv")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "unable to format value")
	assert.Contains(t, buf.String(), "file=a.tsv")

	v, ok := c.Coerce(attrOf("TSK_COUNT", KindInteger), "12", "a.tsv")
	assert.True(t, ok)
	assert.Equal(t, int32(12), v.Int)
}

// ----------------------------------------------------------------------------
// ValueKind Tests
// ----------------------------------------------------------------------------

func TestParseValueKind(t *testing.T) {
	for kind, name := range valueKindNames {
		got, ok := ParseValueKind(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, got)
	}

	got, ok := ParseValueKind(" datetime ")
	assert.True(t, ok)
	assert.Equal(t, KindDateTime, got)

	_, ok = ParseValueKind("BLOB")
	assert.False(t, ok)

	var k ValueKind
	assert.Error(t, k.UnmarshalText([]byte("BLOB")))
	assert.Equal(t, "ValueKind(42)", ValueKind(42).String())
}

func TestTypedValue_Any(t *testing.T) {
	assert.Equal(t, "x", StringValue("x").Any())
	assert.Equal(t, int32(5), IntegerValue(5).Any())
	assert.Equal(t, int64(5), LongValue(5).Any())
	assert.Equal(t, int64(1579095900), DateTimeValue(1579095900).Any())
	assert.Equal(t, 1.5, DoubleValue(1.5).Any())
	assert.Equal(t, []byte{1}, ByteValue(1).Any())
}
