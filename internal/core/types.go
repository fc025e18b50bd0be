package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValueKind is the storage representation of an attribute value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindJSON
	KindInteger
	KindLong
	KindDouble
	KindByte
	KindDateTime
)

var valueKindNames = map[ValueKind]string{
	KindString:   "STRING",
	KindJSON:     "JSON",
	KindInteger:  "INTEGER",
	KindLong:     "LONG",
	KindDouble:   "DOUBLE",
	KindByte:     "BYTE",
	KindDateTime: "DATETIME",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// ParseValueKind converts a kind label such as "DATETIME" (case-insensitive) to a ValueKind.
func ParseValueKind(s string) (ValueKind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k, name := range valueKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by label.
func (k ValueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ValueKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseValueKind(string(b))
	if !ok {
		return fmt.Errorf("unknown value kind %q", string(b))
	}
	*k = parsed
	return nil
}

// RecordType is a named record schema known to the artifact store.
type RecordType struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`        // "TSK_WEB_HISTORY"
	DisplayName string `json:"displayName"` // "Web History"
}

// AttributeType is a named, typed field definition known to the artifact store.
type AttributeType struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Kind        ValueKind `json:"kind"`
}

// TypedValue holds one coerced cell. Only the field matching Kind is meaningful;
// DATETIME values are epoch seconds in Long.
type TypedValue struct {
	Kind   ValueKind `json:"kind"`
	Str    string    `json:"str,omitempty"`
	Int    int32     `json:"int,omitempty"`
	Long   int64     `json:"long,omitempty"`
	Double float64   `json:"double,omitempty"`
	Bytes  []byte    `json:"bytes,omitempty"`
}

func StringValue(s string) TypedValue      { return TypedValue{Kind: KindString, Str: s} }
func JSONValue(s string) TypedValue        { return TypedValue{Kind: KindJSON, Str: s} }
func IntegerValue(i int32) TypedValue      { return TypedValue{Kind: KindInteger, Int: i} }
func LongValue(i int64) TypedValue         { return TypedValue{Kind: KindLong, Long: i} }
func DoubleValue(f float64) TypedValue     { return TypedValue{Kind: KindDouble, Double: f} }
func ByteValue(b byte) TypedValue          { return TypedValue{Kind: KindByte, Bytes: []byte{b}} }
func DateTimeValue(epoch int64) TypedValue { return TypedValue{Kind: KindDateTime, Long: epoch} }

// Any returns the Go value for the active variant.
func (v TypedValue) Any() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindLong, KindDateTime:
		return v.Long
	case KindDouble:
		return v.Double
	case KindByte:
		return v.Bytes
	default:
		return v.Str
	}
}

func (v TypedValue) String() string {
	switch v.Kind {
	case KindByte:
		return fmt.Sprintf("%v", v.Bytes)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

// Attribute is one (type, value) pair of an assembled record.
type Attribute struct {
	Type   AttributeType `json:"type"`
	Value  TypedValue    `json:"value"`
	Source string        `json:"source"` // module that produced the value
}

// AssembledRecord is the attribute set built from one accepted row.
type AssembledRecord struct {
	Attributes []Attribute
}

// OwnerKind tells whether records are attached to a single file or a data source root.
type OwnerKind string

const (
	OwnerFile       OwnerKind = "file"
	OwnerDataSource OwnerKind = "datasource"
)

// Owner is the content object records are attached to.
type Owner struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind OwnerKind `json:"kind"`
}

// Record is a record created in the artifact store and waiting to be posted.
type Record struct {
	ID         uuid.UUID   `json:"id"`
	Type       RecordType  `json:"type"`
	Owner      Owner       `json:"owner"`
	Attributes []Attribute `json:"attributes"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// FileMapping is one known output file of the external tool.
type FileMapping struct {
	FileName    string `json:"fileName"` // lower-cased
	Description string `json:"description"`
}

// RecordTypeMapping binds a file to the record type its rows produce.
type RecordTypeMapping struct {
	FileName   string     `json:"fileName"`
	RecordType RecordType `json:"recordType"`
	Comment    string     `json:"comment,omitempty"`
	HasComment bool       `json:"hasComment"`
}

// AttributeMapping binds one column of a file to an attribute type.
// A nil AttributeType marks a column that is deliberately ignored, or one whose
// type could not be resolved at load time.
type AttributeMapping struct {
	FileName      string         `json:"fileName"`
	AttributeName string         `json:"attributeName"` // as written in the document
	AttributeType *AttributeType `json:"attributeType,omitempty"`
	ColumnName    string         `json:"columnName"` // trimmed, lower-cased
	Required      bool           `json:"required"`
}

// Ignored reports whether the mapping never produces an attribute.
func (m AttributeMapping) Ignored() bool {
	return m.AttributeType == nil
}

// ColumnIndex maps lower-cased, trimmed header names to their position.
// Width is the header's cell count, which every data row must match.
type ColumnIndex struct {
	positions map[string]int
	width     int
}

// NewColumnIndex builds a ColumnIndex from a header row.
// When two header cells normalize to the same key, the first position wins.
func NewColumnIndex(header []string) ColumnIndex {
	idx := ColumnIndex{
		positions: make(map[string]int, len(header)),
		width:     len(header),
	}
	for i, h := range header {
		key := normalizeColumnName(h)
		if _, seen := idx.positions[key]; seen {
			continue
		}
		idx.positions[key] = i
	}
	return idx
}

// Lookup returns the position of a column.
func (c ColumnIndex) Lookup(name string) (int, bool) {
	pos, ok := c.positions[normalizeColumnName(name)]
	return pos, ok
}

// Len returns the header width.
func (c ColumnIndex) Len() int { return c.width }

// Empty reports whether no header was read.
func (c ColumnIndex) Empty() bool { return c.width == 0 || len(c.positions) == 0 }

// Columns returns the distinct column keys.
func (c ColumnIndex) Columns() []string {
	cols := make([]string, 0, len(c.positions))
	for name := range c.positions {
		cols = append(cols, name)
	}
	sort.Slice(cols, func(i, j int) bool {
		return c.positions[cols[i]] < c.positions[cols[j]]
	})
	return cols
}

func normalizeColumnName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
