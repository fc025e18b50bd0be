package core

// mapping.go loads the mapping document that binds tool output files to record types
// and columns to attribute types.
//
// Loading is deliberately forgiving past the parse step: an unknown type or a suspicious
// column name is logged and loading continues. Only an unreadable or malformed document
// fails the load.

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DocumentFormat selects the mapping document encoding.
type DocumentFormat string

const (
	FormatXML  DocumentFormat = "xml"
	FormatYAML DocumentFormat = "yaml"
)

// nullMarker is the document's spelling of "no value" for attribute names and comments.
const nullMarker = "null"

// FormatForPath picks a DocumentFormat from a file extension.
func FormatForPath(path string) (DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported mapping extension %q", ErrConfigParse, filepath.Ext(path))
	}
}

// mappingDocument is the decoded form of both encodings. In XML the root element name
// is not significant; FileName elements are read from directly beneath it.
type mappingDocument struct {
	Files []documentFile `xml:"FileName" yaml:"files"`
}

type documentFile struct {
	FileName    string             `xml:"filename,attr" yaml:"filename"`
	Description string             `xml:"description,attr" yaml:"description"`
	Artifacts   []documentArtifact `xml:"ArtifactName" yaml:"artifacts"`
}

type documentArtifact struct {
	ArtifactName string              `xml:"artifactname,attr" yaml:"artifactname"`
	Comment      *string             `xml:"comment,attr" yaml:"comment"`
	Attributes   []documentAttribute `xml:"AttributeName" yaml:"attributes"`
}

type documentAttribute struct {
	AttributeName *string `xml:"attributename,attr" yaml:"attributename"`
	ColumnName    *string `xml:"columnName,attr" yaml:"columnName"`
	Required      *string `xml:"required,attr" yaml:"required"`
}

// Mapping holds the three tables loaded from a mapping document.
// It is read-only once LoadMapping returns.
type Mapping struct {
	Source      string
	Files       map[string]FileMapping
	RecordTypes map[string]RecordTypeMapping
	Attributes  map[string][]AttributeMapping
	CommentType AttributeType
}

// Known reports whether fileName (any case) is a mapped output file.
func (m *Mapping) Known(fileName string) bool {
	_, ok := m.Files[strings.ToLower(fileName)]
	return ok
}

// Plan returns the FilePlan for fileName. ok is false when the file has no record type
// or no attribute list, which means the file has no processing rule.
func (m *Mapping) Plan(fileName string) (FilePlan, bool) {
	key := strings.ToLower(fileName)
	rt, ok := m.RecordTypes[key]
	if !ok {
		return FilePlan{}, false
	}
	attrs, ok := m.Attributes[key]
	if !ok {
		return FilePlan{}, false
	}
	return FilePlan{
		FileName:   key,
		RecordType: rt.RecordType,
		Attributes: attrs,
		Comment:    rt.Comment,
		HasComment: rt.HasComment,
	}, true
}

// FileNames returns the mapped file names, sorted.
func (m *Mapping) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileDescription is one mapped file as listed by the API and the CLI.
type FileDescription struct {
	FileName    string              `json:"fileName" yaml:"filename"`
	Description string              `json:"description" yaml:"description"`
	RecordType  string              `json:"recordType,omitempty" yaml:"recordType,omitempty"`
	Comment     string              `json:"comment,omitempty" yaml:"comment,omitempty"`
	Columns     []ColumnDescription `json:"columns" yaml:"columns"`
}

// ColumnDescription is one attribute mapping of a file.
type ColumnDescription struct {
	Column        string `json:"column" yaml:"column"`
	AttributeType string `json:"attributeType,omitempty" yaml:"attributeType,omitempty"`
	ValueKind     string `json:"valueKind,omitempty" yaml:"valueKind,omitempty"`
	Required      bool   `json:"required" yaml:"required"`
	Ignored       bool   `json:"ignored" yaml:"ignored"`
}

// Describe flattens the mapping tables, sorted by file name. A file whose record
// type did not resolve has an empty RecordType.
func (m *Mapping) Describe() []FileDescription {
	out := make([]FileDescription, 0, len(m.Files))
	for _, name := range m.FileNames() {
		fm := m.Files[name]
		d := FileDescription{FileName: fm.FileName, Description: fm.Description, Columns: []ColumnDescription{}}
		if rt, ok := m.RecordTypes[name]; ok {
			d.RecordType = rt.RecordType.Name
			d.Comment = rt.Comment
		}
		for _, am := range m.Attributes[name] {
			col := ColumnDescription{Column: am.ColumnName, Required: am.Required, Ignored: am.Ignored()}
			if am.AttributeType != nil {
				col.AttributeType = am.AttributeType.Name
				col.ValueKind = am.AttributeType.Kind.String()
			}
			d.Columns = append(d.Columns, col)
		}
		out = append(out, d)
	}
	return out
}

// LoadOptions configures LoadMapping.
type LoadOptions struct {
	// Source names the document in log messages.
	Source string

	// CustomRecordTypes are registered before any record type is resolved.
	// Nil means CustomRecordTypes.
	CustomRecordTypes map[string]string

	Logger *slog.Logger
}

// LoadMappingFile opens path and loads it with the format implied by its extension.
func LoadMappingFile(ctx context.Context, path string, reg TypeRegistry, opts LoadOptions) (*Mapping, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfigParse, path, err)
	}
	defer f.Close()

	if opts.Source == "" {
		opts.Source = path
	}
	return LoadMapping(ctx, f, format, reg, opts)
}

// LoadMapping decodes a mapping document and resolves its types against reg.
func LoadMapping(ctx context.Context, r io.Reader, format DocumentFormat, reg TypeRegistry, opts LoadOptions) (*Mapping, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("mapping", opts.Source)

	doc, err := decodeDocument(r, format)
	if err != nil {
		return nil, err
	}

	custom := opts.CustomRecordTypes
	if custom == nil {
		custom = CustomRecordTypes
	}
	registerCustomTypes(ctx, reg, custom, logger)

	m := &Mapping{
		Source:      opts.Source,
		Files:       make(map[string]FileMapping, len(doc.Files)),
		RecordTypes: make(map[string]RecordTypeMapping),
		Attributes:  make(map[string][]AttributeMapping),
	}

	m.CommentType, err = reg.ResolveAttributeType(ctx, CommentAttributeName)
	if err != nil {
		logger.Warn("comment attribute type not found, using built-in definition", "error", err)
		m.CommentType = AttributeType{Name: CommentAttributeName, DisplayName: "Comment", Kind: KindString}
	}

	for _, f := range doc.Files {
		if strings.TrimSpace(f.FileName) == "" {
			return nil, fmt.Errorf("%w: FileName element without filename attribute", ErrConfigParse)
		}
		key := strings.ToLower(f.FileName)
		m.Files[key] = FileMapping{FileName: key, Description: f.Description}

		for _, a := range f.Artifacts {
			m.loadRecordType(ctx, reg, key, a, logger)
			for _, attr := range a.Attributes {
				m.loadAttribute(ctx, reg, key, attr, logger)
			}
		}
	}

	logger.Info("mapping loaded",
		"files", len(m.Files),
		"record_types", len(m.RecordTypes),
		"attribute_lists", len(m.Attributes),
	)
	return m, nil
}

func decodeDocument(r io.Reader, format DocumentFormat) (*mappingDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrConfigParse, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrConfigParse)
	}

	var doc mappingDocument
	switch format {
	case FormatXML:
		err = xml.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return &doc, nil
}

func registerCustomTypes(ctx context.Context, reg TypeRegistry, custom map[string]string, logger *slog.Logger) {
	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := reg.RegisterRecordType(ctx, name, custom[name]); err != nil {
			logger.Warn("failed to register custom record type", "record_type", name, "error", err)
		}
	}
}

func (m *Mapping) loadRecordType(ctx context.Context, reg TypeRegistry, fileKey string, a documentArtifact, logger *slog.Logger) {
	rt, err := reg.ResolveRecordType(ctx, a.ArtifactName)
	if err != nil {
		logger.Error("no known record type mapping found",
			"record_type", a.ArtifactName,
			"filename", fileKey,
			"error", err,
		)
		return
	}

	rtm := RecordTypeMapping{FileName: fileKey, RecordType: rt}
	if a.Comment != nil && !strings.EqualFold(*a.Comment, nullMarker) {
		rtm.Comment = *a.Comment
		rtm.HasComment = true
	}
	m.RecordTypes[fileKey] = rtm
}

func (m *Mapping) loadAttribute(ctx context.Context, reg TypeRegistry, fileKey string, a documentAttribute, logger *slog.Logger) {
	column := ""
	if a.ColumnName != nil {
		column = *a.ColumnName
	}
	// An absent name (YAML null) is the same as the literal "null".
	name := nullMarker
	if a.AttributeName != nil {
		name = *a.AttributeName
	}

	am := AttributeMapping{
		FileName:      fileKey,
		AttributeName: name,
		ColumnName:    normalizeColumnName(column),
	}

	if strings.EqualFold(name, nullMarker) {
		m.Attributes[fileKey] = append(m.Attributes[fileKey], am)
		return
	}

	attrLog := logger.With("attribute", name, "filename", fileKey)

	at, err := reg.ResolveAttributeType(ctx, strings.ToUpper(name))
	if err != nil {
		attrLog.Error("no known attribute mapping found", "error", err)
	} else {
		am.AttributeType = &at
	}

	required := ""
	if a.Required != nil {
		required = *a.Required
	}
	if !strings.EqualFold(required, "yes") && !strings.EqualFold(required, "no") {
		attrLog.Error("required value did not match 'yes' or 'no'", "required", required)
	}
	am.Required = strings.EqualFold(required, "yes")

	switch {
	case a.ColumnName == nil || column == "":
		attrLog.Error("no column name provided")
	case strings.TrimSpace(column) != column:
		attrLog.Error("column name starts or ends with whitespace", "column", column)
	case strings.IndexFunc(column, invalidColumnRune) >= 0:
		attrLog.Error("column name contains invalid characters", "column", column)
	}

	m.Attributes[fileKey] = append(m.Attributes[fileKey], am)
}

// invalidColumnRune matches whitespace other than a plain space, and control characters.
func invalidColumnRune(r rune) bool {
	return (unicode.IsSpace(r) && r != ' ') || unicode.IsControl(r)
}
