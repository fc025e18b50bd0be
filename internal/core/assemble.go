package core

// assemble.go turns one TSV row into a record's attribute set.
//
// The assembler has two failure granularities:
//
//  1. Attribute: a configured column is absent from the header. The attribute is
//     omitted and the row still produces a record (unless required columns are
//     enforced and the mapping is required).
//  2. Row: a located cell cannot be read or coerced. The whole row is dropped; the
//     assembler never emits a partial record.

import (
	"log/slog"
)

// FilePlan is everything needed to assemble rows of one output file.
type FilePlan struct {
	FileName   string
	RecordType RecordType
	Attributes []AttributeMapping
	Comment    string
	HasComment bool
}

// RowOutcome is the typed result of assembling one row.
type RowOutcome struct {
	Accepted bool
	Record   AssembledRecord
	Reason   RejectReason // set when !Accepted
	Column   string       // column that caused the rejection, if any
	Omitted  []string     // columns omitted because the header lacks them
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// ModuleName is recorded as the source of every attribute.
	ModuleName string

	// CommentType is the attribute type used for a file's fixed comment.
	CommentType AttributeType

	// EnforceRequired rejects a row when a required column is absent from the header.
	// When false, required and optional columns are omitted alike.
	EnforceRequired bool

	Logger *slog.Logger
}

// Assembler builds records from rows.
type Assembler struct {
	coercer *Coercer
	opts    AssemblerOptions
	logger  *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(opts AssemblerOptions) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CommentType.Name == "" {
		opts.CommentType = AttributeType{Name: CommentAttributeName, DisplayName: "Comment", Kind: KindString}
	}
	return &Assembler{
		coercer: NewCoercer(logger),
		opts:    opts,
		logger:  logger,
	}
}

// WithLogger returns a copy of a that logs to logger.
func (a *Assembler) WithLogger(logger *slog.Logger) *Assembler {
	c := *a
	c.logger = logger
	c.coercer = NewCoercer(logger)
	return &c
}

// Assemble builds the attribute set for row, or rejects it.
func (a *Assembler) Assemble(row Row, idx ColumnIndex, plan FilePlan) RowOutcome {
	switch {
	case idx.Empty():
		return RowOutcome{Reason: RejectEmptyIndex}
	case row.Len() == 0 || row.IsBlank():
		return RowOutcome{Reason: RejectEmptyRow}
	case row.Len() != idx.Len():
		a.logger.Warn("row column count does not match header",
			"file", plan.FileName,
			"line", row.Line,
			"expected", idx.Len(),
			"actual", row.Len(),
		)
		return RowOutcome{Reason: RejectWidthMismatch}
	}

	out := RowOutcome{}
	attrs := make([]Attribute, 0, len(plan.Attributes)+1)

	for _, m := range plan.Attributes {
		if m.Ignored() {
			continue
		}

		pos, ok := idx.Lookup(m.ColumnName)
		if !ok {
			if m.Required && a.opts.EnforceRequired {
				a.logger.Warn("required column missing, omitting row",
					"column", m.ColumnName,
					"file", plan.FileName,
					"line", row.Line,
				)
				return RowOutcome{Reason: RejectRequiredMissing, Column: m.ColumnName}
			}
			a.logger.Warn("no column mapping found, omitting column",
				"column", m.ColumnName,
				"file", plan.FileName,
			)
			out.Omitted = append(out.Omitted, m.ColumnName)
			continue
		}

		raw, ok := row.Cell(pos)
		if !ok {
			a.logger.Warn("no value found for column, omitting row",
				"column", m.ColumnName,
				"file", plan.FileName,
				"line", row.Line,
			)
			return RowOutcome{Reason: RejectValueUnobtainable, Column: m.ColumnName}
		}

		value, ok := a.coercer.Coerce(*m.AttributeType, raw, plan.FileName)
		if !ok {
			a.logger.Warn("attribute could not be parsed, omitting row",
				"column", m.ColumnName,
				"attribute_type", m.AttributeType.Name,
				"file", plan.FileName,
				"line", row.Line,
			)
			return RowOutcome{Reason: RejectValueUnresolvable, Column: m.ColumnName}
		}

		attrs = append(attrs, Attribute{
			Type:   *m.AttributeType,
			Value:  value,
			Source: a.opts.ModuleName,
		})
	}

	if plan.HasComment {
		attrs = append(attrs, Attribute{
			Type:   a.opts.CommentType,
			Value:  StringValue(plan.Comment),
			Source: a.opts.ModuleName,
		})
	}

	out.Accepted = true
	out.Record = AssembledRecord{Attributes: attrs}
	return out
}
