package core

// ingest.go drives one ingestion pass: find the tool's output files, assemble their rows
// into records and post the accumulated batch to the artifact store.
//
// File access policy is the same in both modes. Failing to walk the output directory
// fails the pass; failing to open or read one file is logged, recorded on its
// FileResult, and the pass moves on to the next file.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultContextCheckInterval is how many rows are read between cancellation checks.
const DefaultContextCheckInterval = 100

// IngestOptions configures an Ingestor.
type IngestOptions struct {
	// ModuleName is recorded on every attribute and passed to PostBatch.
	ModuleName string

	// FileExtension selects candidate files. Defaults to ".tsv".
	FileExtension string

	// MaxBatchRecords posts the batch early once it holds this many records.
	// Zero keeps the whole pass in one batch.
	MaxBatchRecords int

	// EnforceRequired rejects rows whose required column is missing from the header.
	EnforceRequired bool

	// ContextCheckInterval defaults to DefaultContextCheckInterval.
	ContextCheckInterval int

	Logger *slog.Logger
}

// FileResult summarizes one file of a pass.
type FileResult struct {
	Path           string `json:"path"`
	FileName       string `json:"fileName"`
	RecordType     string `json:"recordType,omitempty"`
	RowsRead       int    `json:"rowsRead"`
	RowsAccepted   int    `json:"rowsAccepted"`
	RowsRejected   int    `json:"rowsRejected"`
	RowsMismatched int    `json:"rowsMismatched"`
	CreateErrors   int    `json:"createErrors"`
	Bytes          int64  `json:"bytes"`
	Skipped        bool   `json:"skipped,omitempty"`
	Error          string `json:"error,omitempty"`
}

// PassResult summarizes one ingestion pass.
type PassResult struct {
	PassID         uuid.UUID     `json:"passId"`
	Mode           OwnerKind     `json:"mode"`
	OutputDir      string        `json:"outputDir"`
	Owner          Owner         `json:"owner"`
	Files          []FileResult  `json:"files"`
	RecordsCreated int           `json:"recordsCreated"`
	RecordsPosted  int           `json:"recordsPosted"`
	Batches        int           `json:"batches"`
	PostErrors     []string      `json:"postErrors,omitempty"`
	Cancelled      bool          `json:"cancelled"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
}

// Ingestor runs ingestion passes against one mapping and one artifact store.
// Passes are serialized; the batch of a running pass belongs to that pass alone.
type Ingestor struct {
	mapping   *Mapping
	store     ArtifactStore
	assembler *Assembler
	opts      IngestOptions
	logger    *slog.Logger

	// running holds one token while a pass runs.
	running chan struct{}
}

// NewIngestor creates an Ingestor.
func NewIngestor(mapping *Mapping, store ArtifactStore, opts IngestOptions) *Ingestor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FileExtension == "" {
		opts.FileExtension = ".tsv"
	}
	if opts.ContextCheckInterval <= 0 {
		opts.ContextCheckInterval = DefaultContextCheckInterval
	}
	return &Ingestor{
		mapping: mapping,
		store:   store,
		assembler: NewAssembler(AssemblerOptions{
			ModuleName:      opts.ModuleName,
			CommentType:     mapping.CommentType,
			EnforceRequired: opts.EnforceRequired,
			Logger:          opts.Logger,
		}),
		opts:    opts,
		logger:  opts.Logger,
		running: make(chan struct{}, 1),
	}
}

// Mapping returns the mapping the Ingestor was built with.
func (in *Ingestor) Mapping() *Mapping { return in.mapping }

// FindFiles walks root and returns the files whose lower-cased base name is a mapped
// file name. Paths are in lexical walk order.
func (in *Ingestor) FindFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), in.opts.FileExtension) {
			return nil
		}
		if in.mapping.Known(name) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", ErrFileAccess, root, err)
	}
	return files, nil
}

// ProcessFile runs a pass over outputDir attaching every record to a single source
// file owner.
func (in *Ingestor) ProcessFile(ctx context.Context, outputDir string, owner Owner) (*PassResult, error) {
	owner.Kind = OwnerFile
	return in.runPass(ctx, outputDir, owner)
}

// ProcessDataSource runs a pass over outputDir attaching every record to a data
// source root.
func (in *Ingestor) ProcessDataSource(ctx context.Context, outputDir string, owner Owner) (*PassResult, error) {
	owner.Kind = OwnerDataSource
	return in.runPass(ctx, outputDir, owner)
}

// Run dispatches on owner.Kind.
func (in *Ingestor) Run(ctx context.Context, outputDir string, owner Owner) (*PassResult, error) {
	switch owner.Kind {
	case OwnerFile:
		return in.ProcessFile(ctx, outputDir, owner)
	case OwnerDataSource, "":
		return in.ProcessDataSource(ctx, outputDir, owner)
	default:
		return nil, fmt.Errorf("unknown owner kind %q", owner.Kind)
	}
}

// pass is the state of one running pass.
type pass struct {
	result    *PassResult
	batch     []Record
	logger    *slog.Logger
	assembler *Assembler
}

// acquire waits for the running pass to finish. An idle Ingestor is taken even
// when ctx is already done, so that pass reports itself as cancelled; a caller
// still queued when ctx ends gets ErrCancelled.
func (in *Ingestor) acquire(ctx context.Context) error {
	select {
	case in.running <- struct{}{}:
		return nil
	default:
	}

	select {
	case in.running <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for the running pass: %w", ErrCancelled, ctx.Err())
	}
}

func (in *Ingestor) runPass(ctx context.Context, outputDir string, owner Owner) (*PassResult, error) {
	if err := in.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-in.running }()

	start := time.Now()
	p := &pass{
		result: &PassResult{
			PassID:    uuid.New(),
			Mode:      owner.Kind,
			OutputDir: outputDir,
			Owner:     owner,
			Files:     []FileResult{},
			StartedAt: start,
		},
	}
	p.logger = loggerFromContext(ctx, in.logger).With(
		"pass_id", p.result.PassID.String(),
		"mode", string(owner.Kind),
		"owner", owner.Name,
	)
	p.assembler = in.assembler.WithLogger(p.logger)
	p.logger.Info("ingestion pass started", "output_dir", outputDir, "caller", CallerFromContext(ctx))

	files, err := in.FindFiles(outputDir)
	if err != nil {
		p.logger.Error("failed to find output files", "error", err)
		return nil, err
	}

	for _, path := range files {
		if ctx.Err() != nil {
			p.result.Cancelled = true
			break
		}
		fr := in.processOne(ctx, p, path)
		p.result.Files = append(p.result.Files, fr)
		if ctx.Err() != nil {
			p.result.Cancelled = true
			break
		}
	}

	if len(p.batch) > 0 {
		in.flush(ctx, p)
	}

	p.result.Duration = time.Since(start)
	p.logger.Info("ingestion pass completed",
		"files", len(p.result.Files),
		"records_created", p.result.RecordsCreated,
		"records_posted", p.result.RecordsPosted,
		"batches", p.result.Batches,
		"cancelled", p.result.Cancelled,
		"duration_ms", p.result.Duration.Milliseconds(),
	)
	return p.result, nil
}

func (in *Ingestor) processOne(ctx context.Context, p *pass, path string) (fr FileResult) {
	fileName := strings.ToLower(filepath.Base(path))
	fr = FileResult{Path: path, FileName: fileName}

	plan, ok := in.mapping.Plan(fileName)
	if !ok {
		fr.Skipped = true
		p.logger.Debug("no processing rule for file, skipping", "file", fileName)
		return fr
	}
	fr.RecordType = plan.RecordType.Name

	f, err := os.Open(path)
	if err != nil {
		fr.Error = fmt.Errorf("%w: %v", ErrFileAccess, err).Error()
		p.logger.Error("failed to open output file", "file", path, "error", err)
		return fr
	}
	defer f.Close()

	rr := NewRowReader(f, fileName, p.logger)
	defer func() {
		stats := rr.Stats()
		fr.RowsMismatched = stats.Mismatched + stats.Malformed
		fr.Bytes = stats.Bytes
	}()

	idx, err := rr.Header()
	if errors.Is(err, io.EOF) {
		p.logger.Warn("output file is empty", "file", fileName)
		return fr
	}
	if err != nil {
		fr.Error = fmt.Errorf("%w: %v", ErrFileAccess, err).Error()
		p.logger.Error("failed to read output file", "file", path, "error", err)
		return fr
	}

	for row, err := range rr.Rows() {
		if err != nil {
			fr.Error = fmt.Errorf("%w: %v", ErrFileAccess, err).Error()
			p.logger.Error("failed to read output file", "file", path, "line", row.Line, "error", err)
			break
		}
		fr.RowsRead++

		out := p.assembler.Assemble(row, idx, plan)
		switch {
		case !out.Accepted:
			fr.RowsRejected++
		case len(out.Record.Attributes) == 0:
			// Nothing mapped survived; a record without attributes is not created.
			fr.RowsRejected++
		default:
			if in.create(ctx, p, plan, out.Record) {
				fr.RowsAccepted++
			} else {
				fr.CreateErrors++
			}
		}

		if fr.RowsRead%in.opts.ContextCheckInterval == 0 && ctx.Err() != nil {
			p.logger.Warn("ingestion cancelled", "file", fileName, "line", row.Line)
			break
		}
	}
	return fr
}

// create creates a record in the store and adds it to the batch.
func (in *Ingestor) create(ctx context.Context, p *pass, plan FilePlan, rec AssembledRecord) bool {
	record, err := in.store.CreateRecord(ctx, plan.RecordType, p.result.Owner, rec.Attributes)
	if err != nil {
		p.logger.Error("failed to create record",
			"record_type", plan.RecordType.Name,
			"file", plan.FileName,
			"error", err,
		)
		return false
	}
	p.batch = append(p.batch, record)
	p.result.RecordsCreated++

	if in.opts.MaxBatchRecords > 0 && len(p.batch) >= in.opts.MaxBatchRecords {
		in.flush(ctx, p)
	}
	return true
}

// flush posts the batch. A post failure is recorded and the records are dropped;
// there is no retry. Created records are posted even after cancellation.
func (in *Ingestor) flush(ctx context.Context, p *pass) {
	n := len(p.batch)
	p.result.Batches++
	if err := in.store.PostBatch(context.WithoutCancel(ctx), p.batch, in.opts.ModuleName); err != nil {
		p.result.PostErrors = append(p.result.PostErrors, err.Error())
		p.logger.Error("failed to post records", "records", n, "error", err)
	} else {
		p.result.RecordsPosted += n
		p.logger.Debug("records posted", "records", n)
	}
	p.batch = nil
}
