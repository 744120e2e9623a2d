package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ddtft/internal/domain"
	"ddtft/internal/export"
	"ddtft/internal/layout"
	"ddtft/internal/pipeline"
	"ddtft/internal/port"
	s3store "ddtft/internal/storage/s3"
	"ddtft/internal/validator"
)

const defaultExportLimit = 1000

// ExtractInput is the DTO for extracting one document from text.
type ExtractInput struct {
	Text     string
	Hints    [][]layout.Fragment
	FileName string
	// Source is archived instead of Text when set, e.g. the uploaded PDF.
	Source    []byte
	CreatedBy string
}

// PDFInput is the DTO for extracting one uploaded PDF.
type PDFInput struct {
	FileName  string
	Data      []byte
	CreatedBy string
}

// ExtractionResult is a stored extraction with its decoded payloads.
type ExtractionResult struct {
	Record      *domain.ExtractionRecord `json:"record"`
	Document    *domain.Document         `json:"document"`
	Diagnostics []domain.Diagnostic      `json:"diagnostics"`
	Report      *validator.Report        `json:"validation"`
	Cached      bool                     `json:"cached"`
}

// BatchItemResult is one entry of ExtractBatch, in input order.
type BatchItemResult struct {
	Index    int
	FileName string
	Result   *ExtractionResult
	Err      error
}

// ExtractionServiceConfig carries the host settings of the service. Timeout
// bounds single extractions; batches use the engine's own per-document budget
// and concurrency.
type ExtractionServiceConfig struct {
	Bucket         string
	PresignExpiry  int64
	Timeout        time.Duration
	MaxSourceBytes int64
	SheetName      string
	ExportLimit    int
}

// ExtractionDeps groups the collaborators of the service. Repo and Storage may
// be nil: results are then neither persisted nor archived.
type ExtractionDeps struct {
	Engine     *pipeline.Engine
	Validator  *validator.Engine
	Repo       port.ExtractionRepository
	Storage    port.ObjectStorage
	Cache      port.ResultCache
	TextSource port.TextSource
	Logger     zerolog.Logger
}

// ExtractionService defines extraction, lookup and export operations.
type ExtractionService interface {
	Extract(ctx context.Context, input *ExtractInput) (*ExtractionResult, error)
	ExtractPDF(ctx context.Context, input *PDFInput) (*ExtractionResult, error)
	ExtractBatch(ctx context.Context, inputs []ExtractInput) []BatchItemResult
	GetByID(ctx context.Context, id uuid.UUID) (*ExtractionResult, error)
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
	Export(ctx context.Context, ids []uuid.UUID, format domain.ExportFormat, w io.Writer) error
	SourceURL(ctx context.Context, id uuid.UUID) (string, error)
	Reextract(ctx context.Context, id uuid.UUID, createdBy string) (*ExtractionResult, error)
}

type extractionService struct {
	deps ExtractionDeps
	cfg  ExtractionServiceConfig
	log  zerolog.Logger
	now  func() time.Time
}

// NewExtractionService creates a new ExtractionService.
func NewExtractionService(deps ExtractionDeps, cfg ExtractionServiceConfig) ExtractionService {
	if cfg.SheetName == "" {
		cfg.SheetName = export.DefaultSheetName
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = defaultExportLimit
	}
	return &extractionService{deps: deps, cfg: cfg, log: deps.Logger, now: time.Now}
}

// ContentHash identifies an input for caching. It covers the file name, which
// can decide the document type and number.
func ContentHash(text, fileName string, hints [][]layout.Fragment) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(fileName))
	if len(hints) > 0 {
		h.Write([]byte{0})
		b, _ := json.Marshal(hints)
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *extractionService) Extract(ctx context.Context, input *ExtractInput) (*ExtractionResult, error) {
	hash := ContentHash(input.Text, input.FileName, input.Hints)

	if res, ok := s.lookup(ctx, hash); ok {
		return res, nil
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()
	doc, diags, err := s.deps.Engine.ExtractContext(runCtx, pipeline.Input{
		Text: input.Text, Hints: input.Hints, FileName: input.FileName,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("file", input.FileName).Msg("service.extractionService: extraction failed")
		return nil, err
	}
	return s.store(ctx, input, hash, doc, diags, "")
}

func (s *extractionService) ExtractPDF(ctx context.Context, input *PDFInput) (*ExtractionResult, error) {
	in, err := s.pdfInput(ctx, input.FileName, input.Data, input.CreatedBy)
	if err != nil {
		return nil, err
	}
	return s.Extract(ctx, in)
}

// ExtractBatch serves repeated inputs from the cache and hands the rest to the
// engine's batch run. Results keep input order.
func (s *extractionService) ExtractBatch(ctx context.Context, inputs []ExtractInput) []BatchItemResult {
	results := make([]BatchItemResult, len(inputs))
	hashes := make([]string, len(inputs))

	var pending []int
	var runs []pipeline.Input
	for i := range inputs {
		in := &inputs[i]
		results[i] = BatchItemResult{Index: i, FileName: in.FileName}
		hashes[i] = ContentHash(in.Text, in.FileName, in.Hints)
		if res, ok := s.lookup(ctx, hashes[i]); ok {
			results[i].Result = res
			continue
		}
		pending = append(pending, i)
		runs = append(runs, pipeline.Input{Text: in.Text, Hints: in.Hints, FileName: in.FileName})
	}

	for j, out := range s.deps.Engine.ExtractBatch(ctx, runs) {
		i := pending[j]
		if out.Err != nil {
			results[i].Err = out.Err
			continue
		}
		results[i].Result, results[i].Err = s.store(ctx, &inputs[i], hashes[i], out.Document, out.Diagnostics, "")
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Info().Int("documents", len(inputs)).Int("failed", failed).Msg("service.extractionService: batch finished")
	return results
}

func (s *extractionService) GetByID(ctx context.Context, id uuid.UUID) (*ExtractionResult, error) {
	if s.deps.Repo == nil {
		return nil, domain.ErrExtractionNotFound
	}
	rec, err := s.deps.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(ctx, rec)
}

func (s *extractionService) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	if s.deps.Repo == nil {
		return []domain.ExtractionRecord{}, 0, nil
	}
	return s.deps.Repo.List(ctx, offset, limit)
}

func (s *extractionService) Export(ctx context.Context, ids []uuid.UUID, format domain.ExportFormat, w io.Writer) error {
	if !domain.ValidExportFormats[format] {
		return domain.ErrInvalidExportFormat
	}
	var recs []domain.ExtractionRecord
	if s.deps.Repo != nil {
		var err error
		if len(ids) > 0 {
			recs, err = s.deps.Repo.ListByIDs(ctx, ids)
		} else {
			recs, _, err = s.deps.Repo.List(ctx, 0, s.cfg.ExportLimit)
		}
		if err != nil {
			return fmt.Errorf("loading extractions: %w", err)
		}
	}
	return export.Write(w, format, recs, s.cfg.SheetName)
}

func (s *extractionService) SourceURL(ctx context.Context, id uuid.UUID) (string, error) {
	if s.deps.Repo == nil {
		return "", domain.ErrExtractionNotFound
	}
	rec, err := s.deps.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.SourceKey == "" || s.deps.Storage == nil {
		return "", domain.ErrSourceNotArchived
	}
	return s.deps.Storage.GetPresignedURL(ctx, s.cfg.Bucket, rec.SourceKey, s.cfg.PresignExpiry)
}

// Reextract runs the current engine over the archived source of a stored
// extraction and stores the outcome as a new record sharing the same source
// object. The cache is bypassed.
func (s *extractionService) Reextract(ctx context.Context, id uuid.UUID, createdBy string) (*ExtractionResult, error) {
	if s.deps.Repo == nil {
		return nil, domain.ErrExtractionNotFound
	}
	rec, err := s.deps.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.SourceKey == "" || s.deps.Storage == nil {
		return nil, domain.ErrSourceNotArchived
	}

	data, err := s.deps.Storage.Download(ctx, s.cfg.Bucket, rec.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("downloading source: %w", err)
	}

	in := &ExtractInput{Text: string(data), FileName: rec.FileName, Source: data, CreatedBy: createdBy}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		if in, err = s.pdfInput(ctx, rec.FileName, data, createdBy); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()
	doc, diags, err := s.deps.Engine.ExtractContext(runCtx, pipeline.Input{
		Text: in.Text, Hints: in.Hints, FileName: in.FileName,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("extraction_id", id.String()).Msg("service.extractionService: re-extraction failed")
		return nil, err
	}

	res, err := s.store(ctx, in, ContentHash(in.Text, in.FileName, in.Hints), doc, diags, rec.SourceKey)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("extraction_id", res.Record.ID.String()).
		Str("previous_id", id.String()).
		Msg("service.extractionService: source re-extracted")
	return res, nil
}

// store validates doc and persists it. An empty sourceKey archives the input
// first; the archived object is removed again when the record cannot be
// stored.
func (s *extractionService) store(
	ctx context.Context, input *ExtractInput, hash string, doc *domain.Document, diags []domain.Diagnostic, sourceKey string,
) (*ExtractionResult, error) {
	report := s.deps.Validator.ValidateDocument(ctx, doc)
	rec, err := s.buildRecord(doc, diags, report, input, hash)
	if err != nil {
		return nil, err
	}

	if sourceKey != "" {
		rec.SourceKey = sourceKey
	} else {
		s.archive(ctx, rec, input)
	}

	if s.deps.Repo != nil {
		if err := s.deps.Repo.Create(ctx, rec); err != nil {
			if sourceKey == "" {
				s.discardSource(ctx, rec)
			}
			return nil, fmt.Errorf("storing extraction: %w", err)
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, hash, rec); err != nil {
			s.log.Warn().Err(err).Str("hash", hash).Msg("service.extractionService: cache set failed")
		}
	}

	s.log.Info().
		Str("extraction_id", rec.ID.String()).
		Str("file", rec.FileName).
		Str("type", string(rec.DocumentType)).
		Str("validation", string(rec.ValidationStatus)).
		Int("diagnostics", len(diags)).
		Msg("service.extractionService: document extracted")

	return &ExtractionResult{Record: rec, Document: doc, Diagnostics: diags, Report: report}, nil
}

// pdfInput turns an uploaded PDF into extraction input with position hints.
func (s *extractionService) pdfInput(ctx context.Context, fileName string, data []byte, createdBy string) (*ExtractInput, error) {
	if s.cfg.MaxSourceBytes > 0 && int64(len(data)) > s.cfg.MaxSourceBytes {
		return nil, domain.ErrSourceTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, domain.ErrUnsupportedFileType
	}
	if s.deps.TextSource == nil {
		return nil, fmt.Errorf("%w: no text source configured", domain.ErrUnsupportedFileType)
	}

	src, err := s.deps.TextSource.ExtractText(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFileType, err)
	}
	return &ExtractInput{
		Text:      src.Text,
		Hints:     src.Hints,
		FileName:  fileName,
		Source:    data,
		CreatedBy: createdBy,
	}, nil
}

// lookup serves a previous extraction of the same input from the cache, then
// from the repository.
func (s *extractionService) lookup(ctx context.Context, hash string) (*ExtractionResult, bool) {
	if s.deps.Cache != nil {
		rec, err := s.deps.Cache.Get(ctx, hash)
		switch {
		case err == nil:
			if res, derr := s.decode(ctx, rec); derr == nil {
				res.Cached = true
				return res, true
			}
		case !errors.Is(err, domain.ErrCacheMiss):
			s.log.Warn().Err(err).Str("hash", hash).Msg("service.extractionService: cache get failed")
		}
	}

	if s.deps.Repo == nil {
		return nil, false
	}
	rec, err := s.deps.Repo.GetByContentHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, domain.ErrExtractionNotFound) {
			s.log.Warn().Err(err).Str("hash", hash).Msg("service.extractionService: lookup by hash failed")
		}
		return nil, false
	}
	res, err := s.decode(ctx, rec)
	if err != nil {
		return nil, false
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, hash, rec); err != nil {
			s.log.Warn().Err(err).Str("hash", hash).Msg("service.extractionService: cache set failed")
		}
	}
	res.Cached = true
	return res, true
}

func (s *extractionService) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *extractionService) buildRecord(
	doc *domain.Document, diags []domain.Diagnostic, report *validator.Report, input *ExtractInput, hash string,
) (*domain.ExtractionRecord, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	if diags == nil {
		diags = []domain.Diagnostic{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return nil, fmt.Errorf("marshaling diagnostics: %w", err)
	}
	resultsJSON, err := json.Marshal(report.Results)
	if err != nil {
		return nil, fmt.Errorf("marshaling validation results: %w", err)
	}
	return &domain.ExtractionRecord{
		ID:                uuid.New(),
		FileName:          input.FileName,
		DocumentType:      doc.Type,
		Document:          docJSON,
		Diagnostics:       diagJSON,
		ValidationStatus:  report.Status,
		ValidationResults: resultsJSON,
		ContentHash:       hash,
		CreatedBy:         input.CreatedBy,
		CreatedAt:         s.now().UTC(),
	}, nil
}

// archive uploads the source. A failed upload leaves SourceKey empty and the
// extraction is still stored.
func (s *extractionService) archive(ctx context.Context, rec *domain.ExtractionRecord, input *ExtractInput) {
	if s.deps.Storage == nil || s.cfg.Bucket == "" {
		return
	}
	body := input.Source
	name := input.FileName
	if body == nil {
		body = []byte(input.Text)
		if name == "" {
			name = "source.txt"
		}
	}
	key := s3store.SourceKey(rec.ID, name, rec.CreatedAt)
	_, err := s.deps.Storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: s3store.ContentType(name),
		Size:        int64(len(body)),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("extraction_id", rec.ID.String()).Msg("service.extractionService: source upload failed")
		return
	}
	rec.SourceKey = key
}

func (s *extractionService) discardSource(ctx context.Context, rec *domain.ExtractionRecord) {
	if rec.SourceKey == "" {
		return
	}
	if err := s.deps.Storage.Delete(ctx, s.cfg.Bucket, rec.SourceKey); err != nil {
		s.log.Warn().Err(err).Str("key", rec.SourceKey).Msg("service.extractionService: orphaned source not removed")
		return
	}
	rec.SourceKey = ""
}

// decode rebuilds a result from a stored record, rerunning validation on the
// decoded document.
func (s *extractionService) decode(ctx context.Context, rec *domain.ExtractionRecord) (*ExtractionResult, error) {
	doc, err := rec.DecodeDocument()
	if err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", rec.ID, err)
	}
	diags, err := rec.DecodeDiagnostics()
	if err != nil {
		return nil, fmt.Errorf("decoding diagnostics %s: %w", rec.ID, err)
	}
	return &ExtractionResult{
		Record:      rec,
		Document:    doc,
		Diagnostics: diags,
		Report:      s.deps.Validator.ValidateDocument(ctx, doc),
	}, nil
}
