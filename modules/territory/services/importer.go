package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/archive"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/document"
	"github.com/iota-uz/territory-status/pkg/runlock"
)

const (
	ImportLockKey = "territory-status:import"

	StateDryRun importsession.State = "dry_run"

	defaultProgressEvery        = 50
	defaultSuggestionLimit      = 3
	defaultMaxConsecutiveFaults = 25
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable")

	importNamespace = uuid.MustParse("6f1c3c1e-8a53-4c55-9a8e-3f5a2d7b9e10")
)

// SourceArchive keeps a copy of every applied source document.
type SourceArchive interface {
	Put(ctx context.Context, key string, data []byte, opts archive.PutOptions) (archive.Info, error)
}

type ImportServiceOptions struct {
	Archive SourceArchive
	Locker  runlock.Locker
	Logger  *logrus.Entry
	Tracer  trace.Tracer

	// ProgressEvery is how many rows pass between best-effort session saves.
	ProgressEvery   int
	SuggestionLimit int
	// MaxConsecutiveFaults aborts the run once that many rows in a row fail
	// on storage errors; isolated failures stay row-scoped.
	MaxConsecutiveFaults int
	Now                  func() time.Time
}

func (o *ImportServiceOptions) setDefaults() {
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("github.com/iota-uz/territory-status/modules/territory/services")
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = defaultProgressEvery
	}
	if o.SuggestionLimit <= 0 {
		o.SuggestionLimit = defaultSuggestionLimit
	}
	if o.MaxConsecutiveFaults <= 0 {
		o.MaxConsecutiveFaults = defaultMaxConsecutiveFaults
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ImportService runs the document-to-history pipeline.
type ImportService struct {
	registry territory.Registry
	sessions importsession.Repository
	opts     ImportServiceOptions
}

func NewImportService(registry territory.Registry, sessions importsession.Repository, opts ImportServiceOptions) *ImportService {
	opts.setDefaults()
	return &ImportService{registry: registry, sessions: sessions, opts: opts}
}

type ImportRequest struct {
	Path    string
	Profile ImportProfile
	// ImportID overrides the content-derived identifier.
	ImportID string
	Apply    bool
	CodeOnly bool
}

type TableReport struct {
	Ordinal       int              `json:"ordinal"`
	Status        territory.Status `json:"status"`
	DataRows      int              `json:"data_rows"`
	HeaderRows    int              `json:"header_rows"`
	DiscardedRows int              `json:"discarded_rows"`
}

type ImportReport struct {
	RunID        string              `json:"run_id"`
	ImportID     string              `json:"import_id"`
	State        importsession.State `json:"state"`
	Applied      bool                `json:"applied"`
	DocumentName string              `json:"document_name"`
	ArchiveKey   string              `json:"archive_key,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`

	Tables     []TableReport `json:"tables"`
	TotalRows  int           `json:"total_rows"`
	Processed  int           `json:"processed"`
	Resolved   int           `json:"resolved"`
	Imported   int           `json:"imported"`
	Duplicates int           `json:"duplicates"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`

	Unresolved []importsession.UnresolvedRow `json:"unresolved,omitempty"`
}

// Import reads the document at req.Path and runs the pipeline on it.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	raw, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, document.NewFormatError(req.Path, "cannot open", err)
	}
	doc, err := document.Parse(req.Path, raw)
	if err != nil {
		return nil, err
	}
	return s.ImportDocument(ctx, doc, raw, req)
}

// ImportDocument runs the pipeline on an already parsed document. raw is
// archived when an archive is configured; it may be nil.
func (s *ImportService) ImportDocument(ctx context.Context, doc document.Document, raw []byte, req ImportRequest) (_ *ImportReport, err error) {
	ctx, span := s.opts.Tracer.Start(ctx, "territory.import")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	profile := req.Profile
	if profile.DocumentName == "" {
		profile.DocumentName = DefaultProfile(doc.Name).DocumentName
	}
	if err := profile.ValidationError(); err != nil {
		return nil, err
	}

	tables, err := s.extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	run := &importRun{
		service:  s,
		req:      req,
		profile:  profile,
		resolver: NewResolver(s.registry, ResolverOptions{CodeOnly: req.CodeOnly}),
		merger:   NewMerger(s.registry),
		logger:   s.opts.Logger,
		report: &ImportReport{
			RunID:        uuid.New().String(),
			ImportID:     strings.TrimSpace(req.ImportID),
			Applied:      req.Apply,
			DocumentName: profile.DocumentName,
			StartedAt:    s.opts.Now().UTC(),
		},
	}
	run.merger.now = s.opts.Now
	if run.report.ImportID == "" {
		run.report.ImportID = DeriveImportID(profile, tables)
	}
	run.logger = run.logger.WithFields(logrus.Fields{"run_id": run.report.RunID, "import_id": run.report.ImportID})
	for _, t := range tables {
		run.report.Tables = append(run.report.Tables, TableReport{
			Ordinal:       t.Ordinal,
			Status:        t.Layout.Status,
			DataRows:      len(t.Rows),
			HeaderRows:    t.HeaderRows,
			DiscardedRows: t.DiscardedRows,
		})
		run.report.TotalRows += len(t.Rows)
	}
	span.SetAttributes(
		attribute.String("import.id", run.report.ImportID),
		attribute.String("import.run_id", run.report.RunID),
		attribute.Bool("import.apply", req.Apply),
		attribute.Int("import.rows", run.report.TotalRows),
	)

	if !req.Apply {
		err = run.execute(ctx, tables)
		run.report.State = StateDryRun
		run.report.FinishedAt = s.opts.Now().UTC()
		return run.report, err
	}

	if s.opts.Locker != nil {
		lease, err := s.opts.Locker.Acquire(ctx, ImportLockKey)
		if err != nil {
			return nil, errors.Wrap(err, "acquire import lock")
		}
		defer func() {
			if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				run.logger.WithError(rerr).Warn("release import lock")
			}
		}()
	}

	run.archiveSource(ctx, raw, doc.Name)
	run.openSession(ctx, len(tables))

	runErr := run.execute(ctx, tables)
	state := importsession.StateCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		state = importsession.StateCancelled
	default:
		state = importsession.StateError
	}
	run.finish(ctx, state, runErr)

	span.SetAttributes(
		attribute.Int("import.imported", run.report.Imported),
		attribute.Int("import.duplicates", run.report.Duplicates),
		attribute.Int("import.errors", run.report.Errors),
	)
	return run.report, runErr
}

func (s *ImportService) extract(ctx context.Context, doc document.Document) ([]ExtractedTable, error) {
	_, span := s.opts.Tracer.Start(ctx, "territory.import.extract")
	defer span.End()
	tables, err := ExtractTables(doc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("document.tables", len(doc.Tables)))
	return tables, nil
}

// DeriveImportID is stable for the same document name, version and table
// content, so re-running a document deduplicates against the first run.
func DeriveImportID(profile ImportProfile, tables []ExtractedTable) string {
	h := sha256.New()
	for _, t := range tables {
		fmt.Fprintf(h, "#%d\n", t.Ordinal)
		for _, r := range t.Rows {
			h.Write([]byte(strings.Join(r.Cells, "\x1f")))
			h.Write([]byte{'\n'})
		}
	}
	name := profile.DocumentName + "\x00" + profile.ImportVersion + "\x00" + hex.EncodeToString(h.Sum(nil))
	return uuid.NewSHA1(importNamespace, []byte(name)).String()
}

// importRun holds the mutable state of one pipeline execution.
type importRun struct {
	service  *ImportService
	req      ImportRequest
	profile  ImportProfile
	resolver *Resolver
	merger   *Merger
	logger   *logrus.Entry
	report   *ImportReport
	session  *importsession.Session

	consecutiveFaults int
}

func (r *importRun) archiveSource(ctx context.Context, raw []byte, name string) {
	if r.service.opts.Archive == nil || len(raw) == 0 {
		return
	}
	key := path.Join("imports", r.report.ImportID, r.report.RunID, path.Base(strings.ReplaceAll(name, "\\", "/")))
	info, err := r.service.opts.Archive.Put(ctx, key, raw, archive.PutOptions{
		ContentType: contentTypeFor(name),
		Metadata: map[string]string{
			"import_id":     r.report.ImportID,
			"document_name": r.profile.DocumentName,
		},
	})
	if err != nil {
		r.logger.WithError(err).Warn("source document not archived")
		return
	}
	r.report.ArchiveKey = info.Key
}

func contentTypeFor(name string) string {
	format, _ := document.DetectFormat(name)
	switch format {
	case document.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case document.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case document.FormatHTML:
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func (r *importRun) openSession(ctx context.Context, tables int) {
	if r.service.sessions == nil {
		return
	}
	sess := importsession.New(r.report.RunID, r.report.ImportID, r.report.StartedAt)
	sess.DocumentName = r.profile.DocumentName
	sess.DocumentDate = r.profile.DocumentDate
	sess.DocumentDateISO = r.profile.DocumentDateISO
	sess.ImportVersion = r.profile.ImportVersion
	sess.Description = r.profile.Description
	sess.SourcePath = r.req.Path
	sess.ArchiveKey = r.report.ArchiveKey
	sess.TablesCount = tables
	sess.TotalRows = r.report.TotalRows
	if err := r.service.sessions.Create(ctx, sess); err != nil {
		r.logger.WithError(err).Warn("import session not recorded")
		return
	}
	r.session = sess
}

func (r *importRun) syncSession() {
	if r.session == nil {
		return
	}
	r.session.TotalProcessed = r.report.Processed
	r.session.TotalImported = r.report.Imported
	r.session.TotalDuplicates = r.report.Duplicates
	r.session.TotalErrors = r.report.Errors
	r.session.Unresolved = append([]importsession.UnresolvedRow(nil), r.report.Unresolved...)
}

func (r *importRun) saveProgress(ctx context.Context) {
	if r.session == nil {
		return
	}
	r.syncSession()
	if err := r.service.sessions.Save(ctx, r.session); err != nil {
		r.logger.WithError(err).Warn("import session progress not saved")
	}
}

func (r *importRun) finish(ctx context.Context, state importsession.State, runErr error) {
	r.report.State = state
	r.report.FinishedAt = r.service.opts.Now().UTC()
	recordRun(string(state), r.report.FinishedAt.Sub(r.report.StartedAt))

	fields := logrus.Fields{
		"state":      state,
		"processed":  r.report.Processed,
		"imported":   r.report.Imported,
		"duplicates": r.report.Duplicates,
		"errors":     r.report.Errors,
	}
	if runErr != nil {
		r.logger.WithFields(fields).WithError(runErr).Warn("import finished")
	} else {
		r.logger.WithFields(fields).Info("import finished")
	}

	if r.session == nil {
		return
	}
	r.syncSession()
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := r.session.Finalize(state, r.report.FinishedAt, msg); err != nil {
		r.logger.WithError(err).Warn("import session not finalized")
		return
	}
	if err := r.service.sessions.Save(context.WithoutCancel(ctx), r.session); err != nil {
		r.logger.WithError(err).Warn("import session final state not saved")
	}
}

// execute walks all accepted rows. Cancellation is honoured between rows;
// a row already merged stays merged.
func (r *importRun) execute(ctx context.Context, tables []ExtractedTable) error {
	for _, tbl := range tables {
		for _, row := range tbl.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.processRow(ctx, tbl, row)
			if r.consecutiveFaults >= r.service.opts.MaxConsecutiveFaults {
				return errors.Wrapf(ErrStorageUnavailable, "%d consecutive rows failed on storage errors", r.consecutiveFaults)
			}
			if r.req.Apply && r.report.Processed%r.service.opts.ProgressEvery == 0 {
				r.saveProgress(ctx)
			}
		}
	}
	return nil
}

func (r *importRun) processRow(ctx context.Context, tbl ExtractedTable, row ExtractedRow) {
	r.report.Processed++
	code := tbl.Code(row)
	name := tbl.Name(row)
	log := r.logger.WithFields(rowFields(tbl.Ordinal, row.Line, code))

	period, ok := NormalizePeriod(tbl.Start(row), tbl.End(row))
	if !ok {
		r.reject(tbl, row, "missing or unparseable start date", nil)
		recordRow(tbl.Ordinal, "invalid_date")
		log.Warn("row skipped: start date")
		return
	}
	for _, w := range period.Warnings {
		r.report.Warnings++
		log.Warn(w)
	}

	res, err := r.resolver.Resolve(ctx, code, name)
	if err != nil {
		if errors.Is(err, ErrTerritoryNotFound) {
			r.consecutiveFaults = 0
			suggestions, serr := r.resolver.Suggest(ctx, name, r.service.opts.SuggestionLimit)
			if serr != nil {
				log.WithError(serr).Debug("suggestions unavailable")
			}
			r.reject(tbl, row, "territory not found", suggestions)
			recordResolve("")
			recordRow(tbl.Ordinal, "unresolved")
			log.WithField("name", name).Info("row unresolved")
			return
		}
		r.consecutiveFaults++
		r.reject(tbl, row, "lookup failed: "+err.Error(), nil)
		recordRow(tbl.Ordinal, "storage_error")
		log.WithError(err).Error("territory lookup failed")
		return
	}
	recordResolve(res.Method)
	r.report.Resolved++
	if !r.req.Apply {
		r.consecutiveFaults = 0
		recordRow(tbl.Ordinal, "dry_run")
		return
	}

	outcome, err := r.merger.Append(ctx, MergeInput{
		TerritoryCode: res.Territory.Code,
		Status:        tbl.Layout.Status,
		Start:         period.Start,
		End:           period.End,
		Provenance: Provenance{
			SourceDocument:  r.profile.DocumentName,
			DocumentDate:    r.profile.DocumentDate,
			DocumentDateISO: r.profile.DocumentDateISO,
			ImportID:        r.report.ImportID,
			ImportVersion:   r.profile.ImportVersion,
			TerritoryCode:   code,
			TableSource:     tbl.Ordinal,
		},
	})
	if err != nil {
		r.consecutiveFaults++
		r.reject(tbl, row, "merge failed: "+err.Error(), nil)
		recordRow(tbl.Ordinal, "storage_error")
		log.WithError(err).Error("status merge failed")
		return
	}
	r.consecutiveFaults = 0
	switch outcome {
	case MergeAlreadyPresent:
		r.report.Duplicates++
		recordRow(tbl.Ordinal, "duplicate")
		log.Debug("period already present")
	default:
		r.report.Imported++
		recordRow(tbl.Ordinal, "imported")
		log.WithField("method", res.Method).Debug("period appended")
	}
}

func (r *importRun) reject(tbl ExtractedTable, row ExtractedRow, reason string, suggestions []string) {
	r.report.Errors++
	r.report.Unresolved = append(r.report.Unresolved, importsession.UnresolvedRow{
		Table:       tbl.Ordinal,
		Line:        row.Line,
		Status:      string(tbl.Layout.Status),
		Code:        tbl.Code(row),
		Name:        tbl.Name(row),
		Reason:      reason,
		Suggestions: suggestions,
	})
}

// Summary renders the closing counters of a report.
func (rep *ImportReport) Summary() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "processed=%d imported=%d duplicates=%d errors=%d", rep.Processed, rep.Imported, rep.Duplicates, rep.Errors)
	if len(rep.Unresolved) > 0 {
		fmt.Fprintf(&b, " unresolved=%d", len(rep.Unresolved))
	}
	return b.String()
}
