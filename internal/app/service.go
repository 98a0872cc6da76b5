// Package service orchestrates a full synchronization run: paginated
// fetch, transformation, batched upserts, checkpointing, source-of-truth
// reconciliation and statistics, in a fixed stage order.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/edusync/internal/adapters/checkpoint"
	"github.com/edupulse/edusync/internal/adapters/destination"
	"github.com/edupulse/edusync/internal/adapters/source"
	"github.com/edupulse/edusync/internal/domain/batch"
	"github.com/edupulse/edusync/internal/domain/dedupe"
	"github.com/edupulse/edusync/internal/domain/model"
	"github.com/edupulse/edusync/internal/domain/stats"
	"github.com/edupulse/edusync/internal/domain/transform"
	"github.com/edupulse/edusync/pkg/logger"
	"github.com/edupulse/edusync/pkg/metrics"
)

// Source stream names. Stages are named after the stream they drain.
const (
	streamEstablishments = "establishments"
	streamAssessments    = "assessments"
	streamResponses      = "responses"
	streamComments       = "comments"

	stageReconcile  = "reconcile"
	stageStatistics = "statistics"

	// checkpoint key carrying the academic-year partitions touched so
	// far, so a resumed run still recomputes their statistics
	keyYears = "academic_years"
)

// Fetcher walks paginated source streams. *source.Client satisfies it;
// tests substitute canned pages.
type Fetcher interface {
	FetchAll(ctx context.Context, stream string, filters []source.Filter, fromPage int, fn source.PageFunc) error
}

// Service runs the synchronization pipeline. One Service performs one
// Run; construct a fresh Service per run.
type Service struct {
	mu sync.RWMutex

	fetcher     Fetcher
	store       destination.Store
	checkpoints *checkpoint.Store
	tracker     dedupe.Tracker
	fields      transform.Fields

	batchSize    int
	statsMinSize int
	dryRun       bool
	resume       bool
	limit        int
	now          func() time.Time

	// current run state, exposed for the health endpoint
	runID string
	stage string

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBatchSize sets the per-entity flush threshold.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithStatsMinSampleSize sets the low-confidence statistics boundary.
func WithStatsMinSampleSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.statsMinSize = n
		}
	}
}

// WithDryRun leaves the destination untouched; pair it with a
// recording store so the report can enumerate would-be writes.
func WithDryRun(dry bool) Option {
	return func(s *Service) {
		s.dryRun = dry
	}
}

// WithResume continues from the checkpoint on disk instead of
// starting a fresh run.
func WithResume(resume bool) Option {
	return func(s *Service) {
		s.resume = resume
	}
}

// WithRecordLimit caps records processed per stream. Zero means no cap.
func WithRecordLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service around its collaborators.
func New(fetcher Fetcher, store destination.Store, checkpoints *checkpoint.Store, fields transform.Fields, opts ...Option) *Service {
	s := &Service{
		fetcher:      fetcher,
		store:        store,
		checkpoints:  checkpoints,
		tracker:      dedupe.NewTracker(),
		fields:       fields,
		batchSize:    200,
		statsMinSize: 10,
		now:          time.Now,
		log:          logger.Named("sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status reports the current run id and stage for the health endpoint.
func (s *Service) Status() (runID, stage string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID, s.stage
}

func (s *Service) setStage(stage string) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

// runState carries what the stages share during one run.
type runState struct {
	cp    *checkpoint.Checkpoint
	tr    *transform.Transformer
	rep   *Report
	agg   *stats.Aggregator
	years map[string]bool

	// establishment destination id by source id; shared with and
	// mutated through the transformer
	estBySource map[string]string
}

// Run executes the pipeline. On cancellation it flushes buffered rows,
// saves the checkpoint at the page boundary already reached, and
// returns the partial report together with ErrInterrupted.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	started := s.now()

	cp, err := s.prepareCheckpoint(ctx, started)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.runID = cp.RunID
	s.mu.Unlock()

	rep := newReport(cp.RunID, s.dryRun, started)
	for k, v := range cp.Counters {
		rep.Counters[k] = v
	}
	s.tracker.Restore(cp.ProcessedKeys[streamAssessments])

	s.log.Info(ctx, "sync run starting",
		logger.String("runID", cp.RunID),
		logger.Bool("dryRun", s.dryRun),
		logger.Bool("resume", s.resume))

	bySource, convByEst, err := s.store.EstablishmentMaps(ctx)
	if err != nil {
		return s.finish(ctx, rep, fmt.Errorf("preload establishments: %w", err))
	}
	students, err := s.store.StudentMap(ctx)
	if err != nil {
		return s.finish(ctx, rep, fmt.Errorf("preload students: %w", err))
	}

	st := &runState{
		cp:          cp,
		tr:          transform.New(s.fields, bySource, convByEst, students),
		rep:         rep,
		agg:         stats.New(stats.WithMinSampleSize(s.statsMinSize)),
		years:       make(map[string]bool),
		estBySource: bySource,
	}
	for _, year := range cp.ProcessedKeys[keyYears] {
		st.years[year] = true
	}

	stages := []struct {
		name string
		fn   func(context.Context, *runState) error
	}{
		{streamEstablishments, s.syncEstablishments},
		{streamAssessments, s.syncAssessments},
		{streamResponses, s.syncResponses},
		{streamComments, s.syncComments},
		{stageReconcile, s.reconcile},
		{stageStatistics, s.computeStatistics},
	}
	var aborted bool
	for _, stage := range stages {
		err := s.runStage(ctx, st, stage.name, stage.fn)
		switch {
		case err == nil:
		case errors.Is(err, source.ErrTransient):
			// The source gave up on this stream after retries. Its
			// cursor is already persisted; later streams still run,
			// and the kept checkpoint lets a resume finish the rest.
			aborted = true
			rep.warn(fmt.Sprintf("stream %s aborted: %v", stage.name, err))
		default:
			return s.finish(ctx, rep, err)
		}
	}

	if !aborted {
		// A completed run owes nothing to the checkpoint file.
		if err := s.checkpoints.Clear(ctx); err != nil {
			rep.warn(fmt.Sprintf("clear checkpoint: %v", err))
		}
	}
	return s.finish(ctx, rep, nil)
}

func (s *Service) runStage(ctx context.Context, st *runState, name string, fn func(context.Context, *runState) error) error {
	s.setStage(name)
	start := time.Now()
	err := fn(ctx, st)
	elapsed := time.Since(start)
	st.rep.addStage(name, elapsed)
	metrics.RecordStageDuration(name, elapsed.Seconds())
	if err != nil {
		s.log.Warn(ctx, "stage aborted",
			logger.String("stage", name),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return err
	}
	s.log.Info(ctx, "stage finished",
		logger.String("stage", name),
		logger.Duration("elapsed", elapsed))
	return nil
}

// prepareCheckpoint loads or creates the run checkpoint. A resume with
// no checkpoint on disk degrades to a fresh run; an unreadable one is
// fatal and the file is left in place for inspection.
func (s *Service) prepareCheckpoint(ctx context.Context, started time.Time) (*checkpoint.Checkpoint, error) {
	if s.resume {
		cp, err := s.checkpoints.Load(ctx)
		switch {
		case err != nil:
			return nil, fmt.Errorf("load checkpoint: %w", err)
		case cp != nil:
			return cp, nil
		default:
			s.log.Info(ctx, "no checkpoint found, starting fresh")
		}
	}
	if err := s.checkpoints.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear checkpoint: %w", err)
	}
	return checkpoint.New(uuid.NewString(), started), nil
}

// finish closes out the report, persists the run row and returns.
func (s *Service) finish(ctx context.Context, rep *Report, runErr error) (*Report, error) {
	rep.FinishedAt = s.now()

	interrupted := runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded))
	switch {
	case interrupted:
		rep.Status = StatusInterrupted
	case runErr != nil:
		rep.Status = StatusFailed
		rep.fail(runErr)
	case len(rep.Warnings) > 0 || len(rep.Skips()) > 0:
		rep.Status = StatusPartial
	default:
		rep.Status = StatusSuccess
	}
	metrics.RecordRunCompleted(rep.Status)

	// The run row is best-effort on failure paths; the store may be
	// the very thing that broke.
	record := destination.RunRecord{
		RunID:      rep.RunID,
		Status:     rep.Status,
		DryRun:     rep.DryRun,
		StartedAt:  rep.StartedAt,
		FinishedAt: &rep.FinishedAt,
		Counters:   rep.Counters,
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}
	recordCtx := ctx
	if recordCtx.Err() != nil {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.store.RecordRun(recordCtx, record); err != nil {
		s.log.Warn(ctx, "record run row", logger.Error(err))
	}

	s.log.Info(ctx, "sync run finished",
		logger.String("runID", rep.RunID),
		logger.String("status", rep.Status),
		logger.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)))

	if interrupted {
		return rep, fmt.Errorf("%w: %v", ErrInterrupted, runErr)
	}
	return rep, runErr
}

// savePage persists the cursor after a fully-flushed page.
func (s *Service) savePage(ctx context.Context, st *runState, stream string, nextPage int) error {
	st.cp.Advance(stream, nextPage)
	st.cp.ProcessedKeys[streamAssessments] = s.tracker.Snapshot()
	st.cp.ProcessedKeys[keyYears] = sortedYears(st.years)
	for k, v := range st.rep.Counters {
		st.cp.Counters[k] = v
	}
	st.cp.UpdatedAt = s.now()
	if err := s.checkpoints.Save(ctx, st.cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// markStreamDone records stream completion in the checkpoint.
func (s *Service) markStreamDone(ctx context.Context, st *runState, stream string) error {
	st.cp.MarkDone(stream)
	return s.savePage(ctx, st, stream, st.cp.Cursor(stream).NextPage)
}

func (s *Service) syncEstablishments(ctx context.Context, st *runState) error {
	if st.cp.Done(streamEstablishments) {
		return nil
	}
	buf := batch.New(func(ctx context.Context, rows []model.Establishment) error {
		if err := s.store.UpsertEstablishments(ctx, rows); err != nil {
			return err
		}
		st.rep.count("establishments_upserted", int64(len(rows)))
		return nil
	}, batch.WithThreshold(s.batchSize))

	err := s.walkStream(ctx, st, streamEstablishments, nil, buf.Flush, func(ctx context.Context, rec source.Record) error {
		est := st.tr.Establishment(ctx, transform.Record{ID: rec.ID, Fields: rec.Fields})
		if est.Name == "" {
			st.rep.count("skipped_no_establishment", 1)
			metrics.RecordRecordSkipped(streamEstablishments, "skipped_no_establishment")
			return nil
		}
		est.ID = establishmentID(st, est.SourceID)
		st.tr.RegisterEstablishment(est)
		metrics.RecordRecordProcessed(streamEstablishments)
		return buf.Add(ctx, est)
	})
	return s.finishStream(ctx, st, streamEstablishments, err)
}

// establishmentID reuses the destination id when the establishment is
// already known and mints one otherwise.
func establishmentID(st *runState, sourceID string) string {
	if id, ok := st.estBySource[sourceID]; ok {
		return id
	}
	return uuid.NewString()
}

func (s *Service) syncAssessments(ctx context.Context, st *runState) error {
	if st.cp.Done(streamAssessments) {
		return nil
	}
	studentBuf := batch.New(func(ctx context.Context, rows []model.Student) error {
		if err := s.store.UpsertStudents(ctx, rows); err != nil {
			return err
		}
		st.rep.count("students_upserted", int64(len(rows)))
		return nil
	}, batch.WithThreshold(s.batchSize))
	scoreBuf := batch.New(func(ctx context.Context, rows []model.AssessmentScore) error {
		if err := s.store.UpsertScores(ctx, rows); err != nil {
			return err
		}
		st.rep.count("scores_upserted", int64(len(rows)))
		return nil
	}, batch.WithThreshold(s.batchSize))

	flush := func(ctx context.Context) error {
		// Students land before their scores; the score rows carry
		// foreign keys into students.
		if err := studentBuf.Flush(ctx); err != nil {
			return err
		}
		return scoreBuf.Flush(ctx)
	}

	filters := s.notBlankFilter(s.fields.Assessment.Email)
	err := s.walkStream(ctx, st, streamAssessments, filters, flush, func(ctx context.Context, rec source.Record) error {
		key := streamAssessments + ":" + rec.ID
		if s.tracker.SeenAndRecord(ctx, key) {
			st.rep.count("skipped_already_processed", 1)
			metrics.RecordRecordSkipped(streamAssessments, "skipped_already_processed")
			return nil
		}
		res := st.tr.Assessment(ctx, transform.Record{ID: rec.ID, Fields: rec.Fields})
		st.rep.warn(res.Warnings...)
		if res.Skipped() {
			// Skipped records are retried by later runs.
			s.tracker.Unrecord(ctx, key)
			st.rep.count(string(res.Skip), 1)
			metrics.RecordRecordSkipped(streamAssessments, string(res.Skip))
			return nil
		}
		metrics.RecordRecordProcessed(streamAssessments)
		st.years[res.AcademicYear] = true
		if res.Student != nil {
			if err := studentBuf.Add(ctx, *res.Student); err != nil {
				return err
			}
		}
		for _, sc := range res.Scores {
			if err := scoreBuf.Add(ctx, sc); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finishStream(ctx, st, streamAssessments, err)
}

func (s *Service) syncResponses(ctx context.Context, st *runState) error {
	if st.cp.Done(streamResponses) {
		return nil
	}
	buf := batch.New(func(ctx context.Context, rows []model.QuestionResponse) error {
		if err := s.store.UpsertResponses(ctx, rows); err != nil {
			return err
		}
		st.rep.count("responses_upserted", int64(len(rows)))
		return nil
	}, batch.WithThreshold(s.batchSize))

	filters := s.notBlankFilter(s.fields.Response.Email)
	err := s.walkStream(ctx, st, streamResponses, filters, buf.Flush, func(ctx context.Context, rec source.Record) error {
		res := st.tr.Responses(ctx, transform.Record{ID: rec.ID, Fields: rec.Fields})
		st.rep.warn(res.Warnings...)
		if res.Skipped() {
			st.rep.count(string(res.Skip), 1)
			metrics.RecordRecordSkipped(streamResponses, string(res.Skip))
			return nil
		}
		metrics.RecordRecordProcessed(streamResponses)
		for _, qr := range res.Responses {
			if err := buf.Add(ctx, qr); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finishStream(ctx, st, streamResponses, err)
}

func (s *Service) syncComments(ctx context.Context, st *runState) error {
	if st.cp.Done(streamComments) {
		return nil
	}
	buf := batch.New(func(ctx context.Context, rows []model.Comment) error {
		if err := s.store.UpsertComments(ctx, rows); err != nil {
			return err
		}
		st.rep.count("comments_upserted", int64(len(rows)))
		return nil
	}, batch.WithThreshold(s.batchSize))

	filters := s.notBlankFilter(s.fields.Comment.Email)
	err := s.walkStream(ctx, st, streamComments, filters, buf.Flush, func(ctx context.Context, rec source.Record) error {
		res := st.tr.Comments(ctx, transform.Record{ID: rec.ID, Fields: rec.Fields})
		st.rep.warn(res.Warnings...)
		if res.Skipped() {
			st.rep.count(string(res.Skip), 1)
			metrics.RecordRecordSkipped(streamComments, string(res.Skip))
			return nil
		}
		metrics.RecordRecordProcessed(streamComments)
		for _, c := range res.Comments {
			if err := buf.Add(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finishStream(ctx, st, streamComments, err)
}

// walkStream drains one paginated stream. flush runs before each
// checkpoint save so the cursor never gets ahead of the destination,
// and cancellation is honored at page boundaries.
func (s *Service) walkStream(ctx context.Context, st *runState, stream string, filters []source.Filter, flush func(context.Context) error, handle func(context.Context, source.Record) error) error {
	fetched := st.rep.Counters[stream+"_fetched"]
	err := s.fetcher.FetchAll(ctx, stream, filters, st.cp.Cursor(stream).NextPage, func(ctx context.Context, page int, records []source.Record) error {
		next := page + 1
		for _, rec := range records {
			if s.limit > 0 && fetched >= int64(s.limit) {
				// The rest of this page stays unprocessed; the cursor
				// must not move past it.
				next = page
				break
			}
			fetched++
			if err := handle(ctx, rec); err != nil {
				return err
			}
		}
		st.rep.Counters[stream+"_fetched"] = fetched
		if err := flush(ctx); err != nil {
			return err
		}
		if err := s.savePage(ctx, st, stream, next); err != nil {
			return err
		}
		if s.limit > 0 && fetched >= int64(s.limit) {
			return errLimitReached
		}
		return ctx.Err()
	})
	if errors.Is(err, errLimitReached) {
		s.log.Info(ctx, "record limit reached, stopping stream early",
			logger.String("stream", stream),
			logger.Int("limit", s.limit))
		return errLimitReached
	}
	if err != nil {
		return err
	}
	return flush(ctx)
}

// finishStream closes out one stream pass. A limit-capped pass leaves
// the stream unfinished so a resume can pick up the remainder.
func (s *Service) finishStream(ctx context.Context, st *runState, stream string, err error) error {
	if errors.Is(err, errLimitReached) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.markStreamDone(ctx, st, stream)
}

// notBlankFilter skips records the source already knows carry no email.
func (s *Service) notBlankFilter(fieldID string) []source.Filter {
	if fieldID == "" {
		return nil
	}
	return []source.Filter{source.NotBlank(fieldID)}
}

// reconcile deletes destination score cycles absent from the source,
// scoped to students seen this run within the synced partitions. It
// never runs after an interrupted assessments pass: a partial view of
// the source must not drive deletions.
func (s *Service) reconcile(ctx context.Context, st *runState) error {
	if !st.cp.Done(streamAssessments) {
		s.log.Warn(ctx, "assessments incomplete, skipping reconciliation")
		return nil
	}
	present := st.tr.PresentCycles()
	for _, year := range sortedYears(st.years) {
		stored, err := s.store.ScoreCycles(ctx, year)
		if err != nil {
			return fmt.Errorf("load stored cycles for %s: %w", year, err)
		}
		for studentID, cycles := range stored {
			pc, seen := present[studentID]
			if !seen {
				continue
			}
			extra := missingCycles(cycles, pc)
			if len(extra) == 0 {
				continue
			}
			n, err := s.store.DeleteScoreCycles(ctx, year, studentID, extra)
			if err != nil {
				return fmt.Errorf("delete cycles for %s: %w", studentID, err)
			}
			st.rep.count("rows_deleted", n)
			metrics.RecordRowsDeleted("assessment_score", int(n))
			s.log.Info(ctx, "removed cycles gone from source",
				logger.String("studentID", studentID),
				logger.String("academicYear", year),
				logger.Any("cycles", extra))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// computeStatistics recomputes per-group summaries for every partition
// touched this run, from destination state rather than run state so a
// resumed run produces the same figures as an uninterrupted one.
func (s *Service) computeStatistics(ctx context.Context, st *runState) error {
	for _, year := range sortedYears(st.years) {
		rows, err := s.store.ScoreRows(ctx, year)
		if err != nil {
			return fmt.Errorf("load score rows for %s: %w", year, err)
		}
		for _, row := range rows {
			addScoreRow(st.agg, row)
		}
	}
	summaries := st.agg.Summaries()
	if len(summaries) == 0 {
		return nil
	}
	if err := s.store.UpsertStatistics(ctx, summaries); err != nil {
		return fmt.Errorf("upsert statistics: %w", err)
	}
	st.rep.count("statistics_upserted", int64(len(summaries)))
	return nil
}

// Statistic element names.
const (
	elementVision   = "vision"
	elementEffort   = "effort"
	elementSystems  = "systems"
	elementPractice = "practice"
	elementAttitude = "attitude"
	elementOverall  = "overall"
)

func addScoreRow(agg *stats.Aggregator, row destination.ScoreRow) {
	key := func(element string) stats.GroupKey {
		return stats.GroupKey{
			EstablishmentID: row.EstablishmentID,
			Cycle:           row.Cycle,
			AcademicYear:    row.AcademicYear,
			Element:         element,
		}
	}
	if row.Vision != nil {
		agg.Add(key(elementVision), float64(*row.Vision))
	}
	if row.Effort != nil {
		agg.Add(key(elementEffort), float64(*row.Effort))
	}
	if row.Systems != nil {
		agg.Add(key(elementSystems), float64(*row.Systems))
	}
	if row.Practice != nil {
		agg.Add(key(elementPractice), float64(*row.Practice))
	}
	if row.Attitude != nil {
		agg.Add(key(elementAttitude), float64(*row.Attitude))
	}
	if row.Overall != nil {
		agg.Add(key(elementOverall), *row.Overall)
	}
}

func sortedYears(years map[string]bool) []string {
	keys := make([]string, 0, len(years))
	for k := range years {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// missingCycles returns stored cycles the source pass did not produce.
func missingCycles(stored []int, present []int) []int {
	set := make(map[int]bool, len(present))
	for _, c := range present {
		set[c] = true
	}
	var extra []int
	for _, c := range stored {
		if !set[c] {
			extra = append(extra, c)
		}
	}
	return extra
}
