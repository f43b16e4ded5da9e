package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/tx"
	"github.com/NordCoder/Tally/internal/obs"
)

type Stage string

const (
	StageStarted    Stage = "started"
	StageParsed     Stage = "parsed"
	StageValidated  Stage = "validated"
	StageReplaced   Stage = "replaced"
	StageAggregated Stage = "aggregated"
	StageCommitted  Stage = "committed"
	StageAborted    Stage = "aborted"
)

// SummaryEvents is notified inside the ingest transaction once the new summary is stored.
type SummaryEvents interface {
	SummaryReplaced(ctx context.Context, s *measurement.Summary) error
}

type Deps struct {
	Log        *zap.Logger
	Records    measurement.RecordRepo
	Summaries  measurement.SummaryRepo
	Transactor tx.Transactor
	Events     SummaryEvents
	Validator  ValidatorConfig
	Clock      func() time.Time
}

type Pipeline struct {
	log       *zap.Logger
	parser    *Parser
	validator *Validator
	records   measurement.RecordRepo
	summaries measurement.SummaryRepo
	events    SummaryEvents
	tx        tx.Transactor
	clk       func() time.Time
	newID     func() uuid.UUID
}

func NewPipeline(d Deps) *Pipeline {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		log:       d.Log.With(zap.String("component", "ingest.pipeline")),
		parser:    NewParser(),
		validator: NewValidator(d.Validator, d.Clock),
		records:   d.Records,
		summaries: d.Summaries,
		events:    d.Events,
		tx:        d.Transactor,
		clk:       d.Clock,
		newID:     uuid.New,
	}
}

// Ingest parses, validates and stores one file, replacing whatever was stored under fileName.
// Store mutations happen in a single transaction; a non-success outcome leaves the store untouched.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, fileName string) Outcome {
	tr := otel.Tracer("ingest.pipeline")
	ctx, span := tr.Start(ctx, "ingest", trace.WithAttributes(attribute.String("file.name", fileName)))
	defer span.End()

	log := obs.WithTrace(ctx, p.log).With(zap.String("file", fileName))
	log.Debug("ingest stage", zap.String("stage", string(StageStarted)))

	out := p.run(ctx, log, r, fileName)

	mOutcomes.WithLabelValues(string(out.Kind)).Inc()
	span.SetAttributes(attribute.String("ingest.outcome", string(out.Kind)))

	switch out.Kind {
	case OutcomeSuccess:
		mRows.Add(float64(out.Summary.RowCount))
		log.Info("ingest committed",
			zap.String("summary_id", out.SummaryID.String()),
			zap.Int("rows", out.Summary.RowCount))
	case OutcomeParseFailure, OutcomeValidationFailure:
		for _, v := range out.Violations {
			mViolations.WithLabelValues(string(v.Code)).Inc()
		}
		log.Warn("ingest rejected",
			zap.String("kind", string(out.Kind)),
			zap.Int("errors", len(out.Errors)),
			zap.String("first", out.Errors[0]))
	default:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Kind))
		log.Error("ingest aborted", zap.String("kind", string(out.Kind)), zap.Error(out.Err))
	}
	return out
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, r io.Reader, fileName string) Outcome {
	if vs := ValidateFileName(fileName); len(vs) > 0 {
		return validationFailure(vs)
	}

	var records []measurement.Record
	if err := p.stage(ctx, log, StageParsed, func(context.Context) error {
		var err error
		records, err = p.parser.Parse(r, fileName)
		return err
	}); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return parseFailure(pe)
		}
		return systemFailure(err)
	}

	var violations []Violation
	if err := p.stage(ctx, log, StageValidated, func(context.Context) error {
		violations = p.validator.Validate(records)
		return nil
	}); err != nil {
		return systemFailure(err)
	}
	if len(violations) > 0 {
		return validationFailure(violations)
	}

	now := p.clk()
	for i := range records {
		records[i].ID = p.newID()
		records[i].CreatedAt = now
	}

	var summary *measurement.Summary
	err := p.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := p.stage(txCtx, log, StageReplaced, func(ctx context.Context) error {
			return p.replace(ctx, fileName, records)
		}); err != nil {
			return err
		}
		return p.stage(txCtx, log, StageAggregated, func(ctx context.Context) error {
			s, err := p.summarize(ctx, fileName, records, now)
			summary = s
			return err
		})
	})
	if err != nil {
		log.Debug("ingest stage", zap.String("stage", string(StageAborted)))
		var rbErr *tx.RollbackError
		if errors.As(err, &rbErr) {
			return transactionFailure(err)
		}
		return systemFailure(err)
	}

	log.Debug("ingest stage", zap.String("stage", string(StageCommitted)))
	return success(summary)
}

// replace removes the previous generation of fileName before inserting the new one.
func (p *Pipeline) replace(ctx context.Context, fileName string, records []measurement.Record) error {
	if _, err := p.records.DeleteByFileName(ctx, fileName); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := p.summaries.DeleteByFileName(ctx, fileName); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	if err := p.records.InsertBatch(ctx, records); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

func (p *Pipeline) summarize(ctx context.Context, fileName string, records []measurement.Record, now time.Time) (*measurement.Summary, error) {
	st, err := Aggregate(records)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	s := &measurement.Summary{
		ID:                   p.newID(),
		FileName:             fileName,
		ElapsedSeconds:       st.ElapsedSeconds,
		FirstOperationStart:  st.FirstOperationStart,
		AverageExecutionTime: st.AverageExecutionTime,
		AverageValue:         st.AverageValue,
		MedianValue:          st.MedianValue,
		MaxValue:             st.MaxValue,
		MinValue:             st.MinValue,
		RowCount:             st.RowCount,
		CreatedAt:            now,
	}
	if err := p.summaries.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	if p.events != nil {
		if err := p.events.SummaryReplaced(ctx, s); err != nil {
			return nil, fmt.Errorf("enqueue summary event: %w", err)
		}
	}
	return s, nil
}

// stage runs one transition; a cancelled context fails the stage before it starts.
func (p *Pipeline) stage(ctx context.Context, log *zap.Logger, st Stage, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := otel.Tracer("ingest.pipeline").Start(ctx, "ingest."+string(st))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	mStageDur.WithLabelValues(string(st)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Debug("ingest stage", zap.String("stage", string(st)), zap.Duration("took", time.Since(start)))
	return nil
}
