package ingest

import (
	"github.com/google/uuid"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeParseFailure       OutcomeKind = "parse_failure"
	OutcomeValidationFailure  OutcomeKind = "validation_failure"
	OutcomeSystemFailure      OutcomeKind = "system_failure"
	OutcomeTransactionFailure OutcomeKind = "transaction_failure"
)

// Outcome is the result of one ingest. Rejections (parse, validation) mean the file was
// refused and nothing was written; system and transaction failures mean the store broke,
// the latter when even the rollback failed.
type Outcome struct {
	Kind       OutcomeKind
	SummaryID  uuid.UUID
	Summary    *measurement.Summary
	Errors     []string
	Violations []Violation
	ParseError *ParseError
	Err        error
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

func (o Outcome) Rejected() bool {
	return o.Kind == OutcomeParseFailure || o.Kind == OutcomeValidationFailure
}

func success(s *measurement.Summary) Outcome {
	return Outcome{Kind: OutcomeSuccess, SummaryID: s.ID, Summary: s}
}

func parseFailure(pe *ParseError) Outcome {
	return Outcome{Kind: OutcomeParseFailure, Errors: []string{pe.Error()}, ParseError: pe, Err: pe}
}

func validationFailure(vs []Violation) Outcome {
	return Outcome{Kind: OutcomeValidationFailure, Errors: violationMessages(vs), Violations: vs}
}

func systemFailure(err error) Outcome {
	return Outcome{Kind: OutcomeSystemFailure, Errors: []string{err.Error()}, Err: err}
}

func transactionFailure(err error) Outcome {
	return Outcome{Kind: OutcomeTransactionFailure, Errors: []string{"transaction error: " + err.Error()}, Err: err}
}
