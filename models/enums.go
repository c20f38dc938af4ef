package models

import (
	"encoding/json"
	"errors"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("transaction type must be string")
	}
	switch str {
	case "income":
		*t = TransactionTypeIncome
	case "expense":
		*t = TransactionTypeExpense
	default:
		return errors.New("invalid transaction type")
	}
	return nil
}

type GapSeverity string

const (
	GapSeverityLow    GapSeverity = "low"
	GapSeverityMedium GapSeverity = "medium"
	GapSeverityHigh   GapSeverity = "high"
)

func (s *GapSeverity) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("gap severity must be string")
	}
	switch str {
	case "low":
		*s = GapSeverityLow
	case "medium":
		*s = GapSeverityMedium
	case "high":
		*s = GapSeverityHigh
	default:
		return errors.New("invalid gap severity")
	}
	return nil
}

type CheckpointStatus string

const (
	CheckpointStatusOpen   CheckpointStatus = "open"
	CheckpointStatusClosed CheckpointStatus = "closed"
)

func (s *CheckpointStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("checkpoint status must be string")
	}
	switch str {
	case "open":
		*s = CheckpointStatusOpen
	case "closed":
		*s = CheckpointStatusClosed
	default:
		return errors.New("invalid checkpoint status")
	}
	return nil
}

type PeriodStatus string

const (
	PeriodStatusActive PeriodStatus = "active"
	PeriodStatusClosed PeriodStatus = "closed"
)

func (s *PeriodStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("period status must be string")
	}
	switch str {
	case "active":
		*s = PeriodStatusActive
	case "closed":
		*s = PeriodStatusClosed
	default:
		return errors.New("invalid period status")
	}
	return nil
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

func (s *SessionStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("session status must be string")
	}
	sessionStatuses := map[string]SessionStatus{
		"active":    SessionStatusActive,
		"paused":    SessionStatusPaused,
		"completed": SessionStatusCompleted,
		"abandoned": SessionStatusAbandoned,
	}
	v, ok := sessionStatuses[str]
	if !ok {
		return errors.New("invalid session status")
	}
	*s = v
	return nil
}

type ResolutionMethod string

const (
	ResolutionMethodQuickClose        ResolutionMethod = "quick_close"
	ResolutionMethodManualTransaction ResolutionMethod = "manual_transaction"
)

func (m *ResolutionMethod) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("resolution method must be string")
	}
	switch str {
	case "quick_close":
		*m = ResolutionMethodQuickClose
	case "manual_transaction":
		*m = ResolutionMethodManualTransaction
	default:
		return errors.New("invalid resolution method")
	}
	return nil
}

type ReconciliationStep string

const (
	StepBalanceEntry  ReconciliationStep = "balance_entry"
	StepGapReview     ReconciliationStep = "gap_review"
	StepGapResolution ReconciliationStep = "gap_resolution"
	StepConfirmation  ReconciliationStep = "confirmation"
)

func (s *ReconciliationStep) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("reconciliation step must be string")
	}
	reconciliationSteps := map[string]ReconciliationStep{
		"balance_entry":  StepBalanceEntry,
		"gap_review":     StepGapReview,
		"gap_resolution": StepGapResolution,
		"confirmation":   StepConfirmation,
	}
	v, ok := reconciliationSteps[str]
	if !ok {
		return errors.New("invalid reconciliation step")
	}
	*s = v
	return nil
}
