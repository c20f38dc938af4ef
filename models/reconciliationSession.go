package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/reconcile_backend/config"
	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/google/uuid"
)

// Sessions are ephemeral workflow state: they only need to survive the
// active reconciliation, so they live in redis, not MySQL.
const SessionTTL = 24 * time.Hour

type SessionMetadata struct {
	DeviceType            string                     `json:"device_type"`
	InitialGapCount       int                        `json:"initial_gap_count"`
	ResolutionMethodsUsed []ResolutionMethod         `json:"resolution_methods_used"`
	TimeSpentPerStep      map[ReconciliationStep]int `json:"time_spent_per_step"`
}

// ReconciliationSession tracks one user's in-progress reconciliation of a
// checkpoint.
type ReconciliationSession struct {
	ID                 string             `json:"id"`
	WorkspaceId        string             `json:"workspace_id"`
	CheckpointId       string             `json:"checkpoint_id"`
	CurrentStep        ReconciliationStep `json:"current_step"`
	ProgressPercentage float64            `json:"progress_percentage"`
	GapsRemaining      int                `json:"gaps_remaining"`
	StartedAt          time.Time          `json:"started_at"`
	LastActivityAt     time.Time          `json:"last_activity_at"`
	Status             SessionStatus      `json:"status"`
	Metadata           SessionMetadata    `json:"metadata"`
}

func sessionKey(workspaceId, id string) string {
	return "ReconciliationSession:" + workspaceId + ":" + id
}

// CreateReconciliationSession starts the workflow for a freshly created
// checkpoint. The initial gap count is the number of unresolved gaps.
func CreateReconciliationSession(ctx context.Context, checkpoint *Checkpoint, deviceType string) (*ReconciliationSession, error) {

	now := config.GetClock().Now()
	remaining := 0
	for _, gap := range checkpoint.Gaps {
		if !gap.IsResolved() {
			remaining++
		}
	}

	session := ReconciliationSession{
		ID:             uuid.NewString(),
		WorkspaceId:    checkpoint.WorkspaceId,
		CheckpointId:   checkpoint.ID,
		CurrentStep:    StepBalanceEntry,
		GapsRemaining:  remaining,
		StartedAt:      now,
		LastActivityAt: now,
		Status:         SessionStatusActive,
		Metadata: SessionMetadata{
			DeviceType:            deviceType,
			InitialGapCount:       remaining,
			ResolutionMethodsUsed: []ResolutionMethod{},
			TimeSpentPerStep:      map[ReconciliationStep]int{},
		},
	}
	session.ProgressPercentage = CalculateProgressPercentage(session.CurrentStep, nil, session.GapsRemaining, session.Metadata.InitialGapCount)

	if err := SaveReconciliationSession(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func GetReconciliationSession(ctx context.Context, id string) (*ReconciliationSession, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, utils.NewValidationError("workspace_id", "workspace id is required")
	}

	var session ReconciliationSession
	exists, err := config.GetRedisObject(sessionKey(workspaceId, id), &session)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.ErrorRecordNotFound
	}
	return &session, nil
}

func SaveReconciliationSession(session *ReconciliationSession) error {
	return config.SetRedisObject(sessionKey(session.WorkspaceId, session.ID), session, SessionTTL)
}

// FindSessionForCheckpoint locates the active session attached to a
// checkpoint, if the caller only holds the checkpoint id.
func FindSessionForCheckpoint(ctx context.Context, checkpointId, sessionId string) (*ReconciliationSession, error) {
	session, err := GetReconciliationSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.CheckpointId != checkpointId {
		return nil, utils.NewValidationError("session_id", "session does not belong to checkpoint")
	}
	return session, nil
}

// RecordResolution updates the session counters after one gap is resolved.
func (s *ReconciliationSession) RecordResolution(method ResolutionMethod) {
	if s.GapsRemaining > 0 {
		s.GapsRemaining--
	}
	s.Metadata.ResolutionMethodsUsed = append(s.Metadata.ResolutionMethodsUsed, method)
	s.Touch()
	s.ProgressPercentage = CalculateProgressPercentage(s.CurrentStep, s.CompletedSteps(), s.GapsRemaining, s.Metadata.InitialGapCount)
}

// Touch refreshes the activity timestamp via the injected clock.
func (s *ReconciliationSession) Touch() {
	now := config.GetClock().Now()
	if !s.LastActivityAt.IsZero() {
		elapsed := int(now.Sub(s.LastActivityAt).Seconds())
		if elapsed > 0 {
			if s.Metadata.TimeSpentPerStep == nil {
				s.Metadata.TimeSpentPerStep = map[ReconciliationStep]int{}
			}
			s.Metadata.TimeSpentPerStep[s.CurrentStep] += elapsed
		}
	}
	s.LastActivityAt = now
}

// CompletedSteps derives the finished steps from the current position in the
// fixed sequence.
func (s *ReconciliationSession) CompletedSteps() []ReconciliationStep {
	idx := StepIndex(s.CurrentStep)
	if idx <= 0 {
		return nil
	}
	return ReconciliationSteps[:idx]
}

// AdvanceStep moves the session to the next step once the current one
// validates as complete.
func (s *ReconciliationSession) AdvanceStep() error {
	check := ValidateStepCompletion(s.CurrentStep, s)
	if !check.IsComplete {
		return utils.NewValidationError("current_step", check.Reason)
	}
	idx := StepIndex(s.CurrentStep)
	if idx < 0 || idx >= len(ReconciliationSteps)-1 {
		s.Status = SessionStatusCompleted
	} else {
		s.CurrentStep = ReconciliationSteps[idx+1]
	}
	s.Touch()
	s.ProgressPercentage = CalculateProgressPercentage(s.CurrentStep, s.CompletedSteps(), s.GapsRemaining, s.Metadata.InitialGapCount)
	return nil
}
