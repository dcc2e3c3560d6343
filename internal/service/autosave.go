package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/domain"
)

// caseFingerprint captures the fields whose change warrants a save. File
// payloads are summarized by count so large uploads do not inflate the
// fingerprint.
type caseFingerprint struct {
	ID         string                 `json:"id"`
	UserNotes  string                 `json:"userNotes"`
	Extracted  *domain.ExtractedFacts `json:"extracted"`
	FilesCount int                    `json:"filesCount"`
	Step       domain.WizardStep      `json:"step"`
}

func fingerprintOf(c *domain.Case, step domain.WizardStep) string {
	raw, err := json.Marshal(caseFingerprint{
		ID:         c.ID,
		UserNotes:  c.UserNotes,
		Extracted:  c.ExtractedData,
		FilesCount: len(c.EvidenceFiles),
		Step:       step,
	})
	if err != nil {
		return ""
	}
	return string(raw)
}

// RunAutosave periodically persists every dirty session. It blocks until the
// context is cancelled and is meant to run on its own goroutine.
func (s *CaseService) RunAutosave(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.autosaveTick(ctx)
		}
	}
}

func (s *CaseService) autosaveTick(ctx context.Context) {
	s.mu.RLock()
	sessions := make([]*caseSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		session.mu.Lock()
		if session.step == domain.StepWelcome {
			session.mu.Unlock()
			continue
		}
		fingerprint := fingerprintOf(session.current, session.step)
		if fingerprint == session.lastSavedFingerprint {
			session.mu.Unlock()
			continue
		}
		caseID := session.current.ID
		err := s.persistLocked(ctx, session)
		session.mu.Unlock()

		if err != nil {
			// A failed tick is retried on the next one; the session keeps
			// its stale fingerprint.
			s.logger.Warn("autosave failed", zap.String("case_id", caseID), zap.Error(err))
			continue
		}
		s.logger.Debug("autosaved case", zap.String("case_id", caseID))
	}
}
