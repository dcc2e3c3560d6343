package service

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/events"
	"github.com/spec-kit/refund-claim-service/internal/observability"
	"github.com/spec-kit/refund-claim-service/internal/repository"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// minNotesLength is the shortest free-text description accepted in place of
// evidence files when starting the pipeline, counted in characters.
const minNotesLength = 10

// stageLockTTL bounds how long a crashed stage invocation can hold its
// single-flight lock.
const stageLockTTL = 5 * time.Minute

// EvidenceExtractor runs the evidence-collection stage.
type EvidenceExtractor interface {
	Extract(ctx context.Context, items []domain.EvidenceItem, userNotes string, useSearch bool) (*domain.ExtractedFacts, error)
}

// PolicyAnalyst runs the policy-review stage.
type PolicyAnalyst interface {
	Analyze(ctx context.Context, facts *domain.ExtractedFacts) (*domain.PolicyAnalysis, error)
}

// LetterDrafter runs the letter-writing stage.
type LetterDrafter interface {
	Draft(ctx context.Context, facts *domain.ExtractedFacts, analysis *domain.PolicyAnalysis, language domain.Language) (string, error)
}

// CaseService is the wizard orchestrator. It owns all case mutation,
// sequences the three pipeline stages, tracks per-stage status and recovers
// from stage-specific failures.
type CaseService struct {
	cases      repository.CaseRepository
	locks      repository.StageLockRepository
	extractor  EvidenceExtractor
	analyst    PolicyAnalyst
	drafter    LetterDrafter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	maxFileBytes int64

	mu       sync.RWMutex
	sessions map[string]*caseSession
}

// CaseDependencies bundles collaborators for the orchestrator.
type CaseDependencies struct {
	CaseRepo     repository.CaseRepository
	LockRepo     repository.StageLockRepository
	Extractor    EvidenceExtractor
	Analyst      PolicyAnalyst
	Drafter      LetterDrafter
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	MaxFileBytes int64
}

// caseSession is the in-memory wizard state for one active case.
type caseSession struct {
	mu sync.Mutex

	current  *domain.Case
	step     domain.WizardStep
	statuses domain.StageStatuses

	pipelineBusy bool
	refreshBusy  bool
	draftBusy    bool

	// generation increments whenever the session's case is replaced, so a
	// late-arriving stage result for the old case can be discarded.
	generation uint64

	lastSavedFingerprint string
}

// CaseSnapshot is a read-only view of a session handed to the transport
// layer.
type CaseSnapshot struct {
	Case     domain.Case
	Step     domain.WizardStep
	Statuses domain.StageStatuses
}

// NewCaseService constructs the orchestrator.
func NewCaseService(deps CaseDependencies) *CaseService {
	maxBytes := deps.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &CaseService{
		cases:        deps.CaseRepo,
		locks:        deps.LockRepo,
		extractor:    deps.Extractor,
		analyst:      deps.Analyst,
		drafter:      deps.Drafter,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		maxFileBytes: maxBytes,
		sessions:     make(map[string]*caseSession),
	}
}

// CreateCase starts a fresh case at the evidence step. The case is not
// persisted until the autosave tick or letter completion saves it.
func (s *CaseService) CreateCase(_ context.Context, ownerID string, language domain.Language) (*CaseSnapshot, error) {
	if language == "" {
		language = domain.LanguageEnglish
	}
	if !domain.ValidLanguage(language) {
		return nil, apperrors.NewValidationError("unsupported language", map[string]any{"language": language})
	}

	c := &domain.Case{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		UserLanguage:  language,
		EvidenceFiles: []domain.EvidenceItem{},
	}
	session := &caseSession{
		current:  c,
		step:     domain.StepUploadEvidence,
		statuses: domain.NewStageStatuses(),
	}

	s.mu.Lock()
	s.sessions[c.ID] = session
	s.mu.Unlock()

	s.publishEvent(events.Event{
		Type:    events.EventCaseCreated,
		CaseID:  c.ID,
		UserID:  ownerID,
		Payload: events.CaseCreatedPayload{Language: string(language)},
	})
	return snapshotOf(session), nil
}

// CreateCaseFromTemplate seeds a new case from a saved template and jumps
// straight to the review step with extraction marked done.
func (s *CaseService) CreateCaseFromTemplate(ctx context.Context, ownerID string, template *domain.Template, language domain.Language) (*CaseSnapshot, error) {
	if template.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("template belongs to another user")
	}
	if language == "" {
		language = domain.LanguageEnglish
	}
	if !domain.ValidLanguage(language) {
		return nil, apperrors.NewValidationError("unsupported language", map[string]any{"language": language})
	}

	currency := template.Data.Currency
	if currency == "" {
		currency = "USD"
	}
	c := &domain.Case{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		UserLanguage:  language,
		EvidenceFiles: []domain.EvidenceItem{},
		UserNotes:     template.Data.UserNotes,
		ExtractedData: &domain.ExtractedFacts{
			MerchantName:     template.Data.MerchantName,
			MerchantEmail:    template.Data.MerchantEmail,
			TransactionDate:  time.Now().Format("2006-01-02"),
			Currency:         currency,
			IssueDescription: template.Data.IssueDescription,
		},
	}
	session := &caseSession{
		current: c,
		step:    domain.StepReviewAnalysis,
		statuses: domain.StageStatuses{
			Extraction: domain.StageDone,
			Analysis:   domain.StageWaiting,
			Drafting:   domain.StageWaiting,
		},
	}

	s.mu.Lock()
	s.sessions[c.ID] = session
	s.mu.Unlock()

	s.publishEvent(events.Event{
		Type:    events.EventCaseCreated,
		CaseID:  c.ID,
		UserID:  ownerID,
		Payload: events.CaseCreatedPayload{Language: string(c.UserLanguage)},
	})
	return snapshotOf(session), nil
}

// ListCases returns the owner's persisted case history, most recent first.
func (s *CaseService) ListCases(ctx context.Context, ownerID string) ([]domain.Case, error) {
	return s.cases.ListByOwner(ctx, ownerID)
}

// GetCase returns the live session for a case, loading it from storage when
// no session exists. Loading resumes at the furthest completed step.
func (s *CaseService) GetCase(ctx context.Context, ownerID, caseID string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(session), nil
}

// DeleteCase removes a persisted case and drops its session.
func (s *CaseService) DeleteCase(ctx context.Context, ownerID, caseID string) error {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.generation++
	session.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, caseID)
	s.mu.Unlock()

	if err := s.cases.Delete(ctx, caseID); err != nil {
		// Never-persisted cases have no stored row; dropping the session is
		// all that is needed.
		s.logger.Debug("delete case row", zap.String("case_id", caseID), zap.Error(err))
	}
	s.publishEvent(events.Event{
		Type:   events.EventCaseDeleted,
		CaseID: caseID,
		UserID: ownerID,
	})
	return nil
}

// EvidenceFileInput is one uploaded file payload.
type EvidenceFileInput struct {
	DisplayName string
	MIMEType    string
	Base64Data  string
}

// AddEvidenceFiles registers a batch of uploaded files on the case. Each
// file's payload is verified concurrently; a bad or oversized file is marked
// failed (or skipped) without aborting the batch. Returns the names of files
// skipped for exceeding the size limit.
func (s *CaseService) AddEvidenceFiles(ctx context.Context, ownerID, caseID string, files []EvidenceFileInput) (*CaseSnapshot, []string, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, apperrors.NewValidationError("no files provided", nil)
	}

	var skipped []string
	items := make([]domain.EvidenceItem, 0, len(files))
	for _, file := range files {
		if int64(base64.StdEncoding.DecodedLen(len(file.Base64Data))) > s.maxFileBytes {
			skipped = append(skipped, file.DisplayName)
			continue
		}
		items = append(items, domain.EvidenceItem{
			ID:           uuid.NewString(),
			Kind:         domain.KindForMIME(file.MIMEType),
			Base64Data:   file.Base64Data,
			MIMEType:     file.MIMEType,
			DisplayName:  file.DisplayName,
			UploadStatus: domain.UploadPending,
		})
	}

	// Verify payloads concurrently, one worker per file. Failures stay
	// isolated to their item.
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(item *domain.EvidenceItem) {
			defer wg.Done()
			if _, err := base64.StdEncoding.DecodeString(item.Base64Data); err != nil {
				item.UploadStatus = domain.UploadFailed
				item.UploadProgress = 0
				return
			}
			item.UploadStatus = domain.UploadDone
			item.UploadProgress = 100
		}(&items[i])
	}
	wg.Wait()

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.step != domain.StepUploadEvidence {
		return nil, nil, apperrors.NewValidationError("evidence can only be added on the upload step", nil)
	}
	session.current.EvidenceFiles = append(session.current.EvidenceFiles, items...)
	return snapshotLocked(session), skipped, nil
}

// AddEvidenceLink registers a link reference as evidence.
func (s *CaseService) AddEvidenceLink(ctx context.Context, ownerID, caseID, url string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.NewValidationError("url required", nil)
	}

	item := domain.EvidenceItem{
		ID:             uuid.NewString(),
		Kind:           domain.EvidenceKindLink,
		LinkURL:        url,
		MIMEType:       "text/uri-list",
		DisplayName:    url,
		UploadStatus:   domain.UploadDone,
		UploadProgress: 100,
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.step != domain.StepUploadEvidence {
		return nil, apperrors.NewValidationError("evidence can only be added on the upload step", nil)
	}
	session.current.EvidenceFiles = append(session.current.EvidenceFiles, item)
	return snapshotLocked(session), nil
}

// RemoveEvidence deletes one evidence item by id.
func (s *CaseService) RemoveEvidence(ctx context.Context, ownerID, caseID, itemID string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	kept := session.current.EvidenceFiles[:0:0]
	found := false
	for _, item := range session.current.EvidenceFiles {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, apperrors.NewNotFound("evidence item", map[string]any{"id": itemID})
	}
	session.current.EvidenceFiles = kept
	return snapshotLocked(session), nil
}

// UpdateNotes replaces the case's free-text notes.
func (s *CaseService) UpdateNotes(ctx context.Context, ownerID, caseID, notes string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.current.UserNotes = notes
	return snapshotLocked(session), nil
}

// AppendNotes appends text (for example a note template) to the case notes.
func (s *CaseService) AppendNotes(ctx context.Context, ownerID, caseID, text string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	current := strings.TrimSpace(session.current.UserNotes)
	if current == "" {
		session.current.UserNotes = text
	} else {
		session.current.UserNotes = current + "\n\n" + text
	}
	return snapshotLocked(session), nil
}

// SetLanguage changes the drafting language. Only allowed before processing
// starts.
func (s *CaseService) SetLanguage(ctx context.Context, ownerID, caseID string, language domain.Language) (*CaseSnapshot, error) {
	if !domain.ValidLanguage(language) {
		return nil, apperrors.NewValidationError("unsupported language", map[string]any{"language": language})
	}
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.step != domain.StepUploadEvidence {
		return nil, apperrors.NewValidationError("language can only change on the upload step", nil)
	}
	session.current.UserLanguage = language
	return snapshotLocked(session), nil
}

// FactsPatch carries manual corrections to extracted fields. Nil fields are
// left untouched.
type FactsPatch struct {
	MerchantName     *string
	MerchantEmail    *string
	TransactionDate  *string
	Amount           *string
	Currency         *string
	BookingReference *string
	IssueDescription *string
}

// UpdateFacts applies manual edits to the extracted facts during review.
func (s *CaseService) UpdateFacts(ctx context.Context, ownerID, caseID string, patch FactsPatch) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.current.ExtractedData == nil {
		return nil, apperrors.NewValidationError("no extracted data to edit", nil)
	}
	facts := session.current.ExtractedData
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&facts.MerchantName, patch.MerchantName)
	apply(&facts.MerchantEmail, patch.MerchantEmail)
	apply(&facts.TransactionDate, patch.TransactionDate)
	apply(&facts.Amount, patch.Amount)
	apply(&facts.Currency, patch.Currency)
	apply(&facts.BookingReference, patch.BookingReference)
	apply(&facts.IssueDescription, patch.IssueDescription)
	return snapshotLocked(session), nil
}

// StartProcessing runs the extraction stage and, only when it succeeds, the
// analysis stage. Both stage-1 failures route back to the upload step; a
// committed extraction survives an analysis failure.
func (s *CaseService) StartProcessing(ctx context.Context, ownerID, caseID string, useSearch bool) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.step != domain.StepUploadEvidence {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("processing can only start from the upload step", nil)
	}
	if len(session.current.EvidenceFiles) == 0 && utf8.RuneCountInString(strings.TrimSpace(session.current.UserNotes)) < minNotesLength {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("provide evidence or a more detailed description", nil)
	}
	if session.pipelineBusy {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("processing already in progress", nil)
	}

	acquired, lockErr := s.locks.Acquire(ctx, caseID, "pipeline", stageLockTTL)
	if lockErr != nil {
		session.mu.Unlock()
		return nil, lockErr
	}
	if !acquired {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("processing already in progress", nil)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), caseID, "pipeline"); err != nil {
			s.logger.Warn("release pipeline lock", zap.String("case_id", caseID), zap.Error(err))
		}
	}()

	session.pipelineBusy = true
	session.step = domain.StepProcessing
	session.statuses = domain.StageStatuses{
		Extraction: domain.StageActive,
		Analysis:   domain.StageWaiting,
		Drafting:   domain.StageWaiting,
	}
	generation := session.generation
	items := cloneEvidence(session.current.EvidenceFiles)
	notes := session.current.UserNotes
	session.mu.Unlock()

	defer func() {
		session.mu.Lock()
		session.pipelineBusy = false
		session.mu.Unlock()
	}()

	facts, stageErr := s.runExtraction(ctx, caseID, ownerID, items, notes, useSearch)
	if stageErr != nil {
		s.failPipeline(session, generation)
		return nil, apperrors.NewExtractionFailed(stageErr)
	}

	session.mu.Lock()
	if session.generation != generation {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("case was replaced while processing", nil)
	}
	session.current.ExtractedData = facts
	session.statuses.Extraction = domain.StageDone
	session.statuses.Analysis = domain.StageActive
	session.mu.Unlock()

	analysis, stageErr := s.runAnalysis(ctx, caseID, ownerID, facts)
	if stageErr != nil {
		// Routed like an extraction failure: back to the upload step. The
		// committed extraction stays on the case.
		s.failPipeline(session, generation)
		return nil, apperrors.NewAnalysisFailed(apperrors.RetryScopeUpload, stageErr)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.generation != generation {
		return nil, apperrors.NewConflict("case was replaced while processing", nil)
	}
	session.current.PolicyAnalysis = analysis
	session.statuses.Analysis = domain.StageDone
	session.step = domain.StepReviewAnalysis
	return snapshotLocked(session), nil
}

// RefreshAnalysis re-invokes the analyst on the committed facts without
// leaving the review step. Only one refresh may be in flight per case.
func (s *CaseService) RefreshAnalysis(ctx context.Context, ownerID, caseID string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.step != domain.StepReviewAnalysis {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("analysis can only refresh during review", nil)
	}
	if session.current.ExtractedData == nil {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("no extracted data to analyze", nil)
	}
	if session.refreshBusy {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("analysis refresh already in progress", nil)
	}

	acquired, lockErr := s.locks.Acquire(ctx, caseID, "refresh", stageLockTTL)
	if lockErr != nil {
		session.mu.Unlock()
		return nil, lockErr
	}
	if !acquired {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("analysis refresh already in progress", nil)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), caseID, "refresh"); err != nil {
			s.logger.Warn("release refresh lock", zap.String("case_id", caseID), zap.Error(err))
		}
	}()

	session.refreshBusy = true
	generation := session.generation
	facts := *session.current.ExtractedData
	session.mu.Unlock()

	defer func() {
		session.mu.Lock()
		session.refreshBusy = false
		session.mu.Unlock()
	}()

	analysis, stageErr := s.runAnalysis(ctx, caseID, ownerID, &facts)
	if stageErr != nil {
		return nil, apperrors.NewAnalysisFailed(apperrors.RetryScopeRefresh, stageErr)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.generation != generation {
		return nil, apperrors.NewConflict("case was replaced while analyzing", nil)
	}
	session.current.PolicyAnalysis = analysis
	return snapshotLocked(session), nil
}

// GenerateLetter runs the drafting stage and persists the completed case.
func (s *CaseService) GenerateLetter(ctx context.Context, ownerID, caseID string) (*CaseSnapshot, error) {
	session, err := s.session(ctx, ownerID, caseID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.step != domain.StepReviewAnalysis {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("letter generation requires the review step", nil)
	}
	if session.current.ExtractedData == nil || session.current.PolicyAnalysis == nil {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("extraction and analysis must complete first", nil)
	}
	if missing := session.current.ExtractedData.MissingRequired(); len(missing) > 0 {
		session.mu.Unlock()
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if session.draftBusy {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("letter generation already in progress", nil)
	}

	acquired, lockErr := s.locks.Acquire(ctx, caseID, "drafting", stageLockTTL)
	if lockErr != nil {
		session.mu.Unlock()
		return nil, lockErr
	}
	if !acquired {
		session.mu.Unlock()
		return nil, apperrors.NewConflict("letter generation already in progress", nil)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), caseID, "drafting"); err != nil {
			s.logger.Warn("release drafting lock", zap.String("case_id", caseID), zap.Error(err))
		}
	}()

	session.draftBusy = true
	session.step = domain.StepGeneratingLetter
	session.statuses.Drafting = domain.StageActive
	generation := session.generation
	facts := *session.current.ExtractedData
	analysis := *session.current.PolicyAnalysis
	language := session.current.UserLanguage
	session.mu.Unlock()

	defer func() {
		session.mu.Lock()
		session.draftBusy = false
		session.mu.Unlock()
	}()

	started := time.Now()
	letter, stageErr := s.drafter.Draft(ctx, &facts, &analysis, language)
	s.recordStage(events.StageDrafting, caseID, ownerID, started, stageErr)
	if stageErr != nil {
		session.mu.Lock()
		if session.generation == generation {
			session.step = domain.StepReviewAnalysis
			session.statuses.Drafting = domain.StageWaiting
		}
		session.mu.Unlock()
		return nil, apperrors.NewDraftingFailed(stageErr)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.generation != generation {
		return nil, apperrors.NewConflict("case was replaced while drafting", nil)
	}
	session.current.GeneratedLetter = letter
	session.statuses.Drafting = domain.StageDone
	session.step = domain.StepLetterReady

	if err := s.persistLocked(ctx, session); err != nil {
		s.logger.Error("persist completed case", zap.String("case_id", caseID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	s.publishEvent(events.Event{
		Type:   events.EventLetterGenerated,
		CaseID: caseID,
		UserID: ownerID,
		Payload: events.LetterGeneratedPayload{
			Language:    string(language),
			LetterChars: len(letter),
		},
	})
	return snapshotLocked(session), nil
}

// runExtraction invokes the extractor and records its outcome.
func (s *CaseService) runExtraction(ctx context.Context, caseID, ownerID string, items []domain.EvidenceItem, notes string, useSearch bool) (*domain.ExtractedFacts, error) {
	started := time.Now()
	facts, err := s.extractor.Extract(ctx, items, notes, useSearch)
	s.recordStage(events.StageExtraction, caseID, ownerID, started, err)
	return facts, err
}

// runAnalysis invokes the analyst and records its outcome.
func (s *CaseService) runAnalysis(ctx context.Context, caseID, ownerID string, facts *domain.ExtractedFacts) (*domain.PolicyAnalysis, error) {
	started := time.Now()
	analysis, err := s.analyst.Analyze(ctx, facts)
	s.recordStage(events.StageAnalysis, caseID, ownerID, started, err)
	return analysis, err
}

// failPipeline routes a processing failure back to the upload step with all
// stage indicators reset.
func (s *CaseService) failPipeline(session *caseSession, generation uint64) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.generation != generation {
		return
	}
	session.step = domain.StepUploadEvidence
	session.statuses = domain.NewStageStatuses()
}

func (s *CaseService) recordStage(stage, caseID, ownerID string, started time.Time, err error) {
	duration := time.Since(started)
	s.metrics.RecordStage(stage, duration, err != nil)
	if err != nil {
		s.logger.Warn("stage failed",
			zap.String("stage", stage),
			zap.String("case_id", caseID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		s.publishEvent(events.Event{
			Type:   events.EventStageFailed,
			CaseID: caseID,
			UserID: ownerID,
			Payload: events.StageFailedPayload{
				Stage:    stage,
				Duration: duration,
				Error:    err.Error(),
			},
		})
		return
	}
	s.logger.Info("stage completed",
		zap.String("stage", stage),
		zap.String("case_id", caseID),
		zap.Duration("duration", duration),
	)
	s.publishEvent(events.Event{
		Type:   events.EventStageCompleted,
		CaseID: caseID,
		UserID: ownerID,
		Payload: events.StageCompletedPayload{
			Stage:    stage,
			Duration: duration,
		},
	})
}

// session returns the live session for the case, loading the persisted
// document if needed.
func (s *CaseService) session(ctx context.Context, ownerID, caseID string) (*caseSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[caseID]
	s.mu.RUnlock()
	if ok {
		session.mu.Lock()
		owner := session.current.OwnerID
		session.mu.Unlock()
		if owner != ownerID {
			return nil, apperrors.NewForbidden("case belongs to another user")
		}
		return session, nil
	}

	loaded, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, apperrors.NewNotFound("case", map[string]any{"id": caseID})
	}
	if loaded.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("case belongs to another user")
	}

	session = &caseSession{
		current:  loaded,
		step:     loaded.ResumeStep(),
		statuses: loaded.ResumeStatuses(),
	}
	session.lastSavedFingerprint = fingerprintOf(loaded, session.step)

	s.mu.Lock()
	if existing, ok := s.sessions[caseID]; ok {
		// Raced with a concurrent load; keep the first session.
		session = existing
	} else {
		s.sessions[caseID] = session
	}
	s.mu.Unlock()
	return session, nil
}

// persistLocked saves the session's case; the session mutex must be held.
func (s *CaseService) persistLocked(ctx context.Context, session *caseSession) error {
	if err := s.cases.Put(ctx, session.current); err != nil {
		return err
	}
	session.lastSavedFingerprint = fingerprintOf(session.current, session.step)
	return nil
}

func snapshotOf(session *caseSession) *CaseSnapshot {
	session.mu.Lock()
	defer session.mu.Unlock()
	return snapshotLocked(session)
}

func snapshotLocked(session *caseSession) *CaseSnapshot {
	return &CaseSnapshot{
		Case:     *cloneCase(session.current),
		Step:     session.step,
		Statuses: session.statuses,
	}
}

func cloneCase(c *domain.Case) *domain.Case {
	clone := *c
	clone.EvidenceFiles = cloneEvidence(c.EvidenceFiles)
	if c.ExtractedData != nil {
		facts := *c.ExtractedData
		facts.SearchSources = append([]domain.SearchSource(nil), c.ExtractedData.SearchSources...)
		clone.ExtractedData = &facts
	}
	if c.PolicyAnalysis != nil {
		analysis := *c.PolicyAnalysis
		clone.PolicyAnalysis = &analysis
	}
	if c.CreatedAt != nil {
		createdAt := *c.CreatedAt
		clone.CreatedAt = &createdAt
	}
	return &clone
}

func cloneEvidence(items []domain.EvidenceItem) []domain.EvidenceItem {
	return append([]domain.EvidenceItem(nil), items...)
}

func (s *CaseService) publishEvent(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}
