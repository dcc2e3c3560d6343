package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/events"
	"github.com/spec-kit/refund-claim-service/internal/observability"
	"github.com/spec-kit/refund-claim-service/pkg/util"
)

// memCaseRepo is an in-memory CaseRepository.
type memCaseRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.Case
	puts  int
	fail  error
}

func newMemCaseRepo() *memCaseRepo {
	return &memCaseRepo{cases: make(map[string]*domain.Case)}
}

func (r *memCaseRepo) Put(_ context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if c.CreatedAt == nil {
		now := time.Now()
		c.CreatedAt = &now
	}
	clone := *c
	r.cases[c.ID] = &clone
	r.puts++
	return nil
}

func (r *memCaseRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	clone := *c
	return &clone, nil
}

func (r *memCaseRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Case
	for _, c := range r.cases {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memCaseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[id]; !ok {
		return errors.New("no rows")
	}
	delete(r.cases, id)
	return nil
}

func (r *memCaseRepo) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

// memLockRepo is an in-memory StageLockRepository.
type memLockRepo struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{held: make(map[string]bool)}
}

func (r *memLockRepo) Acquire(_ context.Context, caseID, stage string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := caseID + ":" + stage
	if r.held[key] {
		return false, nil
	}
	r.held[key] = true
	return true, nil
}

func (r *memLockRepo) Release(_ context.Context, caseID, stage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, caseID+":"+stage)
	return nil
}

// stubExtractor counts invocations and plays back one result.
type stubExtractor struct {
	mu    sync.Mutex
	calls int
	facts *domain.ExtractedFacts
	err   error
}

func (s *stubExtractor) Extract(_ context.Context, _ []domain.EvidenceItem, _ string, _ bool) (*domain.ExtractedFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	facts := *s.facts
	return &facts, nil
}

func (s *stubExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAnalyst struct {
	mu       sync.Mutex
	calls    int
	analysis *domain.PolicyAnalysis
	errs     []error
}

func (s *stubAnalyst) Analyze(_ context.Context, _ *domain.ExtractedFacts) (*domain.PolicyAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	analysis := *s.analysis
	return &analysis, nil
}

func (s *stubAnalyst) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubDrafter struct {
	mu     sync.Mutex
	calls  int
	letter string
	err    error
}

func (s *stubDrafter) Draft(_ context.Context, _ *domain.ExtractedFacts, _ *domain.PolicyAnalysis, _ domain.Language) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.letter, nil
}

func (s *stubDrafter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	svc       *CaseService
	cases     *memCaseRepo
	locks     *memLockRepo
	extractor *stubExtractor
	analyst   *stubAnalyst
	drafter   *stubDrafter
}

func goodFacts() *domain.ExtractedFacts {
	return &domain.ExtractedFacts{
		MerchantName:     "Acme Air",
		MerchantEmail:    "support@acmeair.example",
		TransactionDate:  "2025-03-10",
		Amount:           "450.00",
		Currency:         "USD",
		BookingReference: "ABC123",
		IssueDescription: "Flight cancelled without rebooking",
	}
}

func goodAnalysis() *domain.PolicyAnalysis {
	return &domain.PolicyAnalysis{
		IsLikelyRefundable:     true,
		RefundProbabilityScore: 85,
		KeyPolicyClause:        "EU261 cancellation compensation",
		StrategySuggestion:     "Cite the regulation and demand a cash refund",
	}
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		cases:     newMemCaseRepo(),
		locks:     newMemLockRepo(),
		extractor: &stubExtractor{facts: goodFacts()},
		analyst:   &stubAnalyst{analysis: goodAnalysis()},
		drafter:   &stubDrafter{letter: "Dear Acme Air,\n\nI request a full refund."},
	}
	f.svc = NewCaseService(CaseDependencies{
		CaseRepo:   f.cases,
		LockRepo:   f.locks,
		Extractor:  f.extractor,
		Analyst:    f.analyst,
		Drafter:    f.drafter,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zaptest.NewLogger(t),
		Metrics:    observability.NewMetrics(),
	})
	return f
}

func (f *fixture) createCase(t *testing.T, ownerID string) string {
	t.Helper()
	snapshot, err := f.svc.CreateCase(context.Background(), ownerID, domain.LanguageEnglish)
	require.NoError(t, err)
	return snapshot.Case.ID
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

func TestCreateCaseStartsAtUploadStep(t *testing.T) {
	f := newFixture(t)
	snapshot, err := f.svc.CreateCase(context.Background(), "user-1", domain.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, domain.StepUploadEvidence, snapshot.Step)
	assert.Equal(t, domain.StageWaiting, snapshot.Statuses.Extraction)
	assert.Empty(t, snapshot.Case.EvidenceFiles)
	// Not persisted yet.
	assert.Equal(t, 0, f.cases.putCount())
}

func TestCreateCaseRejectsUnknownLanguage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCase(context.Background(), "user-1", domain.Language("fr"))
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
}

func TestStartProcessingGuardRequiresEvidenceOrNotes(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	// Empty case: rejected before any model call.
	_, err := f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
	assert.Equal(t, 0, f.extractor.callCount())

	// Nine characters after trimming: still short.
	_, err = f.svc.UpdateNotes(context.Background(), "user-1", caseID, "  123456789  ")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
	assert.Equal(t, 0, f.extractor.callCount())

	// Ten characters passes.
	_, err = f.svc.UpdateNotes(context.Background(), "user-1", caseID, "1234567890")
	require.NoError(t, err)
	snapshot, err := f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, 1, f.extractor.callCount())
}

func TestStartProcessingGuardCountsCharactersNotBytes(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	// Four Chinese characters span twelve bytes but are still a short note.
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "航班取消")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
	assert.Equal(t, 0, f.extractor.callCount())

	// Ten Chinese characters is a sufficient description.
	_, err = f.svc.UpdateNotes(context.Background(), "user-1", caseID, "航班取消且拒绝退还全款")
	require.NoError(t, err)
	snapshot, err := f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, 1, f.extractor.callCount())
}

func TestStartProcessingHappyPath(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)

	snapshot, err := f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Extraction)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Analysis)
	assert.Equal(t, domain.StageWaiting, snapshot.Statuses.Drafting)
	require.NotNil(t, snapshot.Case.ExtractedData)
	assert.Equal(t, "Acme Air", snapshot.Case.ExtractedData.MerchantName)
	require.NotNil(t, snapshot.Case.PolicyAnalysis)
	assert.Equal(t, 85, snapshot.Case.PolicyAnalysis.RefundProbabilityScore)
}

func TestExtractionFailureSkipsAnalyst(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("model overloaded")
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)

	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeExtractionFailed, domainCode(t, err))
	// The analyst never runs after a failed extraction.
	assert.Equal(t, 0, f.analyst.callCount())

	snapshot, err := f.svc.GetCase(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepUploadEvidence, snapshot.Step)
	assert.Nil(t, snapshot.Case.ExtractedData)
	assert.Equal(t, domain.StageWaiting, snapshot.Statuses.Extraction)
}

func TestAnalysisFailureKeepsCommittedExtraction(t *testing.T) {
	f := newFixture(t)
	f.analyst.errs = []error{errors.New("rate limited")}
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)

	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeAnalysisFailed, domainCode(t, err))

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, util.RetryScopeUpload, domainErr.Details["retry_scope"])

	// Back to upload, but the extraction result survives.
	snapshot, err := f.svc.GetCase(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepUploadEvidence, snapshot.Step)
	require.NotNil(t, snapshot.Case.ExtractedData)
	assert.Equal(t, "Acme Air", snapshot.Case.ExtractedData.MerchantName)
	assert.Nil(t, snapshot.Case.PolicyAnalysis)

	// Retrying succeeds and re-runs both stages.
	snapshot, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, 2, f.extractor.callCount())
	assert.Equal(t, 2, f.analyst.callCount())
}

func TestStartProcessingSingleFlight(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)

	// A held distributed lock rejects the start.
	acquired, err := f.locks.Acquire(context.Background(), caseID, "pipeline", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
	assert.Equal(t, 0, f.extractor.callCount())

	require.NoError(t, f.locks.Release(context.Background(), caseID, "pipeline"))
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)
}

func TestRefreshAnalysisReplacesResult(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	f.analyst.mu.Lock()
	f.analyst.analysis = &domain.PolicyAnalysis{
		IsLikelyRefundable:     true,
		RefundProbabilityScore: 92,
		KeyPolicyClause:        "Updated clause",
		StrategySuggestion:     "Updated strategy",
	}
	f.analyst.mu.Unlock()

	snapshot, err := f.svc.RefreshAnalysis(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, 92, snapshot.Case.PolicyAnalysis.RefundProbabilityScore)
	assert.Equal(t, 2, f.analyst.callCount())
}

func TestRefreshAnalysisFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	f.analyst.mu.Lock()
	f.analyst.errs = []error{errors.New("timeout")}
	f.analyst.mu.Unlock()

	_, err = f.svc.RefreshAnalysis(context.Background(), "user-1", caseID)
	require.Error(t, err)
	assert.Equal(t, util.CodeAnalysisFailed, domainCode(t, err))

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, util.RetryScopeRefresh, domainErr.Details["retry_scope"])

	// The previous analysis is still there and the step is unchanged.
	snapshot, err := f.svc.GetCase(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, 85, snapshot.Case.PolicyAnalysis.RefundProbabilityScore)
}

func TestRefreshAnalysisRequiresReviewStep(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.RefreshAnalysis(context.Background(), "user-1", caseID)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
	assert.Equal(t, 0, f.analyst.callCount())
}

func TestGenerateLetterGateBlocksMissingFields(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	// Blank out a required field via manual edit.
	empty := ""
	_, err = f.svc.UpdateFacts(context.Background(), "user-1", caseID, FactsPatch{Amount: &empty})
	require.NoError(t, err)

	_, err = f.svc.GenerateLetter(context.Background(), "user-1", caseID)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Contains(t, domainErr.Details["fields"], "amount")
	// The drafter was never invoked.
	assert.Equal(t, 0, f.drafter.callCount())

	// Restoring the field unblocks drafting.
	amount := "450.00"
	_, err = f.svc.UpdateFacts(context.Background(), "user-1", caseID, FactsPatch{Amount: &amount})
	require.NoError(t, err)
	snapshot, err := f.svc.GenerateLetter(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepLetterReady, snapshot.Step)
}

func TestGenerateLetterPersistsCase(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	snapshot, err := f.svc.GenerateLetter(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepLetterReady, snapshot.Step)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Drafting)
	assert.Contains(t, snapshot.Case.GeneratedLetter, "full refund")
	require.NotNil(t, snapshot.Case.CreatedAt)

	stored, err := f.cases.GetByID(context.Background(), caseID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.GeneratedLetter)
}

func TestGenerateLetterFailureReturnsToReview(t *testing.T) {
	f := newFixture(t)
	f.drafter.err = errors.New("drafting model down")
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	_, err = f.svc.GenerateLetter(context.Background(), "user-1", caseID)
	require.Error(t, err)
	assert.Equal(t, util.CodeDraftingFailed, domainCode(t, err))

	snapshot, err := f.svc.GetCase(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Empty(t, snapshot.Case.GeneratedLetter)
	// Facts and analysis remain for a retry.
	assert.NotNil(t, snapshot.Case.ExtractedData)
	assert.NotNil(t, snapshot.Case.PolicyAnalysis)
}

func TestResumeFromPersistedCase(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)
	_, err = f.svc.GenerateLetter(context.Background(), "user-1", caseID)
	require.NoError(t, err)

	// Simulate a restart by building a fresh service over the same storage.
	restarted := NewCaseService(CaseDependencies{
		CaseRepo:   f.cases,
		LockRepo:   newMemLockRepo(),
		Extractor:  f.extractor,
		Analyst:    f.analyst,
		Drafter:    f.drafter,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zaptest.NewLogger(t),
		Metrics:    observability.NewMetrics(),
	})

	snapshot, err := restarted.GetCase(context.Background(), "user-1", caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepLetterReady, snapshot.Step)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Extraction)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Analysis)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Drafting)
}

func TestOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	_, err := f.svc.GetCase(context.Background(), "user-2", caseID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestAddEvidenceFilesIsolatesBadPayloads(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	good := base64.StdEncoding.EncodeToString([]byte("receipt"))
	snapshot, skipped, err := f.svc.AddEvidenceFiles(context.Background(), "user-1", caseID, []EvidenceFileInput{
		{DisplayName: "receipt.png", MIMEType: "image/png", Base64Data: good},
		{DisplayName: "broken.pdf", MIMEType: "application/pdf", Base64Data: "!!not-base64!!"},
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, snapshot.Case.EvidenceFiles, 2)

	byName := map[string]domain.EvidenceItem{}
	for _, item := range snapshot.Case.EvidenceFiles {
		byName[item.DisplayName] = item
	}
	assert.Equal(t, domain.UploadDone, byName["receipt.png"].UploadStatus)
	assert.Equal(t, 100, byName["receipt.png"].UploadProgress)
	assert.Equal(t, domain.UploadFailed, byName["broken.pdf"].UploadStatus)
}

func TestAddEvidenceFilesSkipsOversized(t *testing.T) {
	f := newFixture(t)
	f.svc.maxFileBytes = 8
	caseID := f.createCase(t, "user-1")

	big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 64)))
	small := base64.StdEncoding.EncodeToString([]byte("tiny"))
	snapshot, skipped, err := f.svc.AddEvidenceFiles(context.Background(), "user-1", caseID, []EvidenceFileInput{
		{DisplayName: "huge.mp4", MIMEType: "video/mp4", Base64Data: big},
		{DisplayName: "small.png", MIMEType: "image/png", Base64Data: small},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"huge.mp4"}, skipped)
	require.Len(t, snapshot.Case.EvidenceFiles, 1)
	assert.Equal(t, "small.png", snapshot.Case.EvidenceFiles[0].DisplayName)
}

func TestRemoveEvidence(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	snapshot, err := f.svc.AddEvidenceLink(context.Background(), "user-1", caseID, "https://example.com/booking")
	require.NoError(t, err)
	itemID := snapshot.Case.EvidenceFiles[0].ID

	snapshot, err = f.svc.RemoveEvidence(context.Background(), "user-1", caseID, itemID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Case.EvidenceFiles)

	_, err = f.svc.RemoveEvidence(context.Background(), "user-1", caseID, "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestSetLanguageOnlyBeforeProcessing(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")

	snapshot, err := f.svc.SetLanguage(context.Background(), "user-1", caseID, domain.LanguageChinese)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageChinese, snapshot.Case.UserLanguage)

	_, err = f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(context.Background(), "user-1", caseID, false)
	require.NoError(t, err)

	_, err = f.svc.SetLanguage(context.Background(), "user-1", caseID, domain.LanguageSpanish)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
}

func TestCreateCaseFromTemplate(t *testing.T) {
	f := newFixture(t)
	template := &domain.Template{
		ID:      "tpl-1",
		OwnerID: "user-1",
		Name:    "Cancelled flight",
		Data: domain.TemplateData{
			MerchantName:     "Acme Air",
			MerchantEmail:    "support@acmeair.example",
			IssueDescription: "Flight cancelled",
			UserNotes:        "previous notes",
		},
	}

	snapshot, err := f.svc.CreateCaseFromTemplate(context.Background(), "user-1", template, domain.LanguageChinese)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReviewAnalysis, snapshot.Step)
	assert.Equal(t, domain.StageDone, snapshot.Statuses.Extraction)
	// The caller's current language carries onto the seeded case.
	assert.Equal(t, domain.LanguageChinese, snapshot.Case.UserLanguage)
	require.NotNil(t, snapshot.Case.ExtractedData)
	assert.Equal(t, "Acme Air", snapshot.Case.ExtractedData.MerchantName)
	assert.Equal(t, "USD", snapshot.Case.ExtractedData.Currency)
	assert.Equal(t, time.Now().Format("2006-01-02"), snapshot.Case.ExtractedData.TransactionDate)

	// An omitted language falls back to English.
	fallback, err := f.svc.CreateCaseFromTemplate(context.Background(), "user-1", template, "")
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageEnglish, fallback.Case.UserLanguage)

	_, err = f.svc.CreateCaseFromTemplate(context.Background(), "user-2", template, domain.LanguageEnglish)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestAutosaveTickPersistsDirtySessions(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)

	f.svc.autosaveTick(context.Background())
	assert.Equal(t, 1, f.cases.putCount())

	// Unchanged state saves nothing on the next tick.
	f.svc.autosaveTick(context.Background())
	assert.Equal(t, 1, f.cases.putCount())

	// Another edit marks the session dirty again.
	_, err = f.svc.UpdateNotes(context.Background(), "user-1", caseID, "and the airline refused a refund")
	require.NoError(t, err)
	f.svc.autosaveTick(context.Background())
	assert.Equal(t, 2, f.cases.putCount())
}

func TestDeleteCaseDropsSessionAndRow(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "my flight was cancelled yesterday")
	require.NoError(t, err)
	f.svc.autosaveTick(context.Background())

	require.NoError(t, f.svc.DeleteCase(context.Background(), "user-1", caseID))

	_, err = f.cases.GetByID(context.Background(), caseID)
	require.Error(t, err)
	_, err = f.svc.GetCase(context.Background(), "user-1", caseID)
	require.Error(t, err)
}

func TestApplyNoteTemplateAppends(t *testing.T) {
	f := newFixture(t)
	caseID := f.createCase(t, "user-1")
	_, err := f.svc.UpdateNotes(context.Background(), "user-1", caseID, "existing notes")
	require.NoError(t, err)

	snapshot, err := f.svc.ApplyNoteTemplate(context.Background(), "user-1", caseID, domain.LanguageEnglish, NoteTemplateFlight)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snapshot.Case.UserNotes, "existing notes\n\n"))
	assert.Contains(t, snapshot.Case.UserNotes, "was cancelled")

	_, err = f.svc.ApplyNoteTemplate(context.Background(), "user-1", caseID, domain.LanguageEnglish, NoteTemplateKind("bogus"))
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, domainCode(t, err))
}
