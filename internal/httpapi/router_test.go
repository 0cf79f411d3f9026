package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ideagraph/internal/domain"
	"ideagraph/internal/httpapi"
	"ideagraph/internal/rag"
	"ideagraph/internal/vectorindex"
	"ideagraph/internal/websearch"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrchestrator struct {
	calls int
}

func (f *fakeOrchestrator) PollAllOnce(context.Context) { f.calls++ }

type fakeBackpressure struct {
	poisoned []*domain.PoisonedMessage
	cleared  []string
}

func (f *fakeBackpressure) ListPoisoned(_ context.Context, sourceKind string) ([]*domain.PoisonedMessage, error) {
	return f.poisoned, nil
}
func (f *fakeBackpressure) Clear(_ context.Context, sourceKind, sourceID string) error {
	f.cleared = append(f.cleared, sourceKind+"|"+sourceID)
	return nil
}

type fakeRAG struct {
	answer *rag.Answer
	err    error
}

func (f *fakeRAG) Ask(context.Context, string, string) (*rag.Answer, error) {
	return f.answer, f.err
}

type fakeAdvisor struct {
	internalResult string
	externalErr    error
}

func (f *fakeAdvisor) Internal(context.Context, string) (string, error) {
	return f.internalResult, nil
}
func (f *fakeAdvisor) External(context.Context, string) (string, error) {
	return "", f.externalErr
}

func newTestRouter() (*gin.Engine, *fakeOrchestrator, *fakeBackpressure, *fakeRAG, *fakeAdvisor) {
	o := &fakeOrchestrator{}
	bp := &fakeBackpressure{}
	rp := &fakeRAG{answer: &rag.Answer{Text: "answer text"}}
	adv := &fakeAdvisor{internalResult: "internal analysis"}
	return httpapi.NewRouter(o, bp, rp, adv, zap.NewNop()), o, bp, rp, adv
}

func TestHealthEndpoint(t *testing.T) {
	r, _, _, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPollOnceTriggersOrchestrator(t *testing.T) {
	r, o, _, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/poll", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, o.calls)
}

func TestListAndClearPoisoned(t *testing.T) {
	r, _, bp, _, _ := newTestRouter()
	bp.poisoned = []*domain.PoisonedMessage{{SourceKind: "mail", SourceID: "m1", Poisoned: true}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backpressure/mail", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Poisoned []*domain.PoisonedMessage `json:"poisoned"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Poisoned, 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/backpressure/mail/m1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mail|m1"}, bp.cleared)
}

func TestRAGAskReturnsAnswerWithCitations(t *testing.T) {
	r, _, _, rp, _ := newTestRouter()
	rp.answer = &rag.Answer{
		Text: "the answer",
		Citations: []rag.Citation{
			{Marker: "[1]", Final: 0.8, Hit: vectorindex.Hit{ID: "item-1", Properties: vectorindex.KnowledgeObject{Title: "Platform", Type: "Item"}}},
		},
	}

	body, _ := json.Marshal(map[string]string{"question": "why is deploy broken?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "the answer")
	assert.Contains(t, w.Body.String(), "Platform")
}

func TestRAGAskRejectsMissingQuestion(t *testing.T) {
	r, _, _, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ask", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdvisorInternalReturnsAnalysis(t *testing.T) {
	r, _, _, _, _ := newTestRouter()

	body, _ := json.Marshal(map[string]string{"taskDescription": "users can't log in"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/advisor/internal", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "internal analysis")
}

func TestAdvisorExternalMapsUnconfiguredToServiceUnavailable(t *testing.T) {
	r, _, _, _, adv := newTestRouter()
	adv.externalErr = websearch.ErrUnconfigured

	body, _ := json.Marshal(map[string]string{"taskDescription": "users can't log in"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/advisor/external", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
