//go:build integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/config"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/infra/db/postgres"
	"ai-article-queue/internal/usecase"
)

type fixedIntervalSchedule struct{ next time.Time }

func (s fixedIntervalSchedule) NextRun() (time.Time, bool) { return s.next, !s.next.IsZero() }

type noAnswerUC struct{}

func (noAnswerUC) Answer(context.Context, string, float64, func(record any) error) error {
	return nil
}
func (noAnswerUC) RebuildIndex(context.Context) (int, error) { return 0, nil }

func newIntegrationServer(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	jobRepo := postgres.NewJobRepo(testPool)
	queue := usecase.NewQueueUseCase(jobRepo, fixedIntervalSchedule{}, 10, 2, logger)

	cfg := &config.Config{}
	cfg.Admin.Password = "hunter2"
	cfg.Admin.JWTSecret = "integration-secret"
	cfg.Admin.SessionTTL = 30 * time.Minute
	cfg.Answer.SimilarityThreshold = 0.7

	auth := NewAuthManager(cfg.Admin.JWTSecret, false, cfg.Admin.SessionTTL)
	return NewServer(queue, noAnswerUC{}, auth, cfg, nil, logger).Router()
}

func postJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestQueueLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	defer cleanup(t)
	router := newIntegrationServer(t)

	// Enqueue.
	rec := postJSON(t, router, http.MethodPost, "/queue-article-generation", map[string]string{
		"user_query": "write about bees",
		"model":      "gemini-1.5-flash",
		"name":       "nature",
		"owner_id":   "owner-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("enqueue: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var receipt usecase.EnqueueReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.RequestID == "" || receipt.Status != "QUEUED" {
		t.Fatalf("receipt = %+v", receipt)
	}
	// One pending job, ten minute interval: estimate covers job plus wait.
	if receipt.EstimatedMinutes <= 0 {
		t.Fatalf("estimate = %v, want positive", receipt.EstimatedMinutes)
	}

	// Status round-trip through the real store.
	rec = postJSON(t, router, http.MethodGet, "/get-request-status/"+receipt.RequestID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d, body %s", rec.Code, rec.Body.String())
	}
	var view model.JobView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != "NOT PROCESSED" || view.UserQuery != "write about bees" {
		t.Fatalf("view = %+v", view)
	}

	// Update while pending.
	rec = postJSON(t, router, http.MethodPut, "/update-request-status/"+receipt.RequestID, map[string]string{
		"model": "gemini-1.5-pro",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "updated successfully") {
		t.Fatalf("update body = %s", rec.Body.String())
	}

	// Owner listing sees it.
	rec = postJSON(t, router, http.MethodGet, "/get-requests/owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var views []*model.JobView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 1 || views[0].Model != "gemini-1.5-pro" {
		t.Fatalf("views = %+v", views)
	}

	// Delete while pending.
	rec = postJSON(t, router, http.MethodDelete, "/delete-request/"+receipt.RequestID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d, body %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, router, http.MethodGet, "/get-request-status/"+receipt.RequestID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("after delete: %d, want 404", rec.Code)
	}
}

func TestRequeueFailedJob_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	defer cleanup(t)
	router := newIntegrationServer(t)
	ctx := context.Background()

	rec := postJSON(t, router, http.MethodPost, "/queue-article-generation", map[string]string{
		"user_query": "write about rivers",
		"owner_id":   "owner-2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("enqueue: %d, body %s", rec.Code, rec.Body.String())
	}
	var receipt usecase.EnqueueReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}

	// Fail the job directly so requeue has something to recover.
	failed := &model.JobResult{Message: "boom", ErrorDetails: strPtr("model unavailable")}
	encoded, _ := json.Marshal(failed)
	if _, err := testPool.Exec(ctx,
		`UPDATE generation_jobs SET status=$1, result=$2 WHERE request_id=$3`,
		int(model.JobStatusFailed), encoded, receipt.RequestID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	// Delete is now refused and names the current state.
	rec = postJSON(t, router, http.MethodDelete, "/delete-request/"+receipt.RequestID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete failed job: %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "FAILED") {
		t.Fatalf("delete body = %s", rec.Body.String())
	}

	rec = postJSON(t, router, http.MethodPost, "/requeue-request/"+receipt.RequestID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("requeue: %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, router, http.MethodGet, "/get-request-status/"+receipt.RequestID, nil)
	var view model.JobView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != "NOT PROCESSED" {
		t.Fatalf("status after requeue = %q", view.Status)
	}
	if view.Result != nil {
		t.Fatalf("result after requeue = %v, want cleared", view.Result)
	}
}

func TestAdminAuth_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	defer cleanup(t)
	router := newIntegrationServer(t)

	rec := postJSON(t, router, http.MethodPost, "/admin/login", map[string]string{"password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login body = %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/rebuild-index", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", login.Token))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("rebuild: %d, body %s", rec2.Code, rec2.Body.String())
	}
}

func strPtr(s string) *string { return &s }
