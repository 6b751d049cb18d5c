package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/notify"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
	"github.com/kiranafin/dsa-onboarding/internal/upload"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return key, nil
}

func (m *memStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("not found: " + key)
	}
	return data, nil
}

func (m *memStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	inserts int
	fail    bool
}

func (f *fakeRepo) Insert(_ context.Context, rec *submission.Record) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return uuid.Nil, common.NewAppError("DB_ERROR", "insert refused", common.ErrDatabase)
	}
	f.inserts++
	return uuid.New(), nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []notify.Message
	failFor map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, to := range msg.To {
		if f.failFor[to] {
			return errors.New("mailbox unavailable")
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	server *Server
	store  *memStore
	repo   *fakeRepo
	mailer *fakeMailer
}

func newFixture() *fixture {
	return newFixtureLogging(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newFixtureLogging(logger *slog.Logger) *fixture {
	store := newMemStore()
	repo := &fakeRepo{}
	mailer := &fakeMailer{failFor: make(map[string]bool)}

	cfg := &common.Config{}
	orchestrator := upload.NewOrchestrator(store, 4, 0, logger)
	dispatcher := notify.NewDispatcher(store, mailer, "onboarding@kiranafin.in", "review@kiranafin.in", 0, 0, logger)

	return &fixture{
		server: NewServer(cfg, store, orchestrator, repo, dispatcher, nil, logger),
		store:  store,
		repo:   repo,
		mailer: mailer,
	}
}

// individualBody returns a valid individual submission with all required
// documents pointing at seeded objects.
func (fx *fixture) individualBody(t *testing.T, email string) []byte {
	t.Helper()
	docs := map[string]map[string]any{}
	for _, slot := range []struct{ field, cat string }{
		{"panCard", "personal"},
		{"aadharCard", "personal"},
		{"cancelledCheque", "banking"},
	} {
		key := fmt.Sprintf("%s/01HTEST_%s_doc.pdf", slot.cat, slot.field)
		fx.store.objects[key] = []byte(slot.field + " bytes")
		docs[slot.field] = map[string]any{
			"fieldName":  slot.field,
			"objectPath": key,
			"category":   slot.cat,
			"sizeBytes":  10,
			"mimeType":   "application/pdf",
		}
	}
	body := map[string]any{
		"partnerType":       "individual",
		"fullName":          "Ravi Kumar",
		"mobile":            "9876543210",
		"address":           "12 MG Road",
		"city":              "Pune",
		"state":             "Maharashtra",
		"pincode":           "411001",
		"panNumber":         "ABCDE1234F",
		"aadharNumber":      "123456789012",
		"accountHolderName": "Ravi Kumar",
		"accountNumber":     "123456789012",
		"ifscCode":          "SBIN0001234",
		"bankName":          "State Bank",
		"documents":         docs,
	}
	if email != "" {
		body["email"] = email
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func (fx *fixture) post(t *testing.T, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNotify_Preflight(t *testing.T) {
	fx := newFixture()
	req := httptest.NewRequest(http.MethodOptions, "/notify", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing permissive CORS header")
	}
}

func TestNotify_SuccessReviewerOnly(t *testing.T) {
	fx := newFixture()
	rec := fx.post(t, "/notify", fx.individualBody(t, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success      bool `json:"success"`
		EmailsSent   int  `json:"emailsSent"`
		EmailsFailed int  `json:"emailsFailed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.EmailsSent != 1 || resp.EmailsFailed != 0 {
		t.Errorf("resp = %+v, want success with 1 sent", resp)
	}
	if fx.repo.inserts != 1 {
		t.Errorf("repo inserts = %d, want 1", fx.repo.inserts)
	}
	if len(fx.mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(fx.mailer.sent))
	}
	msg := fx.mailer.sent[0]
	if msg.To[0] != "review@kiranafin.in" {
		t.Errorf("recipient = %s", msg.To[0])
	}
	// Workbook and archive both attach on the happy path.
	if len(msg.Attachments) != 2 {
		t.Errorf("attachments = %d, want 2", len(msg.Attachments))
	}
	if !strings.Contains(msg.HTML, "https://signed.example/") {
		t.Error("reviewer body missing signed links")
	}
}

func TestNotify_ApplicantJobWhenEmailPresent(t *testing.T) {
	fx := newFixture()
	rec := fx.post(t, "/notify", fx.individualBody(t, "ravi@example.com"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(fx.mailer.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(fx.mailer.sent))
	}
}

func TestNotify_MissingRequiredDocumentRejectedBeforeInsert(t *testing.T) {
	fx := newFixture()
	body := fx.individualBody(t, "")
	var m map[string]any
	_ = json.Unmarshal(body, &m)
	docs := m["documents"].(map[string]any)
	delete(docs, "cancelledCheque")
	raw, _ := json.Marshal(m)

	rec := fx.post(t, "/notify", raw)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cancelledCheque") {
		t.Errorf("error should name the missing slot, got %s", rec.Body.String())
	}
	if fx.repo.inserts != 0 {
		t.Error("submission with missing required document reached the store")
	}
	if len(fx.mailer.sent) != 0 {
		t.Error("submission with missing required document triggered email")
	}
}

func TestNotify_InvalidIdentifierRejected(t *testing.T) {
	fx := newFixture()
	body := fx.individualBody(t, "")
	raw := bytes.Replace(body, []byte("ABCDE1234F"), []byte("abcde1234f"), 1)

	rec := fx.post(t, "/notify", raw)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestNotify_UnknownPartnerTypeRejected(t *testing.T) {
	fx := newFixture()
	rec := fx.post(t, "/notify", []byte(`{"partnerType":"franchise"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestNotify_InsertFailureStopsPipeline(t *testing.T) {
	fx := newFixture()
	fx.repo.fail = true

	rec := fx.post(t, "/notify", fx.individualBody(t, ""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(fx.mailer.sent) != 0 {
		t.Error("emails sent despite failed durable write")
	}
}

func TestNotify_AllSendsFailedIs500(t *testing.T) {
	fx := newFixture()
	fx.mailer.failFor["review@kiranafin.in"] = true
	fx.mailer.failFor["ravi@example.com"] = true

	rec := fx.post(t, "/notify", fx.individualBody(t, "ravi@example.com"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body %s", rec.Code, rec.Body.String())
	}
}

func TestNotify_PartialSendFailureIs200(t *testing.T) {
	fx := newFixture()
	fx.mailer.failFor["ravi@example.com"] = true

	rec := fx.post(t, "/notify", fx.individualBody(t, "ravi@example.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		EmailsSent   int `json:"emailsSent"`
		EmailsFailed int `json:"emailsFailed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.EmailsSent != 1 || resp.EmailsFailed != 1 {
		t.Errorf("resp = %+v, want 1 sent / 1 failed", resp)
	}
}

func multipartBody(t *testing.T, partnerType string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("partnerType", partnerType); err != nil {
		t.Fatal(err)
	}
	for field, data := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename="%s.pdf"`, field, field)}
		h["Content-Type"] = []string{"application/pdf"}
		pw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadDocuments_Success(t *testing.T) {
	fx := newFixture()
	body, contentType := multipartBody(t, "individual", map[string][]byte{
		"panCard":         []byte("pan"),
		"aadharCard":      []byte("aadhar"),
		"cancelledCheque": []byte("cheque"),
	})

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success   bool                       `json:"success"`
		Documents map[string]documentOutcome `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Documents) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	for field, out := range resp.Documents {
		if out.ObjectPath == "" {
			t.Errorf("%s missing object path: %+v", field, out)
		}
	}
	if len(fx.store.objects) != 3 {
		t.Errorf("store holds %d objects, want 3", len(fx.store.objects))
	}
}

func TestUploadDocuments_OversizedFileReported(t *testing.T) {
	fx := newFixture()
	body, contentType := multipartBody(t, "individual", map[string][]byte{
		"panCard": make([]byte, 2*1024*1024+1),
	})

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	// panCard is required for individual, so the request fails.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "FILE_TOO_LARGE") {
		t.Errorf("error should name the size constraint, got %s", rec.Body.String())
	}
}

func TestNotify_StageProgressionLogged(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixtureLogging(slog.New(slog.NewTextHandler(&buf, nil)))

	rec := fx.post(t, "/notify", fx.individualBody(t, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	out := buf.String()
	for _, stage := range []constants.SubmissionStage{
		constants.StageValidated,
		constants.StageRecordCommitted,
		constants.StageArtifactsBuilt,
		constants.StageDispatching,
		constants.StageCompleted,
	} {
		if !strings.Contains(out, "stage="+string(stage)) {
			t.Errorf("pipeline logs missing stage %s:\n%s", stage, out)
		}
	}
}

func TestUploadDocuments_PersistedStageLogged(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixtureLogging(slog.New(slog.NewTextHandler(&buf, nil)))
	body, contentType := multipartBody(t, "individual", map[string][]byte{
		"panCard":         []byte("pan"),
		"aadharCard":      []byte("aadhar"),
		"cancelledCheque": []byte("cheque"),
	})

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(buf.String(), "stage="+string(constants.StageDocumentsPersisted)) {
		t.Errorf("upload logs missing persisted stage:\n%s", buf.String())
	}
}

func TestHealthz(t *testing.T) {
	fx := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
