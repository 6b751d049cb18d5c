package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/artifact"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

type fakeSigner struct {
	mu       sync.Mutex
	failKeys map[string]bool
	ttls     []time.Duration
}

func (f *fakeSigner) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	f.ttls = append(f.ttls, ttl)
	f.mu.Unlock()
	if f.failKeys[key] {
		return "", errors.New("sign refused")
	}
	return "https://signed.example/" + key, nil
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Message
	failFor  map[string]bool // recipient -> fail
}

func (f *fakeMailer) Send(_ context.Context, msg Message) error {
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

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(signer *fakeSigner, mailer *fakeMailer) *Dispatcher {
	return NewDispatcher(signer, mailer, "onboarding@kiranafin.in", "review@kiranafin.in", 0, 0, discard())
}

func testSubmission(email string) *submission.Submission {
	return &submission.Submission{
		PartnerType: constants.Individual,
		FullName:    "Ravi Kumar",
		Mobile:      "9876543210",
		Email:       email,
		Documents: map[schema.DocumentField]submission.DocumentAsset{
			schema.DocPANCard: {
				FieldName:  schema.DocPANCard,
				ObjectPath: "personal/01_panCard_pan.jpg",
				Category:   constants.CategoryPersonal,
			},
		},
	}
}

func TestSignLinks_FailureOmittedNotFatal(t *testing.T) {
	signer := &fakeSigner{failKeys: map[string]bool{"personal/b.pdf": true}}
	d := newDispatcher(signer, &fakeMailer{})

	assets := []submission.DocumentAsset{
		{FieldName: "panCard", ObjectPath: "personal/a.pdf"},
		{FieldName: "aadharCard", ObjectPath: "personal/b.pdf"},
		{FieldName: "cancelledCheque", ObjectPath: "banking/c.pdf"},
	}
	links := d.SignLinks(context.Background(), assets)

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	// Order preserved for the survivors.
	if links[0].FieldName != "panCard" || links[1].FieldName != "cancelledCheque" {
		t.Errorf("links out of order: %+v", links)
	}
	for _, l := range links {
		if !strings.HasPrefix(l.URL, "https://signed.example/") {
			t.Errorf("unexpected URL %q", l.URL)
		}
		if l.ExpiresAt <= time.Now().Unix() {
			t.Errorf("link expiry %d not in the future", l.ExpiresAt)
		}
	}
}

func TestBuildJobs_ReviewerOnlyWithoutApplicantEmail(t *testing.T) {
	d := newDispatcher(&fakeSigner{}, &fakeMailer{})
	jobs, err := d.BuildJobs(testSubmission(""), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Recipient != "review@kiranafin.in" {
		t.Errorf("recipient = %q", jobs[0].Recipient)
	}
}

func TestBuildJobs_ApplicantJobWhenEmailSupplied(t *testing.T) {
	d := newDispatcher(&fakeSigner{}, &fakeMailer{})
	wb := &artifact.Artifact{Filename: "onboarding.xlsx", ContentType: "application/x", Data: []byte("wb")}

	jobs, err := d.BuildJobs(testSubmission("ravi@example.com"), wb, nil, []SignedLink{
		{FieldName: "panCard", URL: "https://signed.example/x", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if len(jobs[0].Attachments) != 1 {
		t.Errorf("reviewer job has %d attachments, want 1", len(jobs[0].Attachments))
	}
	if len(jobs[1].Attachments) != 0 {
		t.Errorf("applicant job has %d attachments, want 0", len(jobs[1].Attachments))
	}
	if !strings.Contains(jobs[0].HTML, "https://signed.example/x") {
		t.Error("reviewer body missing signed link")
	}
}

func TestBuildJobs_NoArtifactsFallsBackToLinks(t *testing.T) {
	d := newDispatcher(&fakeSigner{}, &fakeMailer{})
	jobs, err := d.BuildJobs(testSubmission(""), nil, nil, []SignedLink{
		{FieldName: "panCard", URL: "https://signed.example/x", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(jobs[0].HTML, "could not be generated") {
		t.Error("reviewer body should flag missing attachments")
	}
}

func TestDispatch_PartialFailureIsSuccess(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{"ravi@example.com": true}}
	d := newDispatcher(&fakeSigner{}, mailer)

	jobs := []Job{
		{Recipient: "review@kiranafin.in", Subject: "a", HTML: "<p>a</p>"},
		{Recipient: "ravi@example.com", Subject: "b", HTML: "<p>b</p>"},
	}
	res, err := d.Dispatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Sent != 1 || res.Failed != 1 {
		t.Errorf("Result = %+v, want {Sent:1 Failed:1}", res)
	}
}

func TestDispatch_AllFailedIsError(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{
		"review@kiranafin.in": true,
		"ravi@example.com":    true,
	}}
	d := newDispatcher(&fakeSigner{}, mailer)

	jobs := []Job{
		{Recipient: "review@kiranafin.in"},
		{Recipient: "ravi@example.com"},
	}
	res, err := d.Dispatch(context.Background(), jobs)
	if err == nil {
		t.Fatal("Dispatch with zero sends should error")
	}
	if res.Sent != 0 || res.Failed != 2 {
		t.Errorf("Result = %+v, want {Sent:0 Failed:2}", res)
	}
}

func TestDispatch_AttachmentsBase64Encoded(t *testing.T) {
	mailer := &fakeMailer{}
	d := newDispatcher(&fakeSigner{}, mailer)

	jobs := []Job{{
		Recipient: "review@kiranafin.in",
		Subject:   "with attachment",
		HTML:      "<p>x</p>",
		Attachments: []artifact.Artifact{
			{Filename: "docs.zip", ContentType: "application/zip", Data: []byte{0x50, 0x4b, 0x03, 0x04}},
		},
	}}
	if _, err := d.Dispatch(context.Background(), jobs); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	att := mailer.sent[0].Attachments
	if len(att) != 1 {
		t.Fatalf("message has %d attachments, want 1", len(att))
	}
	if att[0].Content != "UEsDBA==" {
		t.Errorf("attachment content = %q, want base64 of zip magic", att[0].Content)
	}
}

func TestSignLinks_TTLPlumbing(t *testing.T) {
	assets := []submission.DocumentAsset{{FieldName: "panCard", ObjectPath: "personal/a.pdf"}}

	signer := &fakeSigner{}
	newDispatcher(signer, &fakeMailer{}).SignLinks(context.Background(), assets)
	if got := signer.ttls[0]; got != SignedLinkTTL {
		t.Errorf("default ttl = %v, want %v", got, SignedLinkTTL)
	}

	custom := &fakeSigner{}
	d := NewDispatcher(custom, &fakeMailer{}, "onboarding@kiranafin.in", "review@kiranafin.in", 24*time.Hour, 0, discard())
	d.SignLinks(context.Background(), assets)
	if got := custom.ttls[0]; got != 24*time.Hour {
		t.Errorf("configured ttl = %v, want 24h", got)
	}
}

func TestDispatch_LogsCarrySubmissionID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d := NewDispatcher(&fakeSigner{}, &fakeMailer{}, "onboarding@kiranafin.in", "review@kiranafin.in", 0, 0, logger)

	ctx := common.WithSubmissionID(context.Background(), "sub-42")
	d.SignLinks(ctx, []submission.DocumentAsset{{FieldName: "panCard", ObjectPath: "personal/a.pdf"}})
	if _, err := d.Dispatch(ctx, []Job{{Recipient: "review@kiranafin.in"}}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "dispatch.sign_links.done") || !strings.Contains(out, "dispatch.done") {
		t.Fatalf("expected batch log events, got:\n%s", out)
	}
	if strings.Count(out, "submission_id=sub-42") < 2 {
		t.Errorf("batch events missing submission_id, got:\n%s", out)
	}
}
