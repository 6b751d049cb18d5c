// Package notify resolves signed document links, assembles recipient-specific
// email jobs and dispatches them concurrently. Every piece is best-effort
// except the final aggregate: the dispatcher errors only when no recipient
// could be reached at all.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranafin/dsa-onboarding/internal/artifact"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

// Job is one recipient-specific notification. Jobs are dispatched
// independently; one outcome never affects another.
type Job struct {
	Recipient   string
	Subject     string
	HTML        string
	Attachments []artifact.Artifact
}

// Result aggregates dispatch outcomes.
type Result struct {
	Sent   int
	Failed int
}

// SignedLinkTTL is the default link lifetime. Fixed at submission time and
// never renewed; links already sitting in reviewer inboxes assume it.
const SignedLinkTTL = 604800 * time.Second // 7 days

// LinkSigner resolves a time-bound URL for a stored object. Satisfied by
// storage.ObjectStore.
type LinkSigner interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Dispatcher owns link signing, job assembly and concurrent send.
type Dispatcher struct {
	signer      LinkSigner
	mailer      Mailer
	from        string
	reviewer    string
	linkTTL     time.Duration
	signTimeout time.Duration
	logger      *slog.Logger
}

// NewDispatcher wires a Dispatcher. A non-positive linkTTL falls back to
// SignedLinkTTL.
func NewDispatcher(signer LinkSigner, mailer Mailer, from, reviewerInbox string, linkTTL, signTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if linkTTL <= 0 {
		linkTTL = SignedLinkTTL
	}
	return &Dispatcher{
		signer:      signer,
		mailer:      mailer,
		from:        from,
		reviewer:    reviewerInbox,
		linkTTL:     linkTTL,
		signTimeout: signTimeout,
		logger:      logger,
	}
}

// SignLink resolves one signed URL. A failure is swallowed: the link is
// logged and omitted from the email body, never aborting the batch.
func (d *Dispatcher) SignLink(ctx context.Context, asset submission.DocumentAsset) *SignedLink {
	signCtx := ctx
	if d.signTimeout > 0 {
		var cancel context.CancelFunc
		signCtx, cancel = context.WithTimeout(ctx, d.signTimeout)
		defer cancel()
	}

	url, err := d.signer.SignedURL(signCtx, asset.ObjectPath, d.linkTTL)
	if err != nil {
		d.logger.Warn("dispatch.sign.error", "object_path", asset.ObjectPath, "error", err)
		return nil
	}
	return &SignedLink{
		ObjectPath: asset.ObjectPath,
		FieldName:  string(asset.FieldName),
		URL:        url,
		ExpiresAt:  time.Now().Add(d.linkTTL).Unix(),
	}
}

// SignLinks resolves signed URLs for every asset concurrently, preserving
// asset order and dropping failures.
func (d *Dispatcher) SignLinks(ctx context.Context, assets []submission.DocumentAsset) []SignedLink {
	slots := make([]*SignedLink, len(assets))

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset submission.DocumentAsset) {
			defer wg.Done()
			slots[i] = d.SignLink(ctx, asset)
		}(i, asset)
	}
	wg.Wait()

	links := make([]SignedLink, 0, len(assets))
	for _, l := range slots {
		if l != nil {
			links = append(links, *l)
		}
	}
	d.logger.Info("dispatch.sign_links.done",
		"submission_id", common.SubmissionIDFromContext(ctx),
		"requested", len(assets),
		"resolved", len(links),
	)
	return links
}

// BuildJobs assembles the recipient set for one submission: always the
// internal reviewer; the applicant only when an email address was supplied.
// Artifacts may be nil (dropped or failed); jobs carry whatever exists.
func (d *Dispatcher) BuildJobs(sub *submission.Submission, workbook, archive *artifact.Artifact, links []SignedLink) ([]Job, error) {
	var attachments []artifact.Artifact
	if workbook != nil {
		attachments = append(attachments, *workbook)
	}
	if archive != nil {
		attachments = append(attachments, *archive)
	}

	data := templateData{
		EntityName:     sub.EntityName(),
		PartnerType:    string(sub.PartnerType),
		FullName:       sub.FullName,
		Mobile:         sub.Mobile,
		Email:          sub.Email,
		HasAttachments: len(attachments) > 0,
		HasArchive:     archive != nil,
		Links:          links,
	}

	reviewerHTML, err := renderReviewerHTML(data)
	if err != nil {
		return nil, err
	}
	jobs := []Job{{
		Recipient:   d.reviewer,
		Subject:     fmt.Sprintf("New DSA onboarding: %s (%s)", sub.EntityName(), sub.PartnerType),
		HTML:        reviewerHTML,
		Attachments: attachments,
	}}

	if sub.Email != "" {
		applicantHTML, err := renderApplicantHTML(data)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{
			Recipient: sub.Email,
			Subject:   "Your onboarding application has been received",
			HTML:      applicantHTML,
		})
	}
	return jobs, nil
}

// Dispatch sends every job concurrently and waits for all outcomes. One
// job's failure never cancels another. The aggregate errors only when every
// send failed; reaching at least one recipient counts as success.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Job) (Result, error) {
	start := time.Now()
	outcomes := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			outcomes[i] = d.send(ctx, job)
		}(i, job)
	}
	wg.Wait()

	var res Result
	for i, err := range outcomes {
		if err != nil {
			res.Failed++
			d.logger.Error("dispatch.send.error", "recipient", jobs[i].Recipient, "error", err)
		} else {
			res.Sent++
			d.logger.Info("dispatch.send.ok", "recipient", jobs[i].Recipient)
		}
	}

	d.logger.Info("dispatch.done",
		"submission_id", common.SubmissionIDFromContext(ctx),
		"jobs", len(jobs),
		"sent", res.Sent,
		"failed", res.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if res.Sent == 0 && res.Failed > 0 {
		return res, common.NewAppError("DISPATCH_ERROR",
			fmt.Sprintf("all %d notifications failed", res.Failed), common.ErrDispatch)
	}
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, job Job) error {
	msg := Message{
		From:    d.from,
		To:      []string{job.Recipient},
		Subject: job.Subject,
		HTML:    job.HTML,
	}
	for _, att := range job.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename: att.Filename,
			Content:  artifact.EncodeChunked(att.Data),
			Type:     att.ContentType,
		})
	}
	return d.mailer.Send(ctx, msg)
}
