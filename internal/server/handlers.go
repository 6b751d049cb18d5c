package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/artifact"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
	"github.com/kiranafin/dsa-onboarding/internal/upload"
)

// maxNotifyBody caps the JSON submission payload. Documents travel through
// /documents, so the notify body stays small.
const maxNotifyBody = 1 << 20 // 1 MiB

// maxDocumentsBody bounds one multipart upload request: all slots at the
// per-file cap plus form overhead.
const maxDocumentsBody = 40 << 20

// handleNotify runs the full pipeline for one submission:
// decode/validate -> required-document check -> durable insert ->
// best-effort artifacts -> signed links -> concurrent dispatch.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	start := time.Now()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(raw) > maxNotifyBody {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	sub, err := submission.Decode(raw)
	if err != nil {
		s.logger.Warn("notify.validation_failed", "req_id", reqID, "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if missing := submission.CheckRequiredDocuments(sub); len(missing) > 0 {
		s.logger.Warn("notify.missing_documents", "req_id", reqID, "partner_type", sub.PartnerType, "missing", missing)
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("missing required documents: %s", joinDocFields(missing)))
		return
	}
	s.logger.Info("notify.validated", "req_id", reqID, "partner_type", sub.PartnerType, "stage", constants.StageValidated)

	// Durable write comes strictly before any artifact or notification work;
	// a crash past this point never loses the submission.
	id, err := s.repo.Insert(ctx, &submission.Record{
		PartnerType: sub.PartnerType,
		Payload:     sub,
	})
	if err != nil {
		s.logger.Error("notify.record_insert_failed", "req_id", reqID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save submission record")
		return
	}
	ctx = common.WithSubmissionID(ctx, id.String())
	s.logger.Info("notify.record_committed", "req_id", reqID, "submission_id", id, "stage", constants.StageRecordCommitted)

	// Best-effort artifacts. A nil artifact is omitted, never fatal.
	workbook, err := artifact.BuildWorkbook(sub, s.logger)
	if err != nil {
		s.logger.Error("notify.workbook_failed", "req_id", reqID, "submission_id", id, "error", err)
		workbook = nil
	}
	archive, err := artifact.BuildArchive(ctx, s.store, sub, s.logger)
	if err != nil {
		s.logger.Error("notify.archive_failed", "req_id", reqID, "submission_id", id, "error", err)
		archive = nil
	}

	s.logger.Info("notify.artifacts_built",
		"req_id", reqID,
		"submission_id", id,
		"workbook", workbook != nil,
		"archive", archive != nil,
		"stage", constants.StageArtifactsBuilt,
	)

	links := s.dispatcher.SignLinks(ctx, sub.Assets())

	jobs, err := s.dispatcher.BuildJobs(sub, workbook, archive, links)
	if err != nil {
		s.logger.Error("notify.job_assembly_failed", "req_id", reqID, "submission_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to assemble notifications")
		return
	}

	s.logger.Info("notify.dispatching", "req_id", reqID, "submission_id", id, "jobs", len(jobs), "stage", constants.StageDispatching)
	res, err := s.dispatcher.Dispatch(ctx, jobs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("notify.ok",
		"req_id", reqID,
		"submission_id", id,
		"partner_type", sub.PartnerType,
		"emails_sent", res.Sent,
		"emails_failed", res.Failed,
		"stage", constants.StageCompleted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"emailsSent":   res.Sent,
		"emailsFailed": res.Failed,
	})
}

// documentOutcome is the per-slot result of a multipart upload.
type documentOutcome struct {
	ObjectPath string `json:"objectPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleUploadDocuments persists every part of a multipart form concurrently
// and reports a complete per-field map. A failed required slot fails the
// request; failed optional slots are reported but do not.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(maxDocumentsBody); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	pt, ok := constants.CanonicalizePartnerType(r.FormValue("partnerType"))
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown partner type %q", r.FormValue("partnerType")))
		return
	}

	var files []upload.File
	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", field))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", field))
			return
		}
		files = append(files, upload.File{
			Field:    schema.DocumentField(field),
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no documents supplied")
		return
	}

	results := s.orchestrator.PersistAll(r.Context(), files)

	required := make(map[schema.DocumentField]bool)
	for _, f := range schema.RequiredDocuments(pt) {
		required[f] = true
	}

	outcomes := make(map[string]documentOutcome, len(results))
	requiredFailed := false
	for field, out := range results {
		if out.Err != nil {
			outcomes[string(field)] = documentOutcome{Error: out.Err.Error()}
			if required[field] {
				requiredFailed = true
			}
			continue
		}
		outcomes[string(field)] = documentOutcome{ObjectPath: out.Asset.ObjectPath}
	}

	status := http.StatusOK
	if requiredFailed {
		status = http.StatusBadRequest
		s.logger.Warn("documents.required_upload_failed", "req_id", reqID, "partner_type", pt)
	} else {
		s.logger.Info("documents.persisted", "req_id", reqID, "partner_type", pt, "files", len(files), "stage", constants.StageDocumentsPersisted)
	}
	respondJSON(w, status, map[string]any{
		"documents": outcomes,
		"success":   !requiredFailed,
	})
}

func joinDocFields(fields []schema.DocumentField) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += string(f)
	}
	return out
}
