// Package upload validates evidence documents and persists them to object
// storage, concurrently and without cross-cancellation: one file's failure
// never invalidates its siblings.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
	"github.com/kiranafin/dsa-onboarding/internal/storage"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

// File is one client-supplied document pending persistence.
type File struct {
	Field    schema.DocumentField
	Name     string
	MIMEType string
	Data     []byte
}

// Outcome is the per-file persistence result. Exactly one of Asset/Err is set.
type Outcome struct {
	Asset *submission.DocumentAsset
	Err   error
}

// Orchestrator coordinates validation and concurrent persistence.
type Orchestrator struct {
	store         storage.ObjectStore
	limiter       *Limiter
	uploadTimeout time.Duration
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator bound to store.
func NewOrchestrator(store storage.ObjectStore, maxConcurrent int, uploadTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:         store,
		limiter:       NewLimiter(maxConcurrent),
		uploadTimeout: uploadTimeout,
		logger:        logger,
	}
}

// ValidateFile checks size and content type. The rejection names the violated
// constraint so the caller can render a precise message.
func ValidateFile(name, mimeType string, size int64) error {
	if size > constants.MaxUploadBytes {
		return common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("%s exceeds the %d byte limit (%d bytes)", name, constants.MaxUploadBytes, size),
			common.ErrValidation)
	}
	if !constants.IsAllowedMIME(mimeType) {
		return common.NewAppError("FILE_TYPE_NOT_ALLOWED",
			fmt.Sprintf("%s has unsupported type %q; allowed: jpeg, png, pdf", name, mimeType),
			common.ErrValidation)
	}
	if ext := filepath.Ext(name); ext != "" && !constants.IsAllowedExt(ext) {
		return common.NewAppError("FILE_TYPE_NOT_ALLOWED",
			fmt.Sprintf("%s has unsupported extension %q", name, ext),
			common.ErrValidation)
	}
	return nil
}

// Persist validates and stores a single file. The object key embeds a fresh
// ULID, so persisting the same content twice yields two distinct paths.
func (o *Orchestrator) Persist(ctx context.Context, f File) (*submission.DocumentAsset, error) {
	if err := ValidateFile(f.Name, f.MIMEType, int64(len(f.Data))); err != nil {
		return nil, err
	}

	key := storage.BuildObjectKey(f.Field, f.Name)

	uploadCtx := ctx
	if o.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, o.uploadTimeout)
		defer cancel()
	}

	path, err := o.store.Upload(uploadCtx, key, f.Data, f.MIMEType)
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("persist %s", f.Field))
	}

	return &submission.DocumentAsset{
		FieldName:  f.Field,
		ObjectPath: path,
		Category:   schema.CategoryOf(f.Field),
		SizeBytes:  int64(len(f.Data)),
		MIMEType:   f.MIMEType,
	}, nil
}

// PersistAll stores every file concurrently and waits for all outcomes.
// The returned map always has one entry per input field; callers decide
// whether a failed slot blocks the submission.
func (o *Orchestrator) PersistAll(ctx context.Context, files []File) map[schema.DocumentField]Outcome {
	start := time.Now()
	results := make(map[schema.DocumentField]Outcome, len(files))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f File) {
			defer wg.Done()

			if err := o.limiter.Acquire(ctx); err != nil {
				mu.Lock()
				results[f.Field] = Outcome{Err: err}
				mu.Unlock()
				return
			}
			defer o.limiter.Release()

			asset, err := o.Persist(ctx, f)
			mu.Lock()
			results[f.Field] = Outcome{Asset: asset, Err: err}
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for field, out := range results {
		if out.Err != nil {
			failed++
			o.logger.Error("upload.persist.error", "field", field, "error", out.Err)
		} else {
			succeeded++
		}
	}
	o.logger.Info("upload.persist_all.done",
		"files", len(files),
		"succeeded", succeeded,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results
}
