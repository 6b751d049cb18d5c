package artifact

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/storage"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

// MaxArchiveBytes is the attachment ceiling for the generated archive.
// Archives above it are dropped from the email (signed links remain the
// access path); the notification itself always proceeds.
const MaxArchiveBytes = 20_000_000

// BuildArchive re-fetches every stored document and zips it into its fixed
// category folder. Individual download failures skip that entry and keep
// going. Returns (nil, nil) when the result exceeds MaxArchiveBytes; an
// omitted artifact is a normal outcome, not an error.
func BuildArchive(ctx context.Context, store storage.ObjectStore, sub *submission.Submission, logger *slog.Logger) (*Artifact, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	assets := sub.Assets()
	if len(assets) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entries, skipped := 0, 0
	for _, asset := range assets {
		data, err := store.Download(ctx, asset.ObjectPath)
		if err != nil {
			skipped++
			logger.Warn("artifact.archive.skip_entry", "object_path", asset.ObjectPath, "error", err)
			continue
		}

		folder, ok := constants.ArchiveFolders[asset.Category]
		if !ok {
			folder = constants.ArchiveFolders[constants.CategoryAdditional]
		}
		w, err := zw.Create(path.Join(folder, path.Base(asset.ObjectPath)))
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", asset.ObjectPath, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", asset.ObjectPath, err)
		}
		entries++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	if entries == 0 {
		logger.Warn("artifact.archive.empty", "skipped", skipped)
		return nil, nil
	}

	if buf.Len() > MaxArchiveBytes {
		logger.Warn("artifact.archive.too_large",
			"bytes", buf.Len(),
			"limit", MaxArchiveBytes,
			"entries", entries,
		)
		return nil, nil
	}

	logger.Info("artifact.archive.ok",
		"entries", entries,
		"skipped", skipped,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Artifact{
		Filename:    fmt.Sprintf("documents_%s.zip", storageSafe(sub.EntityName())),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}
