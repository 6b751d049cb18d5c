package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
)

var nonAlnumRuns = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeFilename lowercases a client-supplied filename and collapses
// whitespace and non-alphanumeric runs to single underscores. The extension
// is dropped; callers re-attach a normalized one.
func SanitizeFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = nonAlnumRuns.ReplaceAllString(strings.ToLower(base), "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "document"
	}
	return base
}

// BuildObjectKey constructs the storage key for one evidence document:
// <category>/<ulid>_<field>_<sanitizedName>.<ext>. The ULID carries a
// millisecond timestamp plus entropy, so two uploads of the same file under
// the same field never collide.
func BuildObjectKey(field schema.DocumentField, originalName string) string {
	return buildObjectKey(schema.CategoryOf(field), field, originalName, ulid.Make())
}

func buildObjectKey(cat constants.DocumentCategory, field schema.DocumentField, originalName string, id ulid.ULID) string {
	ext := constants.NormalizeExt(filepath.Ext(originalName))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s_%s_%s.%s", cat, id.String(), field, SanitizeFilename(originalName), ext)
}

// CategoryFromKey recovers the document category from a storage key prefix.
func CategoryFromKey(key string) (constants.DocumentCategory, bool) {
	prefix, _, found := strings.Cut(key, "/")
	if !found {
		return "", false
	}
	for _, cat := range constants.AllCategories() {
		if prefix == string(cat) {
			return cat, true
		}
	}
	return "", false
}
