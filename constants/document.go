package constants

import "strings"

// DocumentCategory buckets evidence documents for storage prefixes and
// archive folders.
type DocumentCategory string

const (
	CategoryPersonal   DocumentCategory = "personal"
	CategoryBusiness   DocumentCategory = "business"
	CategoryBanking    DocumentCategory = "banking"
	CategoryAdditional DocumentCategory = "additional"
)

var allCategories = []DocumentCategory{
	CategoryPersonal,
	CategoryBusiness,
	CategoryBanking,
	CategoryAdditional,
}

func AllCategories() []DocumentCategory {
	out := make([]DocumentCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

// ArchiveFolders maps each category onto its fixed folder name inside the
// generated document archive. The folder set never changes; downstream
// reviewers key their checklists off these exact names.
var ArchiveFolders = map[DocumentCategory]string{
	CategoryPersonal:   "Personal_Documents",
	CategoryBusiness:   "Business_Documents",
	CategoryBanking:    "Banking_Documents",
	CategoryAdditional: "Additional_Documents",
}

// MaxUploadBytes caps a single evidence document at 2 MiB. Part of the wire
// contract; existing clients pre-check against this exact value.
const MaxUploadBytes = 2 * 1024 * 1024

// AllowedMIMETypes holds the accepted content types for evidence uploads.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
}

// AllowedExtensions holds the accepted file extensions for evidence uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

func IsAllowedMIME(mime string) bool {
	_, ok := AllowedMIMETypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
