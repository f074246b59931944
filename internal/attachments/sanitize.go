package attachments

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var separatorRuns = regexp.MustCompile(`[._-]{2,}`)
var underscoreRuns = regexp.MustCompile(`_{2,}`)

// SanitizeFileName reduces an arbitrary source filename to a filesystem-safe
// base name: the path is stripped, only alphanumerics, '_' and '-' are kept
// in the stem, runs of separators collapse to one '_', and the extension is
// normalized to lowercase.
func SanitizeFileName(name string) string {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range stem {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := underscoreRuns.ReplaceAllString(b.String(), "_")
	out = strings.Trim(out, "_")
	if out == "" {
		out = "file"
	}
	return out + ext
}

// FolderKeyFromReference derives a directory name from an invoice
// reference. Path separators become '_', only alphanumerics, '_', '-' and
// '.' are kept, leading and trailing dots are stripped, and runs of
// separators collapse to one '_'. An empty result means the caller must
// fall back to a request-ID-derived key.
func FolderKeyFromReference(reference string) string {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range reference {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	out = separatorRuns.ReplaceAllString(out, "_")
	return strings.Trim(out, "_")
}
