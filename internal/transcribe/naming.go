package transcribe

import (
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	timestampLayout = "20060102-150405"
	maxURLBaseLen   = 50
)

var (
	schemePattern  = regexp.MustCompile(`https?://`)
	unsafeURLChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

	allowedExtensions = map[string]bool{
		"mp4": true, "mp3": true, "wav": true, "flac": true,
		"aac": true, "ogg": true, "webm": true, "m4a": true,
	}
)

// SecureFilename reduces a client-supplied file name to a flat ASCII
// name made of [A-Za-z0-9_.-]. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		if r == '/' || r == '\\' {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, name)
	return strings.Trim(name, "._")
}

// AllowedFile reports whether name ends in a supported media extension.
func AllowedFile(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[i+1:])]
}

// UploadName is the bucket file name for an upload whose raw name passed
// AllowedFile. The media extension survives even when securing strips
// the whole stem, as with non-Latin names.
func UploadName(raw string) string {
	secured := SecureFilename(raw)
	if AllowedFile(secured) {
		return secured
	}
	i := strings.LastIndex(raw, ".")
	if i < 0 {
		return secured
	}
	stem := SecureFilename(raw[:i])
	if stem == "" {
		stem = "untitled"
	}
	return stem + "." + strings.ToLower(raw[i+1:])
}

// FileBaseName strips the last extension from an already secured name.
func FileBaseName(secured string) string {
	if i := strings.LastIndex(secured, "."); i >= 0 {
		return secured[:i]
	}
	return secured
}

// URLBaseName turns a media URL into a short identifier fragment.
func URLBaseName(rawURL string) string {
	s := schemePattern.ReplaceAllString(rawURL, "")
	s = unsafeURLChars.ReplaceAllString(s, "_")
	if len(s) > maxURLBaseLen {
		s = s[:maxURLBaseLen]
	}
	return s
}

// JobID joins a base name and the submission time. Two submissions with
// the same base in the same second get the same ID.
func JobID(base string, at time.Time) string {
	if base == "" {
		base = "untitled"
	}
	return base + "_" + at.Format(timestampLayout)
}

// ObjectName is where an uploaded input lands in the bucket.
func ObjectName(jobID, securedFilename string) string {
	return path.Join(jobID, securedFilename)
}
