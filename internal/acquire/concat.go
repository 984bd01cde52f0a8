package acquire

import (
	"strings"
)

// ConcatListName is the file name of the concat list inside the download directory.
const ConcatListName = "segments.txt"

// ConcatPlan is the ordered list of local segment paths handed to the muxer.
type ConcatPlan []string

// BuildConcatList renders plan in the ffmpeg concat demuxer format: one
// "file '<path>'" line per entry, joined by newlines.
func BuildConcatList(plan ConcatPlan) string {
	var b strings.Builder
	for i, path := range plan {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("file '")
		b.WriteString(escapeQuotes(path))
		b.WriteString("'")
	}
	return b.String()
}

// escapeQuotes closes the quoted string around each single quote, emits an
// escaped quote and reopens it, which is how the concat demuxer reads them.
func escapeQuotes(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
