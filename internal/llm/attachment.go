package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/caldew/workdesk/internal/domain"
)

// AttachmentNote renders the text description appended to a user turn for
// a non-image attachment; no binary content is sent for non-images.
func AttachmentNote(a domain.Attachment) string {
	return fmt.Sprintf("\n\nFile attachment: %s (%s, %s)", a.Name, a.Mime, FormatFileSize(a.Size))
}

// FormatFileSize renders a byte count in a human-readable unit.
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + units[i]
}
