package staging

import (
	"regexp"
	"strings"
)

var attachmentMarker = regexp.MustCompile(`\[User attached files: ([^\]]+)\]`)

// ParseAttachments extracts attached file paths from a user message
// and returns the paths along with the message stripped of the
// attachment marker. Paths are comma-separated inside the marker.
func ParseAttachments(message string) ([]string, string) {
	match := attachmentMarker.FindStringSubmatch(message)
	if match == nil {
		return nil, message
	}

	var paths []string
	for _, raw := range strings.Split(match[1], ",") {
		if path := strings.TrimSpace(raw); path != "" {
			paths = append(paths, path)
		}
	}

	cleaned := strings.TrimSpace(attachmentMarker.ReplaceAllString(message, ""))
	return paths, cleaned
}
