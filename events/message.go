package events

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/acarl005/stripansi"

	"github.com/rp-tools/rp-relay/types"
)

// maxMessageLength caps a forwarded log message at 8 MiB, matching the
// backend's log entry limit.
const maxMessageLength = 8 << 20

// screenshotPattern matches an embedded image reference in a runner log
// message, e.g. `<img src="selenium-screenshot-1.png">`.
var screenshotPattern = regexp.MustCompile(`<img src="(?P<path>[_/.\-\w]*)"`)

// Formatter prepares runner log messages for forwarding: ANSI escape
// sequences are stripped, oversized messages truncated, and embedded
// screenshot references resolved into binary attachments.
type Formatter struct {
	// OutputDir resolves relative attachment paths. Empty means paths are
	// taken relative to the working directory.
	OutputDir string
}

// Format cleans msg and extracts an attachment if the message references
// one. When an attachment reference cannot be read the message is forwarded
// unmodified and the error returned so the caller can log it; message
// delivery itself never fails.
func (f *Formatter) Format(msg string) (string, *types.Attachment, error) {
	if m := screenshotPattern.FindStringSubmatch(msg); m != nil {
		att, err := f.loadAttachment(m[1])
		if err != nil {
			return truncateMessage(stripansi.Strip(msg)), nil, err
		}
		return fmt.Sprintf("Attachment %q", att.Name), att, nil
	}
	return truncateMessage(stripansi.Strip(msg)), nil, nil
}

func (f *Formatter) loadAttachment(path string) (*types.Attachment, error) {
	if !filepath.IsAbs(path) && f.OutputDir != "" {
		path = filepath.Join(f.OutputDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &types.Attachment{
		Name: filepath.Base(path),
		MIME: mimeType,
		Data: data,
	}, nil
}

func truncateMessage(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	// Back off to a rune boundary so the cut never produces invalid UTF-8.
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + ".."
}
