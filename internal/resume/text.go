package resume

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var spaceRun = regexp.MustCompile(`[ \t\f\v]+`)

// ExtractText returns the plain text of a PDF document
func ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	// the pdf reader panics on some malformed documents
	defer func() {
		if rec := recover(); rec != nil {
			err = &ParseError{Message: "malformed PDF", Cause: fmt.Errorf("%v", rec)}
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", &ParseError{Message: "failed to open PDF", Cause: err}
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", &ParseError{Message: "failed to read PDF text", Cause: err}
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", &ParseError{Message: "failed to read PDF text", Cause: err}
	}
	return CleanText(string(raw)), nil
}

// CleanText normalizes line endings, collapses runs of spaces and drops
// more than one consecutive blank line
func CleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// truncateRunes keeps the first n runes of s
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
