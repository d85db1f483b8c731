package gitlogs

import (
	"fmt"
	"os"
	"strings"
)

// Aggregate joins the extracts into the context document, keeping input order.
func Aggregate(extracts []*RepositoryExtract) string {
	texts := make([]string, 0, len(extracts))
	for _, ex := range extracts {
		if ex != nil {
			texts = append(texts, ex.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// WriteContextFile stores the context document in a scratch file. The returned
// cleanup removes it and is safe to call more than once.
func WriteContextFile(content string) (string, func(), error) {
	f, err := os.CreateTemp("", "devreport-context-*.txt")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create context file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write context file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to close context file %s: %w", path, err)
	}
	return path, cleanup, nil
}
