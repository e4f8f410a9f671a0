// internal/output/resume.go
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/FBScrapexter/internal/utils"
)

// ResumeFile stores the URL of the listing page being read, so an
// interrupted run can start from it.
type ResumeFile struct {
	path string
}

// NewResumeFile creates a resume file at path
func NewResumeFile(path string) *ResumeFile {
	return &ResumeFile{path: path}
}

// Load returns the stored URL, or "" when nothing was stored.
func (r *ResumeFile) Load() (string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read resume file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored URL.
func (r *ResumeFile) Save(url string) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create resume directory: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(url+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write resume file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to write resume file: %w", err)
	}
	return nil
}

// Tracker returns a page URL callback that saves every URL. Failures are
// logged and do not stop the listing.
func (r *ResumeFile) Tracker(logger utils.Logger) func(url string, page int) {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return func(url string, page int) {
		if err := r.Save(url); err != nil {
			logger.Warnf("Could not save page %d URL: %v", page, err)
		}
	}
}
