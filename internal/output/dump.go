// internal/output/dump.go
package output

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/FBScrapexter/internal/extract"
)

// DumpSource writes the raw markup kept in post to dir/<post_id>.html,
// preceded by the rest of the record as an HTML comment. Posts without
// markup are skipped.
func DumpSource(dir string, post extract.Post) error {
	source := post.String(extract.KeySource)
	if source == "" {
		return nil
	}

	name := post.String(extract.KeyPostID)
	if name == "" {
		h := fnv.New64a()
		h.Write([]byte(source))
		name = fmt.Sprintf("unknown_%x", h.Sum64())
	}

	meta := post.Clone()
	delete(meta, extract.KeySource)
	b, err := marshalJSON(map[string]interface{}(meta))
	if err != nil {
		return fmt.Errorf("failed to encode post %s: %w", name, err)
	}
	comment := strings.ReplaceAll(string(b), "-->", "--&gt;")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name)+".html")
	content := "<!--\n" + comment + "\n-->\n" + source
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to dump post %s: %w", name, err)
	}
	return nil
}
