package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"review_scraper/internal/domain"
)

// Artifact is the metadata of one written export file.
type Artifact struct {
	Path       string    `json:"path"`
	Name       string    `json:"fileName"`
	Bytes      int64     `json:"sizeBytes"`
	Size       string    `json:"size"` // binary-prefixed, 2 decimal places
	Rows       int       `json:"rows"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Store persists serialized exports under a single injected directory.
// Filenames embed a millisecond timestamp; files are write-once and never
// appended to or overwritten.
type Store struct {
	dir string
}

func NewStore(dir string) *Store { return &Store{dir: dir} }

// Write persists data as a new export file and returns its metadata.
func (s *Store) Write(platform domain.Platform, appID, data string) (Artifact, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	name := fmt.Sprintf("reviews_%s_%s_%d.csv", platform, safeName(appID), time.Now().UnixMilli())
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	return Artifact{
		Path:  path,
		Name:  name,
		Bytes: st.Size(),
		Size:  humanSize(st.Size()),
		// header line and the trailing newline are not rows
		Rows:       countLines(data) - 2,
		CreatedAt:  st.ModTime(),
		ModifiedAt: st.ModTime(),
	}, nil
}

// countLines counts newline-separated chunks, including the empty chunk a
// trailing newline produces.
func countLines(data string) int {
	return strings.Count(data, "\n") + 1
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%.2f B", float64(n))
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
