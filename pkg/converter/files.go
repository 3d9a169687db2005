package converter

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// videoExtensions is the case-insensitive set of source extensions the
// batch picks up.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".avi":  {},
	".flv":  {},
	".wmv":  {},
	".webm": {},
	".mpeg": {},
	".mpg":  {},
}

// IsVideoFile reports whether the path has a known video extension.
func IsVideoFile(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FindVideos walks the input directory recursively and returns every
// video file, sorted by case-insensitive base name so batch order is
// deterministic and an interrupted run resumes in the same order.
func FindVideos(dir string) ([]string, error) {
	var videos []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsVideoFile(path) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan input directory %s", dir)
	}

	slices.SortFunc(videos, func(a, b string) int {
		return strings.Compare(
			strings.ToLower(filepath.Base(a)),
			strings.ToLower(filepath.Base(b)),
		)
	})
	return videos, nil
}

// OutputPath returns the deterministic output location for a source:
// same base name, .mp4, directly in the output directory. Its existence
// is the sole persisted state of the batch.
func OutputPath(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, base+".mp4")
}
