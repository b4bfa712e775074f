package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"go.uber.org/zap"
)

type Files struct {
	Dir      string
	SaveJSON bool
	JSONFile string
	SaveText bool
	TextFile string
	SaveHTML bool
	HTMLFile string
}

type renderer func(io.Writer, *models.SearchResponse) error

// Write renders each enabled report into its file and returns the paths written.
func (f Files) Write(resp *models.SearchResponse, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	outputs := []struct {
		enabled bool
		name    string
		render  renderer
	}{
		{f.SaveJSON, f.JSONFile, JSON},
		{f.SaveText, f.TextFile, Text},
		{f.SaveHTML, f.HTMLFile, HTML},
	}

	var written []string
	for _, out := range outputs {
		if !out.enabled || out.name == "" {
			continue
		}
		path := out.name
		if f.Dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(f.Dir, path)
		}
		if err := writeFile(path, resp, out.render); err != nil {
			return written, err
		}
		logger.Info("report saved", zap.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, resp *models.SearchResponse, render renderer) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close %s", path)
		}
	}()

	if err := render(file, resp); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
