package prompt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nregsmp/nregsreport/internal/model"
)

// FileName returns the archive file name of a section prompt:
// prompt_<district slug>_<YYYYMMDD>_<section slug>.txt
func FileName(req model.ReportRequest, section model.Section) string {
	return fmt.Sprintf("prompt_%s_%s_%s.txt", req.District.Slug, req.Date.Format("20060102"), section)
}

// Archive writes a composed prompt into dir and returns the file path.
// The directory is created if needed.
func Archive(dir string, req model.ReportRequest, p model.SectionPrompt) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", &model.IOError{Op: "create prompt directory", Path: dir, Err: err}
	}

	path := filepath.Join(dir, FileName(req, p.Section))
	if err := os.WriteFile(path, []byte(p.Text), 0600); err != nil {
		return "", &model.IOError{Op: "write prompt", Path: path, Err: err}
	}
	return path, nil
}
