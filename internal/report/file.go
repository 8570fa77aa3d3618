package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

// DefaultFileName returns the file name of a report:
// nregs_report_<district>_<YYYYMMDD>.<ext>
func DefaultFileName(doc *model.ReportDocument, format Format) string {
	return fmt.Sprintf("nregs_report_%s_%s.%s",
		doc.District.Slug, doc.Date.Format("20060102"), format.Extension())
}

// ResolvePath returns the file a report is written to.
// An empty destination, a directory, a path ending in a separator or a
// missing path without an extension receives the default file name. An
// existing file or a path with an extension is used as is.
func ResolvePath(doc *model.ReportDocument, destination string, format Format) string {
	if destination == "" {
		return DefaultFileName(doc, format)
	}
	if strings.HasSuffix(destination, string(os.PathSeparator)) || strings.HasSuffix(destination, "/") {
		return filepath.Join(destination, DefaultFileName(doc, format))
	}
	info, err := os.Stat(destination)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(destination, DefaultFileName(doc, format))
	case err == nil:
		return destination
	case filepath.Ext(destination) == "":
		return filepath.Join(destination, DefaultFileName(doc, format))
	}
	return destination
}

// WriteFile renders doc in format and writes it under destination.
// It returns the path of the written file. Failures are *model.IOError
// values and leave no partial file behind.
func WriteFile(doc *model.ReportDocument, destination string, format Format) (string, error) {
	path := filepath.Clean(ResolvePath(doc, destination, format))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", &model.IOError{Op: "create directory", Path: dir, Err: err}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", &model.IOError{Op: "create", Path: path, Err: err}
	}

	w, err := NewWriter(format, f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &model.IOError{Op: "write", Path: path, Err: err}
	}

	_, writeErr := w.Write(doc)
	if err := errors.Join(writeErr, f.Close()); err != nil {
		_ = os.Remove(path)
		return "", &model.IOError{Op: "write", Path: path, Err: err}
	}

	return path, nil
}
