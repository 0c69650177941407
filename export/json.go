package export

import (
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/sartorproj/salescast/analysis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes the report as indented JSON.
func WriteJSON(report *analysis.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}

// SaveJSON writes the report to path.
func SaveJSON(report *analysis.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteJSON(report, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
