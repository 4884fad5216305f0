package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
)

// ReadCSV parses comma separated data with a header row. A leading UTF-8 byte
// order mark is skipped.
func ReadCSV(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	if c, _, err := br.ReadRune(); err == nil && c != '\ufeff' {
		_ = br.UnreadRune()
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset: parse csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset: no header row")
	}
	if len(records) == 1 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset: header without rows")
	}
	return NewFrame(records[0], records[1:])
}

// LoadCSV opens path and parses it with ReadCSV.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer file.Close()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: load %s", path)
	}
	log.GetLoggerWithName("dataset").Info("Loaded dataset",
		log.PathKey, path,
		log.SamplesKey, f.NRows(),
		log.FeaturesKey, len(f.FeatureColumns()),
	)
	return f, nil
}
