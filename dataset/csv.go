package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// ReadCSV loads a headered CSV file into a Frame. The first record supplies
// the column names; every following record becomes a row.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "sizefit: failed to open dataset %s", path)
	}
	defer file.Close()

	return ReadCSVFrom(file)
}

// ReadCSVFrom is ReadCSV over an arbitrary reader.
func ReadCSVFrom(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "sizefit: failed to read CSV header")
	}

	frame, err := NewFrame(header)
	if err != nil {
		return nil, err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "sizefit: failed to read CSV record")
		}
		if err := frame.AppendRow(record); err != nil {
			return nil, err
		}
	}

	if frame.NumRows() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	return frame, nil
}
