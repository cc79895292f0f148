package fetcher

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

// DecodeCSV reads a bulk permit export into raw records keyed by the header
// row. Field naming and typing differences against the feature service are
// reconciled downstream by the pipeline's normalizer, so values stay as the
// strings the file carries.
func DecodeCSV(r io.Reader) ([]model.RawPermit, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // upstream exports occasionally pad short rows

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("fetcher: csv file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read csv header")
	}

	var raw []model.RawPermit
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}

		rec := make(model.RawPermit, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			rec[col] = row[i]
		}
		raw = append(raw, rec)
	}

	zap.L().Info("fetcher: decoded csv export", zap.Int("records", len(raw)))

	return raw, nil
}

// DecodeCSVFile reads a bulk permit export from disk.
func DecodeCSVFile(path string) ([]model.RawPermit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return DecodeCSV(f)
}

// CountCSVRows returns the number of data rows in a CSV file, excluding the
// header. Used to verify a completed download before replacing the previous
// batch.
func CountCSVRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	rows := -1 // first successful read is the header
	for {
		if _, err := cr.Read(); err == io.EOF {
			break
		} else if err != nil {
			return 0, eris.Wrap(err, "fetcher: count csv rows")
		}
		rows++
	}
	if rows < 0 {
		rows = 0
	}

	return rows, nil
}
