// Package export renders qualified permit leads as downloadable files.
package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/model"
)

// WriteCSV writes permits as CSV with the canonical column set, header first.
// Column order matches the JSON field labels so a download opens in a
// spreadsheet with the same names the API reports.
func WriteCSV(w io.Writer, permits []model.Permit) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(model.CSVHeader()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, p := range permits {
		if err := cw.Write(p.CSVRecord()); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", p.PermitNumber)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
