package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/permit-leads/internal/model"
)

// WriteXLSX writes permits as a single-sheet workbook. Construction value and
// unit counts stay numeric so spreadsheet sorting and sums work out of the box.
func WriteXLSX(w io.Writer, permits []model.Permit) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Permits")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.CSVHeader() {
		header.AddCell().SetString(col)
	}

	for _, p := range permits {
		row := sheet.AddRow()
		row.AddCell().SetString(p.PermitNumber)
		row.AddCell().SetString(p.PermitType)
		row.AddCell().SetString(p.Status)
		row.AddCell().SetString(p.ApplicationDate.String())
		row.AddCell().SetFloatWithFormat(p.ConstructionValue, "#,##0.00")
		row.AddCell().SetString(p.ValueRange)
		row.AddCell().SetString(p.WorkType)
		row.AddCell().SetString(p.SubWorkType)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Address)
		row.AddCell().SetString(optionalUnits(p.TotalUnits))
		row.AddCell().SetString(optionalUnits(p.UnitsCreated))
		row.AddCell().SetString(string(p.LeadPriority))
		row.AddCell().SetString(string(p.ContractorType))
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}

func optionalUnits(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
