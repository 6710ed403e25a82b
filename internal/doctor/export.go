package doctor

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// exportCap bounds the unpaginated export.
const exportCap = 10000

var exportHeaders = []string{
	"Name", "Email", "Phone", "Specialization", "Address", "Website", "Contacted", "Created", "Updated",
}

func buildWorkbook(doctors []Doctor) (*excelize.File, error) {
	f := excelize.NewFile()
	// Don't defer Close here: the caller streams the file and closes it.

	const sheet = "Doctors"
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, d := range doctors {
		contacted := "No"
		if d.EmailSent {
			contacted = "Yes"
		}
		values := []any{
			d.Name, d.Email, d.Phone, d.Specialization, d.Address, d.Website,
			contacted,
			d.CreatedAt.Format("2006-01-02 15:04"),
			d.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}
