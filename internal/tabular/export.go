package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"storefront-bridge/internal/model"
)

// exportHeader is the column layout shared by CSV and spreadsheet exports.
// The trailing Quantity column is left blank on purpose: exported books are
// re-uploaded as distribution lists with quantities filled in by hand.
var exportHeader = []string{
	"Business", "FirstName", "LastName", "Address1", "Address2", "Address3",
	"City", "State", "PostalCode", "Country", "Phone", "Email",
	"IsDefault", "Quantity",
}

// exportRow renders one address as an export row.
func exportRow(a *model.Address, isDefault bool) []string {
	def := ""
	if isDefault {
		def = "yes"
	}
	return []string{
		a.Organization, a.FirstName, a.LastName, a.Street1, a.Street2, a.Street3,
		a.City, a.State, a.Postal, a.Country, a.Phone, a.Email,
		def, "", // blank fill-in quantity
	}
}

// ExportCSV writes the address book as comma-delimited text, default
// address first. Every address in the book appears exactly once.
func ExportCSV(w io.Writer, book *model.AddressBook) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if book.Default != nil {
		if err := cw.Write(exportRow(book.Default, true)); err != nil {
			return fmt.Errorf("writing default address: %w", err)
		}
	}
	for i := range book.Additional {
		if err := cw.Write(exportRow(&book.Additional[i], false)); err != nil {
			return fmt.Errorf("writing address: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the address book as a single-sheet spreadsheet with the
// same row shape as the CSV export.
func ExportXLSX(w io.Writer, book *model.AddressBook) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Addresses"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	writeRow := func(rowNum int, cells []string) error {
		for col, val := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(1, exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	f.SetCellStyle(sheet, "A1", last, headerStyle)

	rowNum := 2
	if book.Default != nil {
		if err := writeRow(rowNum, exportRow(book.Default, true)); err != nil {
			return fmt.Errorf("writing default address: %w", err)
		}
		rowNum++
	}
	for i := range book.Additional {
		if err := writeRow(rowNum, exportRow(&book.Additional[i], false)); err != nil {
			return fmt.Errorf("writing address: %w", err)
		}
		rowNum++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}
