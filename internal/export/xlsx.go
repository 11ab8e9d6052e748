package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"imgmeta/internal/domain"
)

// SheetName is the worksheet that holds the exported rows.
const SheetName = "images"

// WriteXLSX writes a single-sheet workbook with the header and one row per image.
func WriteXLSX(out io.Writer, images []domain.Image) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{}); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}

	for i := range images {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := imageToRow(&images[i])
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// ContentType returns the MIME type for an export format name.
func ContentType(format string) string {
	if strings.EqualFold(format, "xlsx") {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
