// Package exportsvc renders timetables for download.
package exportsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ficct/horarios/core/schedule"
)

// ContentTypeXLSX is the MIME type of the workbook written by WriteXLSX.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// fill colours of schedule.Palette
var paletteHex = map[string]string{
	"blue":   "#DBEAFE",
	"green":  "#DCFCE7",
	"yellow": "#FEF9C3",
	"purple": "#F3E8FF",
	"pink":   "#FCE7F3",
	"indigo": "#E0E7FF",
	"red":    "#FEE2E2",
	"orange": "#FFEDD5",
	"teal":   "#CCFBF1",
	"cyan":   "#CFFAFE",
}

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// CellText is what one grid cell shows: one paragraph per occupant.
func CellText(occs []schedule.Occupant) string {
	parts := make([]string, 0, len(occs))
	for _, o := range occs {
		parts = append(parts, fmt.Sprintf("%s - %s\n%s\nAula %s", o.SubjectCode, o.GroupLabel, o.TeacherName, o.ClassroomNumber))
	}
	return strings.Join(parts, "\n\n")
}

// Timetable builds a workbook with one sheet: a header row with the weekdays and one row per time block.
func Timetable(tt schedule.Timetable, title string) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := sheetName(title)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	if err := f.SetCellValue(sheet, "A1", "Hora"); err != nil {
		return nil, err
	}
	days := tt.Days()
	for i, day := range days {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		if err := f.SetCellValue(sheet, cell, day.Name()); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(days)+1, 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, header); err != nil {
		return nil, err
	}

	styles := make(map[string]int)
	for r, block := range tt.Blocks {
		row := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, cell, block.String()); err != nil {
			return nil, err
		}
		for c, day := range days {
			occs := tt.Cell(day, block)
			if len(occs) == 0 {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, row)
			if err := f.SetCellValue(sheet, cell, CellText(occs)); err != nil {
				return nil, err
			}
			style, err := occupantStyle(f, styles, occs[0].Color)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(days) + 1)
	if err := f.SetColWidth(sheet, "B", lastCol, 28); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteXLSX writes the timetable workbook to w.
func WriteXLSX(w io.Writer, tt schedule.Timetable, title string) error {
	f, err := Timetable(tt, title)
	if err != nil {
		return errors.Wrap(err, "building workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()
	return errors.Wrap(f.Write(w), "writing workbook")
}

func occupantStyle(f *excelize.File, styles map[string]int, color string) (int, error) {
	if id, ok := styles[color]; ok {
		return id, nil
	}
	hex, ok := paletteHex[color]
	if !ok {
		hex = "#FFFFFF"
	}
	id, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{hex}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return 0, errors.Wrap(err, "creating cell style")
	}
	styles[color] = id
	return id, nil
}

func sheetName(title string) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(title))
	if name == "" {
		return "Horario"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
