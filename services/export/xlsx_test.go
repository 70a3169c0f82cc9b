package exportsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ficct/horarios/core/schedule"
)

func TestWriteXLSX(t *testing.T) {
	tt := schedule.Organize([]schedule.Assignment{
		{
			ID: 1, SubjectID: 1, TermID: 1,
			Slots:       []schedule.TimeSlot{{ID: 1, Day: schedule.Monday, Start: "08:00", End: "09:30"}},
			SubjectCode: "CALC1", GroupLabel: "SA", TeacherName: "Pérez", ClassroomNumber: "101",
		},
		{
			ID: 2, SubjectID: 2, TermID: 1,
			Slots:       []schedule.TimeSlot{{ID: 4, Day: schedule.Wednesday, Start: "09:30", End: "11:00"}},
			SubjectCode: "FIS1", GroupLabel: "SB", TeacherName: "Gómez", ClassroomNumber: "102",
		},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tt, "2025/I"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"2025-I"}, f.GetSheetList())
	sheet := "2025-I"

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Hora"},
		{"B1", "Lunes"},
		{"G1", "Sábado"},
		{"A2", "08:00-09:30"},
		{"A3", "09:30-11:00"},
		{"B2", "CALC1 - SA\nPérez\nAula 101"},
		{"D3", "FIS1 - SB\nGómez\nAula 102"},
		{"C2", ""},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(sheet, tt.cell)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.cell)
	}
}

func TestCellText_shared(t *testing.T) {
	got := CellText([]schedule.Occupant{
		{SubjectCode: "LAB1", GroupLabel: "SA", TeacherName: "Pérez", ClassroomNumber: "L1"},
		{SubjectCode: "LAB1", GroupLabel: "SB", TeacherName: "Gómez", ClassroomNumber: "L1"},
	})
	assert.Equal(t, "LAB1 - SA\nPérez\nAula L1\n\nLAB1 - SB\nGómez\nAula L1", got)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Horario", sheetName("  "))
	assert.Equal(t, "2025-I (docente 3)", sheetName("2025:I [docente 3]"))
	assert.Len(t, []rune(sheetName("a very long timetable title that overflows")), 31)
}
