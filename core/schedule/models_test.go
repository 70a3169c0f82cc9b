package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficct/horarios/core"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{in: "MO", want: Monday},
		{in: "lu", want: Monday},
		{in: " MI ", want: Wednesday},
		{in: "VI", want: Friday},
		{in: "SA", want: Saturday},
		{in: "SU", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignment_UnmarshalJSON(t *testing.T) {
	payload := `{
		"idasignacion": 4,
		"idgrupo": 1,
		"idmateria": 3,
		"iddocente": 2,
		"idaula": 5,
		"idgestion": 1,
		"horarios": [{"idhorario": 1, "dia": "LU", "horainicio": "08:00:00", "horafinal": "09:30:00"}],
		"materia_nombre": "Cálculo I",
		"materia_sigla": "CALC1",
		"nombre_grupo": "SA",
		"docente_nombre": "Pérez",
		"aula_numero": 101
	}`

	var asg Assignment
	require.NoError(t, json.Unmarshal([]byte(payload), &asg))
	assert.Equal(t, RoomNumber("101"), asg.ClassroomNumber)
	assert.Equal(t, []int{1}, asg.SlotIDs())
	assert.Equal(t, Monday, asg.Slots[0].Day)
	assert.Equal(t, TimeBlock{"08:00", "09:30"}, asg.Slots[0].Block())
}

func TestPeriod_UnmarshalJSON(t *testing.T) {
	var term AcademicTerm
	require.NoError(t, json.Unmarshal([]byte(`{"idgestion":1,"anio":2025,"periodo":"verano"}`), &term))
	assert.Equal(t, PeriodSummer, term.Period)
	assert.Equal(t, "2025-SUMMER", term.String())
}

func TestNormalizeTime(t *testing.T) {
	tests := map[string]string{
		"08:00:00": "08:00",
		"8:15":     "08:15",
		"14:30":    "14:30",
		" 9:00:00": "09:00",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeTime(in), "NormalizeTime(%q)", in)
	}
}

func TestValidators(t *testing.T) {
	translator := core.NewTranslator()
	validate := NewValidate(translator)

	tests := []struct {
		name    string
		obj     interface{}
		wantErr bool
	}{
		{name: "valid slot", obj: TimeSlot{Day: Monday, Start: "08:00", End: "09:30"}},
		{name: "slot with seconds", obj: TimeSlot{Day: Friday, Start: "08:00:00", End: "09:30:00"}},
		{name: "bad day", obj: TimeSlot{Day: "SU", Start: "08:00", End: "09:30"}, wantErr: true},
		{name: "bad time", obj: TimeSlot{Day: Monday, Start: "25:00", End: "26:00"}, wantErr: true},
		{name: "ends before start", obj: TimeSlot{Day: Monday, Start: "10:00", End: "09:30"}, wantErr: true},
		{name: "valid term", obj: AcademicTerm{Year: 2025, Period: PeriodII}},
		{name: "bad period", obj: AcademicTerm{Year: 2025, Period: "III"}, wantErr: true},
		{name: "valid classroom", obj: Classroom{Number: "101", Type: RoomLaboratorio}},
		{name: "bad classroom type", obj: Classroom{Number: "101", Type: "Cocina"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.obj)
			if tt.wantErr {
				assert.True(t, core.IsValidation(core.TranslateValidation(err, translator)))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGroup_Validate(t *testing.T) {
	validate := NewValidate(core.NewTranslator())

	g := Group{Label: " sa ", SubjectID: 1, TermID: 1, Capacity: 40}
	require.NoError(t, g.Validate(validate))
	assert.Equal(t, "SA", g.Label)

	g = Group{Label: "A VERY LONG GROUP LABEL", SubjectID: 1, TermID: 1, Capacity: 40}
	assert.Error(t, g.Validate(validate))
}
