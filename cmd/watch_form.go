package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField struct {
	label string
	input textinput.Model
}

// registrationForm collects a land registration inside the dashboard.
type registrationForm struct {
	fields []formField
	focus  int
	err    string
	label  lipgloss.Style
	errorS lipgloss.Style
}

const (
	fieldDivision = iota
	fieldDistrict
	fieldSurvey
	fieldArea
	fieldUnit
	fieldLat
	fieldLng
	fieldDocHash
)

func newRegistrationForm() *registrationForm {
	specs := []struct {
		label       string
		placeholder string
		value       string
	}{
		{label: "division", placeholder: "Dhaka"},
		{label: "district", placeholder: "Gazipur"},
		{label: "survey", placeholder: "CS-1029"},
		{label: "area", placeholder: "12"},
		{label: "unit", value: string(domain.AreaUnitKatha)},
		{label: "lat", placeholder: "23.8103"},
		{label: "lng", placeholder: "90.4125"},
		{label: "doc hash", placeholder: "0x…"},
	}

	form := &registrationForm{
		label:  lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("245")),
		errorS: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
	for _, spec := range specs {
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = spec.placeholder
		input.CharLimit = 128
		input.SetValue(spec.value)
		form.fields = append(form.fields, formField{label: spec.label, input: input})
	}
	form.fields[0].input.Focus()

	return form
}

func (f *registrationForm) move(delta int) tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

func (f *registrationForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *registrationForm) value(field int) string {
	return strings.TrimSpace(f.fields[field].input.Value())
}

// input parses the numeric fields; everything else is checked by the coordinator.
func (f *registrationForm) input() (domain.RegistrationInput, error) {
	area, err := parseFormFloat("area", f.value(fieldArea))
	if err != nil {
		return domain.RegistrationInput{}, err
	}
	lat, err := parseFormFloat("lat", f.value(fieldLat))
	if err != nil {
		return domain.RegistrationInput{}, err
	}
	lng, err := parseFormFloat("lng", f.value(fieldLng))
	if err != nil {
		return domain.RegistrationInput{}, err
	}

	return domain.RegistrationInput{
		Division:     f.value(fieldDivision),
		District:     f.value(fieldDistrict),
		SurveyNumber: f.value(fieldSurvey),
		Area:         domain.Area{Value: area, Unit: domain.AreaUnit(strings.ToLower(f.value(fieldUnit)))},
		GPS:          domain.GPS{Lat: lat, Lng: lng},
		DocumentHash: f.value(fieldDocHash),
	}, nil
}

func parseFormFloat(name, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func (f *registrationForm) view() string {
	lines := make([]string, 0, len(f.fields)+2)
	for i, field := range f.fields {
		marker := "  "
		if i == f.focus {
			marker = "› "
		}
		lines = append(lines, marker+f.label.Render(field.label)+field.input.View())
	}
	if f.err != "" {
		lines = append(lines, f.errorS.Render(f.err))
	}
	lines = append(lines, lipgloss.NewStyle().Faint(true).Render("tab next • shift+tab back • enter submit • esc cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
