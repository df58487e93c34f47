package presenter

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	presenter := New()
	assert.NotNil(t, presenter)
	assert.Equal(t, os.Stdout, presenter.output)
	assert.Equal(t, os.Stderr, presenter.errorOutput)
	assert.False(t, presenter.quiet)
}

func TestNewWithOptions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name           string
		noColor        string
		skillforgeColor string
		expected       ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"SKILLFORGE_COLOR always", "", "always", ColorAlways},
		{"SKILLFORGE_COLOR force", "", "force", ColorAlways},
		{"SKILLFORGE_COLOR never", "", "never", ColorNever},
		{"SKILLFORGE_COLOR off", "", "off", ColorNever},
		{"SKILLFORGE_COLOR auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "invalid", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("NO_COLOR")
			os.Unsetenv("SKILLFORGE_COLOR")

			if tt.noColor != "" {
				os.Setenv("NO_COLOR", tt.noColor)
			}
			if tt.skillforgeColor != "" {
				os.Setenv("SKILLFORGE_COLOR", tt.skillforgeColor)
			}

			result := detectColorMode()
			assert.Equal(t, tt.expected, result)

			os.Unsetenv("NO_COLOR")
			os.Unsetenv("SKILLFORGE_COLOR")
		})
	}
}

func TestError(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	err := errors.New("test error")
	presenter.Error(err, "importing skill")
	assert.Contains(t, errorOutput.String(), "[ERROR] importing skill: test error")

	errorOutput.Reset()
	presenter.Error(err, "")
	assert.Contains(t, errorOutput.String(), "[ERROR] test error")

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())
}

func TestErrorShownInQuietMode(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)
	presenter.SetQuiet(true)

	presenter.Error(errors.New("boom"), "")
	assert.Contains(t, errorOutput.String(), "boom")
}

func TestSuccessWarningInfo(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Success("skill imported")
	presenter.Warning("slug already taken")
	presenter.Info("3 skills installed")

	out := output.String()
	assert.Contains(t, out, "✓ skill imported")
	assert.Contains(t, out, "⚠ slug already taken")
	assert.Contains(t, out, "3 skills installed")
}

func TestQuietModeSuppressesOutput(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetQuiet(true)
	assert.True(t, presenter.IsQuiet())

	presenter.Success("hidden")
	presenter.Warning("hidden")
	presenter.Info("hidden")
	presenter.Section("hidden")
	presenter.Table([]string{"SLUG"}, [][]string{{"demo"}})
	presenter.Separator()

	assert.Empty(t, output.String())
}

func TestSection(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Section("Installed Skills")

	lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
	assert.Equal(t, "Installed Skills", lines[0])
	assert.Equal(t, strings.Repeat("-", len("Installed Skills")), lines[1])
}

func TestTable(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Table(
		[]string{"SLUG", "NAME", "DESCRIPTION"},
		[][]string{
			{"pdf-report", "pdf-report", "Generate PDF reports"},
			{"changelog", "changelog", "Write changelogs"},
		},
	)

	out := output.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SLUG")
	assert.Contains(t, lines[1], "pdf-report")
	assert.Contains(t, lines[2], "changelog")
}

func TestSeparator(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Separator()
	assert.Equal(t, strings.Repeat("-", 60)+"\n", output.String())
}
