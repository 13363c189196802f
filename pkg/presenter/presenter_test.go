package presenter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	color.NoColor = true
	return NewWithOptions(&out, &errOut, ColorNever), &out, &errOut
}

func TestError(t *testing.T) {
	p, out, errOut := newTestPresenter()

	p.Error(errors.New("boom"), "importing skill")
	assert.Contains(t, errOut.String(), "[ERROR] importing skill: boom")
	assert.Empty(t, out.String())

	errOut.Reset()
	p.Error(nil, "nothing")
	assert.Empty(t, errOut.String())
}

func TestQuietModeSuppressesNonErrors(t *testing.T) {
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)

	p.Success("done")
	p.Warning("careful")
	p.Info("hello")
	p.Section("title")
	p.Separator()
	assert.Empty(t, out.String())

	p.Error(errors.New("boom"), "")
	assert.Contains(t, errOut.String(), "boom")
}

func TestMessages(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Success("installed")
	p.Warning("already exists")
	p.Info("3 skills found")
	p.Section("Skills")

	output := out.String()
	assert.Contains(t, output, "✓ installed")
	assert.Contains(t, output, "⚠ already exists")
	assert.Contains(t, output, "3 skills found")
	assert.Contains(t, output, "Skills\n------")
}
