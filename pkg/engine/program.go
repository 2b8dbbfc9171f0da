package engine

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrProgramIndex is returned for program numbers outside the program range
var ErrProgramIndex = errors.New("program index out of range")

// NumPrograms returns the number of program slots
func (e *Engine) NumPrograms() int {
	return len(e.programs)
}

// Program returns the active program number
func (e *Engine) Program() int {
	return e.active
}

// SetProgram makes program n active. Subsequent reads and writes go
// through its values. An out of range n leaves the active program as is.
func (e *Engine) SetProgram(n int) error {
	if n < 0 || n >= len(e.programs) {
		return errors.Wrapf(ErrProgramIndex, "program %d not in [0, %d)", n, len(e.programs))
	}
	e.active = n
	e.logger.Debug("program set", zap.Int("program", n))

	if e.reflector != nil {
		for i, v := range e.programs[n].Values {
			e.reflector.ReflectParameter(i, v)
		}
	}
	return nil
}

// ProgramName returns the name of the active program
func (e *Engine) ProgramName() string {
	return e.programs[e.active].Name
}

// SetProgramName renames the active program
func (e *Engine) SetProgramName(name string) {
	e.programs[e.active].Name = truncateName(name)
}

// ProgramNameIndexed returns the name of program n
func (e *Engine) ProgramNameIndexed(n int) (string, bool) {
	if n < 0 || n >= len(e.programs) {
		return "", false
	}
	return e.programs[n].Name, true
}

// ProgramValues returns a copy of the values of program n
func (e *Engine) ProgramValues(n int) ([]float64, error) {
	if n < 0 || n >= len(e.programs) {
		return nil, errors.Wrapf(ErrProgramIndex, "program %d not in [0, %d)", n, len(e.programs))
	}
	out := make([]float64, len(e.programs[n].Values))
	copy(out, e.programs[n].Values)
	return out, nil
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > MaxProgramNameLen {
		return string(r[:MaxProgramNameLen])
	}
	return name
}
