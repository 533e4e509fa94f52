package wages

import (
	"strings"
	"sync/atomic"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// StaticProvider answers baselines from a fixed table. There is no fallback
// state: a gap in the table is reported, never approximated.
type StaticProvider struct {
	table atomic.Pointer[Table]
}

// NewStaticProvider creates a provider over t
func NewStaticProvider(t *Table) *StaticProvider {
	p := &StaticProvider{}
	p.table.Store(t)
	return p
}

// Replace swaps the whole table
func (p *StaticProvider) Replace(t *Table) {
	p.table.Store(t)
}

// Table returns the current table
func (p *StaticProvider) Table() *Table {
	return p.table.Load()
}

// Baseline looks up the (state, role) salary. Metro and industry are ignored.
func (p *StaticProvider) Baseline(q models.BaselineQuery) (models.Baseline, error) {
	t := p.table.Load()
	state := strings.ToUpper(q.State)

	roles, ok := t.States[state]
	if !ok {
		return models.Baseline{}, &models.DataUnavailableError{State: state, Role: q.Role, Reason: "state not covered by wage table " + t.Name}
	}
	salary, ok := roles[q.Role]
	if !ok {
		return models.Baseline{}, &models.DataUnavailableError{State: state, Role: q.Role, Reason: "role missing from wage table " + t.Name}
	}
	return models.Baseline{
		Salary:  salary,
		Sources: []string{"Static wage table (" + t.Name + ")"},
	}, nil
}
