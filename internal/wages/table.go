package wages

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"gopkg.in/yaml.v2"
)

//go:embed seed/wages.yaml
var defaultTableYAML []byte

// Table holds annual baselines keyed by state code then role
type Table struct {
	Name   string                             `yaml:"name"`
	States map[string]map[models.Role]float64 `yaml:"states"`
}

// LoadTable parses a YAML wage table and checks every entry
func LoadTable(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read wage table: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to parse wage table: %w", err)
	}
	if t.Name == "" {
		t.Name = "custom"
	}
	if len(t.States) == 0 {
		return nil, fmt.Errorf("wage table %s has no states", t.Name)
	}

	states := make(map[string]map[models.Role]float64, len(t.States))
	for state, roles := range t.States {
		code := strings.ToUpper(strings.TrimSpace(state))
		if len(code) != 2 {
			return nil, fmt.Errorf("wage table %s: invalid state code %q", t.Name, state)
		}
		if _, dup := states[code]; dup {
			return nil, fmt.Errorf("wage table %s: state %s is listed more than once", t.Name, code)
		}
		for role, salary := range roles {
			if !role.Valid() {
				return nil, fmt.Errorf("wage table %s: unknown role %q in %s", t.Name, role, code)
			}
			if salary <= 0 {
				return nil, fmt.Errorf("wage table %s: salary for %s/%s must be positive", t.Name, code, role)
			}
		}
		states[code] = roles
	}
	t.States = states
	return &t, nil
}

// LoadTableFile reads a wage table from disk
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wage table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable returns the embedded OES table
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(defaultTableYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded wage table is invalid: %v", err))
	}
	return t
}
