package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/render"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestIntegrate_Text(t *testing.T) {
	out, err := run(t, "integrate", "6/sqrt(x)", "--from", "1", "--to", "4", "-n", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "T_n")
	assert.Contains(t, out, "S_n")
	assert.Contains(t, out, "exact: 12")
}

func TestIntegrate_JSONWithFlags(t *testing.T) {
	out, err := run(t, "integrate", "sin(t)", "--from", "0", "--to", "pi/2",
		"-n", "8", "--rules", "simpson,midpoint", "-o", "json", "--precision", "4", "--bounds")
	require.NoError(t, err)

	var view render.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "t", view.Var)
	require.Len(t, view.Approximations, 2)
	assert.Equal(t, "midpoint", view.Approximations[0].Rule)
	assert.Equal(t, "simpson", view.Approximations[1].Rule)
	assert.Equal(t, 1.0, *view.Approximations[1].Value)
	assert.NotNil(t, view.Approximations[1].Bound)
}

func TestIntegrate_RuleFailureIsNotFatal(t *testing.T) {
	out, err := run(t, "integrate", "1/x", "--from=-1", "--to", "1", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "error: ")
	assert.Contains(t, out, "exact: unavailable")
}

func TestIntegrate_InvalidInput(t *testing.T) {
	tests := [][]string{
		{"integrate", "x", "--from", "0", "--to", "1", "-n", "3"},
		{"integrate", "x", "--from", "0", "--to", "1", "-n", "0"},
		{"integrate", "x +", "--from", "0", "--to", "1"},
		{"integrate", "x", "--from", "0"},
		{"integrate", "x", "--from", "0", "--to", "y"},
		{"integrate", "x", "--from", "0", "--to", "1", "--rules", "romberg"},
		{"integrate", "x", "--from", "0", "--to", "1", "-o", "xml"},
		{"integrate", "x", "--from", "0", "--to", "1", "-n", "2000000"},
		{"integrate", "x", "--from", "0", "--to", "1", "--precision", "16"},
		{"integrate", "x", "--from", "0", "--to", "1", "--rules", "simpsonxyz"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestIntegrate_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goquad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[quadrature]\nsubintervals = 4\nrules = [\"trapezoidal\"]\n\n[output]\nformat = \"yaml\"\n"), 0o644))

	out, err := run(t, "--config", path, "integrate", "x^2", "--from", "0", "--to", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "n: 4")
	assert.Contains(t, out, "symbol: T_n")
	assert.NotContains(t, out, "S_n")
}

func TestRules(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "simpson")
	assert.Contains(t, out, "O(h^4)")
	assert.Contains(t, out, "even")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "goquad v"+Version)
}
