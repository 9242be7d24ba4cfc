package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One signup"
flow:
  - invoke: signup
    args:
      name: "Bea Buyer"
      email: "buyer@example.com"
      password: "secret1"
assertions:
  - type: email_sent
    to: buyer@example.com
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "One signup", scenario.Description)
	assert.Empty(t, scenario.Setup)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "signup", scenario.Flow[0].Invoke)
	assert.Equal(t, "buyer@example.com", scenario.Flow[0].Args["email"])
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertEmailSent, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: "x"
flow:
  - invoke: advance_clock
    args: { by: 1h }
`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
flow:
  - invoke: advance_clock
`,
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: `
name: x
description: "x"
flow: []
`,
			want: "flow list is required",
		},
		{
			name: "unknown field",
			yaml: `
name: x
description: "x"
assertion: []
flow:
  - invoke: advance_clock
`,
			want: "field assertion not found",
		},
		{
			name: "unknown action",
			yaml: `
name: x
description: "x"
flow:
  - invoke: checkout_everything
`,
			want: `flow[0]: unknown action "checkout_everything"`,
		},
		{
			name: "action without account",
			yaml: `
name: x
description: "x"
flow:
  - invoke: add_to_cart
    args: { product_id: 1 }
`,
			want: `flow[0]: action "add_to_cart" requires as`,
		},
		{
			name: "setup with expect",
			yaml: `
name: x
description: "x"
setup:
  - invoke: advance_clock
    args: { by: 1h }
    expect:
      case: Success
flow:
  - invoke: advance_clock
`,
			want: "setup[0]: setup steps cannot have expect clauses",
		},
		{
			name: "expect without case",
			yaml: `
name: x
description: "x"
flow:
  - invoke: advance_clock
    expect:
      result: { now: "x" }
`,
			want: "flow[0]: expect.case is required",
		},
		{
			name: "unknown assertion",
			yaml: `
name: x
description: "x"
flow:
  - invoke: advance_clock
assertions:
  - type: trace_magic
`,
			want: `assertions[0]: unknown assertion type "trace_magic"`,
		},
		{
			name: "trace_order with one action",
			yaml: `
name: x
description: "x"
flow:
  - invoke: advance_clock
assertions:
  - type: trace_order
    actions: [advance_clock]
`,
			want: "trace_order requires at least two actions",
		},
		{
			name: "email_sent without filter",
			yaml: `
name: x
description: "x"
flow:
  - invoke: advance_clock
assertions:
  - type: email_sent
`,
			want: "email_sent requires to or subject",
		},
		{
			name: "final_state without table",
			yaml: `
name: x
description: "x"
flow:
  - invoke: advance_clock
assertions:
  - type: final_state
    where: { id: 1 }
`,
			want: "final_state requires table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"access_and_validation", "catalog_changes", "checkout_drift", "checkout_flow", "direct_order"}, names)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no scenarios found")
	})

	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(minimalScenario), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(minimalScenario), 0o644))

		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `b.yaml: scenario name "minimal" already used by a.yaml`)
	})

	t.Run("invalid file is named", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0o644))

		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken.yaml")
	})
}
