package plans

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lexora-inc/lexora/internal/domain/plan"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(plan.All())+1)
	assert.Contains(t, lines[0], "DOCUMENTS")
	assert.True(t, strings.HasPrefix(lines[1], "FREE"))
	assert.Contains(t, out, "unlimited")
	assert.Contains(t, out, "custom")
}

func TestExport(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "export")
		require.NoError(t, err)

		var doc struct {
			Plans []plan.Definition `yaml:"plans"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		require.Len(t, doc.Plans, len(plan.All()))
		assert.Equal(t, plan.Get(plan.TierPro), doc.Plans[2])
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "export", "--format", "json")
		require.NoError(t, err)

		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Contains(t, doc, "plans")
		assert.Contains(t, doc, "featureMinPlans")
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := execute(t, "export", "-f", "toml")
		assert.Error(t, err)
	})
}
