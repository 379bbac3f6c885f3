package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordBuilds records one build per root of the shop mappings into journal
// and returns the build ids in recording order.
func recordBuilds(t *testing.T, shop, journal string, roots ...string) []string {
	t.Helper()

	var ids []string
	for _, root := range roots {
		out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), shop,
			"--root", root, "--record", "--journal", journal)
		require.NoError(t, err)

		_, data := decodeResponse(t, out)
		var result BuildResult
		require.NoError(t, json.Unmarshal(data, &result))
		require.NotEmpty(t, result.BuildID)
		ids = append(ids, result.BuildID)
	}
	return ids
}

func TestHistory_ListsBuilds(t *testing.T) {
	shop := mappingsDir(t, "shop")
	dir := isolateConfig(t)
	journal := filepath.Join(dir, "plans.db")
	ids := recordBuilds(t, shop, journal, "Order", "Customer", "Order")

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--journal", journal)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	var result HistoryResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, journal, result.Journal)
	require.Len(t, result.Builds, 3)
	for i, b := range result.Builds {
		assert.Equal(t, ids[i], b.ID)
		assert.Empty(t, b.PlanText, "listing omits rendered plans")
		assert.Empty(t, b.PlanView)
	}
	assert.Equal(t, "Customer", result.Builds[1].Root)
	assert.Equal(t, result.Builds[0].Signature, result.Builds[2].Signature,
		"same root and options give the same signature")
}

func TestHistory_Filters(t *testing.T) {
	shop := mappingsDir(t, "shop")
	dir := isolateConfig(t)
	journal := filepath.Join(dir, "plans.db")
	ids := recordBuilds(t, shop, journal, "Order", "Customer", "Order")

	list := func(args ...string) []string {
		t.Helper()
		out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}),
			append([]string{"--journal", journal}, args...)...)
		require.NoError(t, err)
		_, data := decodeResponse(t, out)
		var result HistoryResult
		require.NoError(t, json.Unmarshal(data, &result))
		var got []string
		for _, b := range result.Builds {
			got = append(got, b.ID)
		}
		return got
	}

	assert.Equal(t, []string{ids[0], ids[2]}, list("--root", "Order"))
	assert.Equal(t, []string{ids[1], ids[2]}, list("--limit", "2"))
	assert.Equal(t, ids, list("--limit", "0"))
	assert.Empty(t, list("--signature", "0000"))
}

func TestHistory_Text(t *testing.T) {
	shop := mappingsDir(t, "shop")
	dir := isolateConfig(t)
	journal := filepath.Join(dir, "plans.db")
	ids := recordBuilds(t, shop, journal, "Order")

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--journal", journal)
	require.NoError(t, err)
	assert.Regexp(t, `^ID\s+ROOT\s+SPACES\s+SIGNATURE\s+RECORDED\n`, out)
	assert.Regexp(t, ids[0]+`\s+Order\s+5\s+[0-9a-f]{12}\s+\d{4}-`, out)
}

func TestHistory_EmptyResult(t *testing.T) {
	shop := mappingsDir(t, "shop")
	dir := isolateConfig(t)
	journal := filepath.Join(dir, "plans.db")
	recordBuilds(t, shop, journal, "Order")

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--journal", journal, "--root", "Product")
	require.NoError(t, err)
	assert.Equal(t, "No builds recorded.\n", out)
}

func TestHistory_Errors(t *testing.T) {
	isolateConfig(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing journal", []string{"--journal", "missing.db"}, ErrCodeJournal},
		{"default journal missing", nil, ErrCodeJournal},
		{"negative limit", []string{"--limit", "-1"}, ErrCodeInvalidFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestShortSignature(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortSignature("0123456789abcdef"))
	assert.Equal(t, "abc", shortSignature("abc"))
}
