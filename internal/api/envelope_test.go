package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transformToMap(t *testing.T, status string, v any) map[string]any {
	t.Helper()
	result, err := EnvelopeTransformer(nil, status, v)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	out := transformToMap(t, "200", map[string]string{"id": "sess-1"})

	assert.Equal(t, float64(1), out["v"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"id": "sess-1"}, out["data"])
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_NilData(t *testing.T) {
	out := transformToMap(t, "204", nil)

	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_Error(t *testing.T) {
	out := transformToMap(t, "422", &APIError{
		status:  422,
		Code:    "EMPTY_INPUT",
		Message: "メモを1つ以上追加してください",
	})

	assert.Equal(t, float64(1), out["v"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "EMPTY_INPUT", out["code"])
	assert.Equal(t, "メモを1つ以上追加してください", out["error"])
}

func TestEnvelopeTransformer_VersionFieldName(t *testing.T) {
	out := transformToMap(t, "200", nil)

	assert.Contains(t, out, "v")
	assert.NotContains(t, out, "version")
}

func TestStatusToCode(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, "VALIDATION"},
		{422, "VALIDATION"},
		{404, "NOT_FOUND"},
		{413, "TOO_LARGE"},
		{429, "TOO_MANY_REQUESTS"},
		{500, "INTERNAL"},
		{503, "INTERNAL"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusToCode(tt.status), "status %d", tt.status)
	}
}
