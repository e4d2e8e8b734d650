package tofu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBreakdown(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		valid   bool
		wantErr bool
	}{
		{name: "top level total", in: `{"totalMonthlyCost": "40.1"}`, want: "40.1", valid: true},
		{name: "zero is a cost", in: `{"totalMonthlyCost": "0"}`, want: "0", valid: true},
		{name: "null total", in: `{"totalMonthlyCost": null}`},
		{name: "absent total", in: `{"projects": []}`},
		{
			name:  "project totals summed",
			in:    `{"projects": [{"name": "a", "breakdown": {"totalMonthlyCost": "1.5"}}, {"name": "b", "breakdown": {"totalMonthlyCost": "2.25"}}]}`,
			want:  "3.75",
			valid: true,
		},
		{name: "not a number", in: `{"totalMonthlyCost": "n/a"}`, wantErr: true},
		{name: "not json", in: `cost: 1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBreakdown([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestParsePlan(t *testing.T) {
	changes, err := ParsePlan([]byte(`{"resource_changes": [{"address": "a"}]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"address": "a"}]`, string(changes))

	changes, err = ParsePlan([]byte(`{"format_version": "1.2"}`))
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = ParsePlan([]byte(`[`))
	assert.Error(t, err)
}

func TestParseOutputs(t *testing.T) {
	got, err := ParseOutputs([]byte(`{
  "public_ip": {"sensitive": false, "type": "string", "value": "34.1.2.3"},
  "ports": {"sensitive": false, "type": ["list", "number"], "value": [80, 443]},
  "db_password": {"sensitive": true, "type": "string", "value": "hunter2"},
  "lb_ip": {"sensitive": false, "type": "string", "value": null}
}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"public_ip":   "34.1.2.3",
		"ports":       "[80,443]",
		"db_password": SensitiveValue,
	}, got)

	got, err = ParseOutputs([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseOutputs([]byte(`["x"]`))
	assert.Error(t, err)
}
