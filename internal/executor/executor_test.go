package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-runner/internal/executor"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    executor.Policy
		wantErr bool
	}{
		{input: "run", want: executor.PolicyRun},
		{input: "unit", want: executor.PolicyUnit},
		{input: "", wantErr: true},
		{input: "RUN", wantErr: true},
		{input: "batch", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := executor.ParsePolicy(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, executor.ErrUnknownPolicy)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "starting", executor.StatusStarting)
	assert.Equal(t, "completed", executor.StatusCompleted)
	assert.Equal(t, "failed", executor.StatusFailed)
	assert.Equal(t, "skipped", executor.StatusSkipped)
	assert.Equal(t, "pending", executor.StatusPending)
}

func TestErrors_sentinel(t *testing.T) {
	t.Parallel()

	assert.EqualError(t, executor.ErrExecutionFailed, "migration execution failed")
	assert.EqualError(t, executor.ErrUnknownPolicy, "unknown commit policy")
}
