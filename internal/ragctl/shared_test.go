package ragctl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragstack/ragctl/internal/deploy"
)

func TestExitCode(t *testing.T) {
	smokeFailure := errors.New("api returned 503")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "plain failure", err: errors.New("cluster unreachable"), want: ExitFailure},
		{name: "rolled back is a normal failure", err: &deploy.RolledBackError{Trigger: smokeFailure}, want: ExitFailure},
		{
			name: "double fault gets its own code",
			err:  &deploy.DoubleFaultError{Trigger: smokeFailure, Cause: errors.New("no deployment record")},
			want: ExitDoubleFault,
		},
		{
			name: "wrapped double fault still detected",
			err:  fmt.Errorf("deploy: %w", &deploy.DoubleFaultError{Trigger: smokeFailure, Cause: errors.New("rollout timeout")}),
			want: ExitDoubleFault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
