package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
)

func TestCompileRule_Empty(t *testing.T) {
	p, err := CompileRule("   ")
	require.NoError(t, err)
	assert.IsType(t, AllowAll{}, p)
	assert.NoError(t, p.CheckDecision(context.Background(), DecisionFacts{ApprovedQty: 1000}))
}

func TestCompileRule_Evaluates(t *testing.T) {
	p, err := CompileRule("approved_qty <= 5 || service_center_id == 1")
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		facts   DecisionFacts
		allowed bool
	}{
		{"within limit", DecisionFacts{ApprovedQty: 5, ServiceCenterID: 2}, true},
		{"over limit", DecisionFacts{ApprovedQty: 6, ServiceCenterID: 2}, false},
		{"exempt center", DecisionFacts{ApprovedQty: 60, ServiceCenterID: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CheckDecision(ctx, tt.facts)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestCompileRule_Invalid(t *testing.T) {
	_, err := CompileRule("approved_qty <=")
	assert.Error(t, err)

	_, err = CompileRule("approved_qty + 1")
	assert.Error(t, err)

	_, err = CompileRule("unknown_var > 1")
	assert.Error(t, err)
}
