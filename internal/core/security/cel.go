package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"spareflow/internal/core/apperror"
)

// RulePolicy evaluates a CEL boolean expression per decision. Variables:
// spare_id, requested_qty, approved_qty, service_center_id, technician_id (all int).
//
// Example: approved_qty <= 20 || service_center_id == 1
type RulePolicy struct {
	expr    string
	program cel.Program
}

// CompileRule compiles expr once. An empty expression yields AllowAll.
func CompileRule(expr string) (ApprovalPolicy, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return AllowAll{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("spare_id", cel.IntType),
		cel.Variable("requested_qty", cel.IntType),
		cel.Variable("approved_qty", cel.IntType),
		cel.Variable("service_center_id", cel.IntType),
		cel.Variable("technician_id", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile approval rule: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("approval rule must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program approval rule: %w", err)
	}

	return &RulePolicy{expr: expr, program: program}, nil
}

// CheckDecision implements ApprovalPolicy.
func (p *RulePolicy) CheckDecision(ctx context.Context, facts DecisionFacts) error {
	out, _, err := p.program.ContextEval(ctx, map[string]any{
		"spare_id":          facts.SpareID,
		"requested_qty":     facts.RequestedQty,
		"approved_qty":      facts.ApprovedQty,
		"service_center_id": facts.ServiceCenterID,
		"technician_id":     facts.TechnicianID,
	})
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("evaluate approval rule: %w", err))
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return apperror.NewInternal(fmt.Errorf("approval rule returned %T", out.Value()))
	}
	if !allowed {
		return ruleRejected(p.expr, facts)
	}
	return nil
}
