package issue_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/core/security"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/domaintest"
	"spareflow/internal/domain/issue"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
)

func newService(t *testing.T, policy security.ApprovalPolicy) (*issue.Service, *domaintest.Env) {
	env := domaintest.New(t)
	svc := issue.NewService(issue.Deps{
		TxManager: env.Store,
		Requests:  env.Requests,
		Spares:    env.Spares,
		Directory: env.Directory,
		Inventory: env.Inventory,
		Ledger:    env.Ledger,
		Approvals: env.Approvals,
		Policy:    policy,
	})
	return svc, env
}

func createTwoItemRequest(t *testing.T, svc *issue.Service) *request.Request {
	t.Helper()
	r, err := svc.Create(context.Background(), issue.CreateInput{
		TechnicianID: domaintest.TechnicianID,
		Items: []issue.ItemInput{
			{SpareID: domaintest.SpareFilter, Qty: 4},
			{SpareID: domaintest.SparePump, Qty: 2},
		},
		Reason: "stock replenishment",
	})
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	svc, _ := newService(t, nil)

	r := createTwoItemRequest(t, svc)

	assert.Equal(t, request.StatusPending, r.Status)
	assert.Equal(t, entity.Technician(domaintest.TechnicianID), r.Source)
	assert.Equal(t, entity.ServiceCenter(domaintest.ServiceCenterID), r.Destination)
	assert.Regexp(t, `^SR-\d{4}-00001$`, r.RequestNo)
	assert.Len(t, r.Items, 2)
	for _, it := range r.Items {
		assert.Nil(t, it.ApprovedQty)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input issue.CreateInput
		check func(error) bool
	}{
		{"empty items", issue.CreateInput{TechnicianID: domaintest.TechnicianID}, apperror.IsValidation},
		{"zero qty", issue.CreateInput{
			TechnicianID: domaintest.TechnicianID,
			Items:        []issue.ItemInput{{SpareID: domaintest.SpareFilter, Qty: 0}},
		}, apperror.IsValidation},
		{"duplicate spare", issue.CreateInput{
			TechnicianID: domaintest.TechnicianID,
			Items: []issue.ItemInput{
				{SpareID: domaintest.SpareFilter, Qty: 1},
				{SpareID: domaintest.SpareFilter, Qty: 2},
			},
		}, apperror.IsValidation},
		{"unknown spare", issue.CreateInput{
			TechnicianID: domaintest.TechnicianID,
			Items:        []issue.ItemInput{{SpareID: 999, Qty: 1}},
		}, apperror.IsValidation},
		{"unknown technician", issue.CreateInput{
			TechnicianID: 404,
			Items:        []issue.ItemInput{{SpareID: domaintest.SpareFilter, Qty: 1}},
		}, apperror.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}

	list, err := svc.List(ctx, request.Query{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestApprove_PartialRejection(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	r := createTwoItemRequest(t, svc)

	res, err := svc.Approve(ctx, r.ID, issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 3},
			{ItemID: r.Items[1].ID, IsRejected: true, RejectionReason: "discontinued"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, request.StatusApproved, res.Request.Status)
	require.Len(t, res.Movements, 1)
	m := res.Movements[0]
	assert.Equal(t, movement.TypeIssueOut, m.Type)
	assert.Equal(t, movement.StatusPending, m.Status)
	assert.Equal(t, int64(3), m.TotalQty)
	assert.Equal(t, entity.ServiceCenter(domaintest.ServiceCenterID), m.Source)
	assert.Equal(t, entity.Technician(domaintest.TechnicianID), m.Destination)
	require.Len(t, m.Items, 1)
	assert.Equal(t, entity.ConditionGood, m.Items[0].Condition)
	assert.Equal(t, domaintest.SpareFilter, m.Items[0].SpareID)

	approvals, err := env.Approvals.ForEntity(ctx, approval.EntitySpareRequest, r.ID)
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	statuses := []approval.Status{approvals[0].Status, approvals[1].Status}
	assert.ElementsMatch(t, []approval.Status{approval.StatusApproved, approval.StatusRejected}, statuses)

	details, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *details.Request.Items[0].ApprovedQty)
	assert.Equal(t, int64(0), *details.Request.Items[1].ApprovedQty)
	assert.Equal(t, "discontinued", details.Request.Items[1].RejectionReason)
	assert.Len(t, details.Movements, 1)

	assert.True(t, env.Pool(t, domaintest.SpareFilter, entity.Technician(domaintest.TechnicianID)).IsZero(),
		"approval alone moves no stock")
}

func TestApprove_AllRejectedRejectsHeader(t *testing.T) {
	svc, _ := newService(t, nil)
	r := createTwoItemRequest(t, svc)

	res, err := svc.Approve(context.Background(), r.ID, issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, IsRejected: true},
			{ItemID: r.Items[1].ID, IsRejected: true, ApprovedQty: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, res.Request.Status)
	assert.Empty(t, res.Movements)
}

func TestApprove_Validation(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	r := createTwoItemRequest(t, svc)
	before := env.Capture(t, r)

	tests := []struct {
		name      string
		decisions []issue.Decision
	}{
		{"missing item", []issue.Decision{{ItemID: r.Items[0].ID, ApprovedQty: 1}}},
		{"unknown item", []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 1},
			{ItemID: r.Items[1].ID, ApprovedQty: 1},
			{ItemID: id.New(), ApprovedQty: 1},
		}},
		{"duplicate decision", []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 1},
			{ItemID: r.Items[0].ID, ApprovedQty: 1},
		}},
		{"over requested", []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 5},
			{ItemID: r.Items[1].ID, ApprovedQty: 1},
		}},
		{"zero approved", []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 0},
			{ItemID: r.Items[1].ID, ApprovedQty: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Approve(ctx, r.ID, issue.ApproveInput{
				ApproverID:      "sc-manager",
				ServiceCenterID: domaintest.ServiceCenterID,
				Decisions:       tt.decisions,
			})
			assert.True(t, apperror.IsValidation(err), "got %v", err)
			assert.Equal(t, before, env.Capture(t, r))
		})
	}
}

func TestApprove_WrongServiceCenterIsForbidden(t *testing.T) {
	svc, env := newService(t, nil)
	r := createTwoItemRequest(t, svc)
	before := env.Capture(t, r)

	_, err := svc.Approve(context.Background(), r.ID, issue.ApproveInput{
		ApproverID:      "intruder",
		ServiceCenterID: domaintest.OtherServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 1},
			{ItemID: r.Items[1].ID, ApprovedQty: 1},
		},
	})
	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, before, env.Capture(t, r))
}

func TestApprove_TwiceConflicts(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	r := createTwoItemRequest(t, svc)

	in := issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 4},
			{ItemID: r.Items[1].ID, ApprovedQty: 2},
		},
	}
	_, err := svc.Approve(ctx, r.ID, in)
	require.NoError(t, err)
	after := env.Capture(t, r)

	_, err = svc.Approve(ctx, r.ID, in)
	assert.True(t, apperror.IsStateConflict(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, request.StatusApproved, appErr.Details["current_status"])

	_, err = svc.Reject(ctx, r.ID, issue.RejectInput{
		ApproverID: "sc-manager", ServiceCenterID: domaintest.ServiceCenterID, Reason: "late",
	})
	assert.True(t, apperror.IsStateConflict(err))
	assert.Equal(t, after, env.Capture(t, r))
}

func TestApprove_ConcurrentOnlyOneWins(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	r := createTwoItemRequest(t, svc)

	in := issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 4},
			{ItemID: r.Items[1].ID, ApprovedQty: 2},
		},
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, r.ID, in)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperror.IsStateConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded)

	snap := env.Capture(t, r)
	assert.Equal(t, 2, snap.Movements)
	assert.Equal(t, 2, snap.Approvals)
}

func TestReject(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	r := createTwoItemRequest(t, svc)

	_, err := svc.Reject(ctx, r.ID, issue.RejectInput{ApproverID: "sc-manager", ServiceCenterID: domaintest.ServiceCenterID})
	assert.True(t, apperror.IsValidation(err), "reason is required")

	rejected, err := svc.Reject(ctx, r.ID, issue.RejectInput{
		ApproverID: "sc-manager", ServiceCenterID: domaintest.ServiceCenterID, Reason: "out of budget",
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, rejected.Status)
	for _, it := range rejected.Items {
		assert.Equal(t, int64(0), *it.ApprovedQty)
		assert.Equal(t, "out of budget", it.RejectionReason)
	}
	assert.Contains(t, rejected.Notes, "reject by sc-manager: out of budget")

	approvals, err := env.Approvals.ForEntity(ctx, approval.EntitySpareRequest, r.ID)
	require.NoError(t, err)
	assert.Len(t, approvals, 2)
	for _, a := range approvals {
		assert.Equal(t, approval.StatusRejected, a.Status)
	}
	assert.Zero(t, env.Capture(t, r).Movements)
}

func TestApprove_PolicyRejectsDecision(t *testing.T) {
	policy, err := security.CompileRule("approved_qty <= 2")
	require.NoError(t, err)
	svc, env := newService(t, policy)
	r := createTwoItemRequest(t, svc)
	before := env.Capture(t, r)

	_, err = svc.Approve(context.Background(), r.ID, issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 4},
			{ItemID: r.Items[1].ID, ApprovedQty: 2},
		},
	})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, before, env.Capture(t, r))
}

func TestCompleteMovement_TransfersStock(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	sc := entity.ServiceCenter(domaintest.ServiceCenterID)
	tech := entity.Technician(domaintest.TechnicianID)
	env.Seed(t, domaintest.SpareFilter, sc, entity.Split{Good: 10})

	r := createTwoItemRequest(t, svc)
	res, err := svc.Approve(ctx, r.ID, issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 3},
			{ItemID: r.Items[1].ID, IsRejected: true},
		},
	})
	require.NoError(t, err)
	movementID := res.Movements[0].ID

	_, err = svc.CompleteMovement(ctx, movementID, issue.CompleteInput{
		ServiceCenterID: domaintest.OtherServiceCenterID, CompletedBy: "intruder",
	})
	assert.True(t, apperror.IsForbidden(err))

	m, err := svc.CompleteMovement(ctx, movementID, issue.CompleteInput{
		ServiceCenterID: domaintest.ServiceCenterID, CompletedBy: "dispatcher",
	})
	require.NoError(t, err)
	assert.Equal(t, movement.StatusCompleted, m.Status)
	require.NotNil(t, m.CompletedAt)

	assert.Equal(t, entity.Split{Good: 7}, env.Pool(t, domaintest.SpareFilter, sc))
	assert.Equal(t, entity.Split{Good: 3}, env.Pool(t, domaintest.SpareFilter, tech))

	_, err = svc.CompleteMovement(ctx, movementID, issue.CompleteInput{
		ServiceCenterID: domaintest.ServiceCenterID, CompletedBy: "dispatcher",
	})
	assert.True(t, apperror.IsStateConflict(err))
	assert.Equal(t, entity.Split{Good: 3}, env.Pool(t, domaintest.SpareFilter, tech))
}

func TestCompleteMovement_InsufficientStockRollsBack(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()
	sc := entity.ServiceCenter(domaintest.ServiceCenterID)
	env.Seed(t, domaintest.SpareFilter, sc, entity.Split{Good: 2})

	r := createTwoItemRequest(t, svc)
	res, err := svc.Approve(ctx, r.ID, issue.ApproveInput{
		ApproverID:      "sc-manager",
		ServiceCenterID: domaintest.ServiceCenterID,
		Decisions: []issue.Decision{
			{ItemID: r.Items[0].ID, ApprovedQty: 3},
			{ItemID: r.Items[1].ID, IsRejected: true},
		},
	})
	require.NoError(t, err)

	_, err = svc.CompleteMovement(ctx, res.Movements[0].ID, issue.CompleteInput{
		ServiceCenterID: domaintest.ServiceCenterID, CompletedBy: "dispatcher",
	})
	require.True(t, apperror.IsInsufficientStock(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(2), appErr.Details["available_good"])

	m, err := env.Ledger.Get(ctx, res.Movements[0].ID)
	require.NoError(t, err)
	assert.Equal(t, movement.StatusPending, m.Status)
	assert.Equal(t, entity.Split{Good: 2}, env.Pool(t, domaintest.SpareFilter, sc))
}

func TestList(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	createTwoItemRequest(t, svc)
	createTwoItemRequest(t, svc)

	list, err := svc.List(ctx, request.Query{ServiceCenterID: domaintest.ServiceCenterID, IncludeItems: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
	require.Len(t, list.Items, 2)
	assert.Len(t, list.Items[0].Items, 2)
	assert.Equal(t, request.StatusPending, list.Items[0].Status)

	_, err = svc.List(ctx, request.Query{Status: "lost"})
	assert.True(t, apperror.IsValidation(err))
}

func TestGet_NotFound(t *testing.T) {
	svc, env := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	ret := &request.Request{
		Direction:   request.DirectionReturn,
		Source:      entity.Technician(domaintest.TechnicianID),
		Destination: entity.ServiceCenter(domaintest.ServiceCenterID),
		Items:       []request.Item{{SpareID: domaintest.SpareFilter, RequestedQty: 1}},
	}
	require.NoError(t, env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		return env.Requests.Create(ctx, ret, "7")
	}))

	_, err = svc.Get(ctx, ret.ID)
	assert.True(t, apperror.IsNotFound(err), "a return is not visible as an issue request")
}
