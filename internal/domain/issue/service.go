package issue

import (
	"context"
	"strconv"
	"strings"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/core/security"
	"spareflow/internal/core/tx"
	"spareflow/internal/domain"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/audit"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
	"spareflow/pkg/logger"
)

const direction = request.DirectionOutboundIssue

// Deps are the collaborators of the outbound lifecycle.
type Deps struct {
	TxManager tx.Manager
	Requests  *request.Store
	Spares    *catalog.SpareCatalog
	Directory *catalog.Directory
	Inventory *inventory.Service
	Ledger    *movement.Ledger
	Approvals *approval.Trail
	Policy    security.ApprovalPolicy
}

// Service is the outbound request lifecycle manager.
type Service struct {
	txManager tx.Manager
	requests  *request.Store
	spares    *catalog.SpareCatalog
	directory *catalog.Directory
	inventory *inventory.Service
	ledger    *movement.Ledger
	approvals *approval.Trail
	policy    security.ApprovalPolicy
}

// NewService creates the outbound lifecycle manager.
func NewService(d Deps) *Service {
	policy := d.Policy
	if policy == nil {
		policy = security.AllowAll{}
	}
	return &Service{
		txManager: d.TxManager,
		requests:  d.Requests,
		spares:    d.Spares,
		directory: d.Directory,
		inventory: d.Inventory,
		ledger:    d.Ledger,
		approvals: d.Approvals,
		policy:    policy,
	}
}

// Create opens a pending request from a technician to its home service center.
func (s *Service) Create(ctx context.Context, in CreateInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionCreate, "")
	defer func() { done(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	spareIDs := make([]int64, len(in.Items))
	for i, it := range in.Items {
		spareIDs[i] = it.SpareID
	}
	if _, err := s.spares.Require(ctx, spareIDs); err != nil {
		return nil, err
	}
	serviceCenterID, err := s.directory.HomeServiceCenter(ctx, in.TechnicianID)
	if err != nil {
		return nil, err
	}

	actor := in.CreatedBy
	if actor == "" {
		actor = strconv.FormatInt(in.TechnicianID, 10)
	}

	r = &request.Request{
		Direction:   direction,
		Reason:      strings.TrimSpace(in.Reason),
		Source:      entity.Technician(in.TechnicianID),
		Destination: entity.ServiceCenter(serviceCenterID),
		CallID:      in.CallID,
	}
	for _, it := range in.Items {
		r.Items = append(r.Items, request.Item{SpareID: it.SpareID, RequestedQty: it.Qty})
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.requests.Create(ctx, r, actor)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "issue request created",
		"request_id", r.ID.String(),
		"request_no", r.RequestNo,
		"technician_id", in.TechnicianID,
		"service_center_id", serviceCenterID,
		"items", len(r.Items),
	)
	return r, nil
}

// Approve writes one decision per item. Each approved item gets a pending
// movement from the service center to the technician; the header becomes
// approved when at least one item was approved and rejected otherwise.
func (s *Service) Approve(ctx context.Context, requestID id.ID, in ApproveInput) (res *ApproveResult, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionApprove, requestID.String())
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.lockAuthorized(ctx, requestID, in.ServiceCenterID, request.TransitionApprove)
		if err != nil {
			return err
		}
		before := r.Snapshot()

		decisions, err := matchDecisions(r, in.Decisions)
		if err != nil {
			return err
		}

		approvedAny := false
		for i := range r.Items {
			it := &r.Items[i]
			d := decisions[it.ID]
			if d.IsRejected {
				if err := it.Decide(entity.Split{}, d.RejectionReason); err != nil {
					return err
				}
				continue
			}
			if d.ApprovedQty < 1 || d.ApprovedQty > it.RequestedQty {
				return apperror.NewValidation("approvedQty must be between 1 and the requested quantity").
					WithDetail("item_id", it.ID).
					WithDetail("requested_qty", it.RequestedQty).
					WithDetail("approved_qty", d.ApprovedQty)
			}
			err := s.policy.CheckDecision(ctx, security.DecisionFacts{
				SpareID:         it.SpareID,
				RequestedQty:    it.RequestedQty,
				ApprovedQty:     d.ApprovedQty,
				ServiceCenterID: r.Destination.ID,
				TechnicianID:    r.Source.ID,
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					return appErr.WithDetail("item_id", it.ID)
				}
				return err
			}
			if err := it.Decide(entity.Split{Good: d.ApprovedQty}, ""); err != nil {
				return err
			}
			approvedAny = true
		}

		if err := s.requests.SaveItems(ctx, r.Items); err != nil {
			return err
		}

		var movements []movement.StockMovement
		for i := range r.Items {
			it := &r.Items[i]
			status := approval.StatusApproved
			remarks := in.Remarks
			if *it.ApprovedQty == 0 {
				status = approval.StatusRejected
				remarks = it.RejectionReason
			}
			itemID := it.ID
			if _, err := s.approvals.Record(ctx, approval.RecordInput{
				EntityType: direction.EntityType(),
				EntityID:   r.ID,
				ItemID:     &itemID,
				ApproverID: in.ApproverID,
				Status:     status,
				Remarks:    remarks,
			}); err != nil {
				return err
			}
			if status == approval.StatusRejected {
				continue
			}

			m, err := s.ledger.Record(ctx, movement.Draft{
				Type:          movement.TypeIssueOut,
				ReferenceType: direction.EntityType(),
				ReferenceID:   r.ID,
				ReferenceNo:   r.RequestNo,
				Source:        r.Destination,
				Destination:   r.Source,
				Status:        movement.StatusPending,
				CreatedBy:     in.ApproverID,
				Lines: []movement.Line{{
					RequestItemID: it.ID,
					SpareID:       it.SpareID,
					Quantity:      *it.Approved,
				}},
			})
			if err != nil {
				return err
			}
			movements = append(movements, *m)
		}

		to := request.StatusRejected
		if approvedAny {
			to = request.StatusApproved
		}
		if err := s.requests.Transition(ctx, r, request.TransitionApprove, to, in.ApproverID, in.Remarks, before); err != nil {
			return err
		}

		res = &ApproveResult{Request: r, Movements: movements}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "issue approval rolled back", "request_id", requestID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

// Reject rejects every item of a pending request. No movement is created.
func (s *Service) Reject(ctx context.Context, requestID id.ID, in RejectInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionReject, requestID.String())
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.lockAuthorized(ctx, requestID, in.ServiceCenterID, request.TransitionReject)
		if err != nil {
			return err
		}
		before := locked.Snapshot()

		for i := range locked.Items {
			if err := locked.Items[i].Decide(entity.Split{}, in.Reason); err != nil {
				return err
			}
		}
		if err := s.requests.SaveItems(ctx, locked.Items); err != nil {
			return err
		}

		for i := range locked.Items {
			itemID := locked.Items[i].ID
			if _, err := s.approvals.Record(ctx, approval.RecordInput{
				EntityType: direction.EntityType(),
				EntityID:   locked.ID,
				ItemID:     &itemID,
				ApproverID: in.ApproverID,
				Status:     approval.StatusRejected,
				Remarks:    in.Reason,
			}); err != nil {
				return err
			}
		}

		if err := s.requests.Transition(ctx, locked, request.TransitionReject, request.StatusRejected, in.ApproverID, in.Reason, before); err != nil {
			return err
		}
		r = locked
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "issue rejection rolled back", "request_id", requestID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}
	return r, nil
}

// CompleteMovement dispatches a pending issue movement: it flips the
// movement to completed and moves its goods from the service center pool to
// the technician pool in the same transaction.
func (s *Service) CompleteMovement(ctx context.Context, movementID id.ID, in CompleteInput) (m *movement.StockMovement, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionComplete, movementID.String())
	defer func() { done(err) }()

	if err := requireActor(in.CompletedBy, "completedBy", in.ServiceCenterID); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		pending, err := s.ledger.Lock(ctx, movementID)
		if err != nil {
			return err
		}
		if pending.Type != movement.TypeIssueOut {
			return apperror.NewNotFound("issue movement", movementID)
		}
		if pending.Source.ID != in.ServiceCenterID {
			return apperror.NewForbidden("only the issuing service center may complete the movement").
				WithDetail("service_center_id", in.ServiceCenterID)
		}
		if pending.Status != movement.StatusPending {
			return apperror.NewStateConflict("stock_movement", movementID, string(pending.Status), "complete")
		}

		completed, err := s.ledger.Complete(ctx, movementID)
		if err != nil {
			return err
		}

		transfers := make([]inventory.TransferInput, 0, len(completed.Items))
		for spareID, qty := range completed.Totals() {
			transfers = append(transfers, inventory.TransferInput{
				SpareID:  spareID,
				From:     completed.Source,
				To:       completed.Destination,
				Quantity: qty,
			})
		}
		if err := s.inventory.TransferAll(ctx, transfers); err != nil {
			return err
		}

		r, err := s.requests.Get(ctx, completed.ReferenceID, direction)
		if err != nil {
			return err
		}
		if err := s.requests.Record(ctx, r, audit.ActionComplete, in.CompletedBy, map[string]any{
			"movement_id": completed.ID.String(),
			"status":      map[string]any{"old": movement.StatusPending, "new": movement.StatusCompleted},
		}); err != nil {
			return err
		}

		m = completed
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "issue movement completion rolled back", "movement_id", movementID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "issue movement completed",
		"movement_id", m.ID.String(),
		"reference_no", m.ReferenceNo,
		"total_qty", m.TotalQty,
		"actor", in.CompletedBy,
	)
	return m, nil
}

// Details is the read view of an outbound request.
type Details struct {
	Request   *request.Request
	Summary   request.Summary
	Movements []movement.StockMovement
	Approvals []approval.Approval
}

// Get returns a request with its movements and decisions.
func (s *Service) Get(ctx context.Context, requestID id.ID) (*Details, error) {
	r, err := s.requests.Get(ctx, requestID, direction)
	if err != nil {
		return nil, err
	}
	movements, err := s.ledger.ForReference(ctx, direction.EntityType(), r.ID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals.ForEntity(ctx, direction.EntityType(), r.ID)
	if err != nil {
		return nil, err
	}
	return &Details{Request: r, Summary: r.Summarize(), Movements: movements, Approvals: approvals}, nil
}

// List returns a page of outbound requests.
func (s *Service) List(ctx context.Context, q request.Query) (domain.ListResult[request.Request], error) {
	q.Direction = direction
	return s.requests.List(ctx, q)
}

func (s *Service) lockAuthorized(ctx context.Context, requestID id.ID, serviceCenterID int64, t request.Transition) (*request.Request, error) {
	r, err := s.requests.Lock(ctx, requestID, direction)
	if err != nil {
		return nil, err
	}
	if r.Destination.ID != serviceCenterID {
		return nil, apperror.NewForbidden("service center is not the destination of the request").
			WithDetail("service_center_id", serviceCenterID)
	}
	if err := request.Check(r, t); err != nil {
		return nil, err
	}
	return r, nil
}

// matchDecisions requires exactly one decision for every item of r.
func matchDecisions(r *request.Request, decisions []Decision) (map[id.ID]Decision, error) {
	byItem := make(map[id.ID]Decision, len(decisions))
	for _, d := range decisions {
		if _, ok := r.Item(d.ItemID); !ok {
			return nil, apperror.NewValidation("decision for an item that does not belong to the request").
				WithDetail("item_id", d.ItemID)
		}
		if _, dup := byItem[d.ItemID]; dup {
			return nil, apperror.NewValidation("more than one decision for an item").
				WithDetail("item_id", d.ItemID)
		}
		if d.IsRejected {
			d.ApprovedQty = 0
		}
		byItem[d.ItemID] = d
	}

	var missing []string
	for _, it := range r.Items {
		if _, ok := byItem[it.ID]; !ok {
			missing = append(missing, it.ID.String())
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewValidation("every item needs a decision").
			WithDetail("missing_item_ids", missing)
	}
	return byItem, nil
}
