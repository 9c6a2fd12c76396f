package returns

import (
	"context"
	"strconv"
	"strings"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/core/tx"
	"spareflow/internal/domain"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
	"spareflow/pkg/logger"
)

const direction = request.DirectionReturn

// historyLimit bounds the journal entries returned with details.
const historyLimit = 50

// Deps are the collaborators of the return lifecycle.
type Deps struct {
	TxManager tx.Manager
	Requests  *request.Store
	Spares    *catalog.SpareCatalog
	Directory *catalog.Directory
	Inventory *inventory.Service
	Ledger    *movement.Ledger
	Approvals *approval.Trail
}

// Service is the return lifecycle manager.
type Service struct {
	txManager tx.Manager
	requests  *request.Store
	spares    *catalog.SpareCatalog
	directory *catalog.Directory
	inventory *inventory.Service
	ledger    *movement.Ledger
	approvals *approval.Trail
}

// NewService creates the return lifecycle manager.
func NewService(d Deps) *Service {
	return &Service{
		txManager: d.TxManager,
		requests:  d.Requests,
		spares:    d.Spares,
		directory: d.Directory,
		inventory: d.Inventory,
		ledger:    d.Ledger,
		approvals: d.Approvals,
	}
}

// Create opens a pending return from a technician to its home service center.
func (s *Service) Create(ctx context.Context, in CreateInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionCreate, "")
	defer func() { done(err) }()

	if err := validateLines(in.TechnicianID, in.Items); err != nil {
		return nil, err
	}
	if in.CallID != nil && *in.CallID <= 0 {
		return nil, apperror.NewValidation("callId must be positive")
	}
	if _, err := s.spares.Require(ctx, spareIDs(in.Items)); err != nil {
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
		Items:       toItems(in.Items),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.requests.Create(ctx, r, actor)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "return request created",
		"request_id", r.ID.String(),
		"request_no", r.RequestNo,
		"technician_id", in.TechnicianID,
		"service_center_id", serviceCenterID,
		"items", len(r.Items),
	)
	return r, nil
}

// Update replaces the offered lines while the return is still pending.
func (s *Service) Update(ctx context.Context, requestID id.ID, in UpdateInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionUpdate, requestID.String())
	defer func() { done(err) }()

	if err := validateLines(in.TechnicianID, in.Items); err != nil {
		return nil, err
	}
	if _, err := s.spares.Require(ctx, spareIDs(in.Items)); err != nil {
		return nil, err
	}
	actor := in.UpdatedBy
	if actor == "" {
		actor = strconv.FormatInt(in.TechnicianID, 10)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.requests.Lock(ctx, requestID, direction)
		if err != nil {
			return err
		}
		if locked.Source.ID != in.TechnicianID {
			return apperror.NewForbidden("only the returning technician may update the return").
				WithDetail("technician_id", in.TechnicianID)
		}
		if err := request.Check(locked, request.TransitionUpdate); err != nil {
			return err
		}
		before := locked.Snapshot()

		if err := s.requests.ReplaceItems(ctx, locked, toItems(in.Items)); err != nil {
			return err
		}
		if err := s.requests.Transition(ctx, locked, request.TransitionUpdate, request.StatusPending, actor, in.Reason, before); err != nil {
			return err
		}
		r = locked
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return r, nil
}

// Receive records the provisional counts of a physically arrived return.
// Pools and the movement ledger are not touched.
func (s *Service) Receive(ctx context.Context, requestID id.ID, in ReceiveInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionReceive, requestID.String())
	defer func() { done(err) }()

	if err := requireServiceCenter(in.ServiceCenterID); err != nil {
		return nil, err
	}
	if err := requireActor(in.ReceivedBy, "receivedBy"); err != nil {
		return nil, err
	}
	counts, order, err := collectReceived(in.Items)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.lockAuthorized(ctx, requestID, in.ServiceCenterID, request.TransitionReceive)
		if err != nil {
			return err
		}
		before := locked.Snapshot()

		if err := checkCounts(locked, counts, order); err != nil {
			return err
		}
		var changed []request.Item
		for i := range locked.Items {
			it := &locked.Items[i]
			split, ok := counts[it.ID]
			if !ok {
				continue
			}
			it.Received = &split
			changed = append(changed, *it)
		}
		if err := s.requests.SaveItems(ctx, changed); err != nil {
			return err
		}

		if err := s.requests.Transition(ctx, locked, request.TransitionReceive, request.StatusReceived, in.ReceivedBy, in.Notes, before); err != nil {
			return err
		}
		r = locked
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "return receipt rolled back", "request_id", requestID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}
	return r, nil
}

// Verify accepts the return. In one transaction it writes the verified split
// of every item, one completed technician to service center movement with its
// goods lines, the pool transfers, one approval and the verified status.
// Items not listed are verified as zero.
func (s *Service) Verify(ctx context.Context, requestID id.ID, in VerifyInput) (res *VerifyResult, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionVerify, requestID.String())
	defer func() { done(err) }()

	if err := requireServiceCenter(in.ServiceCenterID); err != nil {
		return nil, err
	}
	if err := requireActor(in.VerifiedBy, "verifiedBy"); err != nil {
		return nil, err
	}
	counts, notes, order, err := collectVerified(in.Items)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.lockAuthorized(ctx, requestID, in.ServiceCenterID, request.TransitionVerify)
		if err != nil {
			return err
		}
		before := r.Snapshot()

		if err := checkCounts(r, counts, order); err != nil {
			return err
		}

		var (
			total entity.Split
			lines []movement.Line
		)
		for i := range r.Items {
			it := &r.Items[i]
			split := counts[it.ID]
			if err := it.Decide(split, ""); err != nil {
				return err
			}
			if n, ok := notes[it.ID]; ok {
				it.ConditionNotes = n
			}
			total = total.Add(split)
			if !split.IsZero() {
				lines = append(lines, movement.Line{RequestItemID: it.ID, SpareID: it.SpareID, Quantity: split})
			}
		}
		if total.IsZero() {
			return apperror.NewValidation("verification must accept at least one unit")
		}
		if err := s.requests.SaveItems(ctx, r.Items); err != nil {
			return err
		}

		m, err := s.ledger.Record(ctx, movement.Draft{
			Type:          movement.TypeReturnIn,
			ReferenceType: direction.EntityType(),
			ReferenceID:   r.ID,
			ReferenceNo:   r.RequestNo,
			Source:        r.Source,
			Destination:   r.Destination,
			Status:        movement.StatusCompleted,
			CreatedBy:     in.VerifiedBy,
			Lines:         lines,
		})
		if err != nil {
			return err
		}

		transfers := make([]inventory.TransferInput, 0, len(lines))
		for spareID, qty := range m.Totals() {
			transfers = append(transfers, inventory.TransferInput{
				SpareID:  spareID,
				From:     m.Source,
				To:       m.Destination,
				Quantity: qty,
			})
		}
		if err := s.inventory.TransferAll(ctx, transfers); err != nil {
			return err
		}

		if _, err := s.approvals.Record(ctx, approval.RecordInput{
			EntityType: direction.EntityType(),
			EntityID:   r.ID,
			ApproverID: in.VerifiedBy,
			Status:     approval.StatusApproved,
			Remarks:    in.Remarks,
		}); err != nil {
			return err
		}

		if err := s.requests.Transition(ctx, r, request.TransitionVerify, request.StatusVerified, in.VerifiedBy, in.Remarks, before); err != nil {
			return err
		}

		res = &VerifyResult{Request: r, Movement: m, TotalQtyReturned: m.TotalQty}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "return verification rolled back", "request_id", requestID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "return verified",
		"request_id", res.Request.ID.String(),
		"movement_id", res.Movement.ID.String(),
		"total_qty", res.TotalQtyReturned,
	)
	return res, nil
}

// Reject refuses a pending or received return. Nothing moves.
func (s *Service) Reject(ctx context.Context, requestID id.ID, in RejectInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionReject, requestID.String())
	defer func() { done(err) }()

	if err := requireServiceCenter(in.ServiceCenterID); err != nil {
		return nil, err
	}
	if err := requireActor(in.RejectedBy, "rejectedBy"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperror.NewValidation("reason is required")
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

		remarks := in.Remarks
		if strings.TrimSpace(remarks) == "" {
			remarks = in.Reason
		}
		if _, err := s.approvals.Record(ctx, approval.RecordInput{
			EntityType: direction.EntityType(),
			EntityID:   locked.ID,
			ApproverID: in.RejectedBy,
			Status:     approval.StatusRejected,
			Remarks:    remarks,
		}); err != nil {
			return err
		}

		if err := s.requests.Transition(ctx, locked, request.TransitionReject, request.StatusRejected, in.RejectedBy, in.Reason, before); err != nil {
			return err
		}
		r = locked
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "return rejection rolled back", "request_id", requestID.String(), "error", err)
		return nil, apperror.Wrap(err)
	}
	return r, nil
}

// Reopen flags a return for manual follow-up. Ledger effects of an earlier
// verification stay in place.
func (s *Service) Reopen(ctx context.Context, requestID id.ID, in ReopenInput) (r *request.Request, err error) {
	ctx, done := s.requests.Track(ctx, direction, request.TransitionReopen, requestID.String())
	defer func() { done(err) }()

	if err := requireActor(in.ReopenedBy, "reopenedBy"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperror.NewValidation("reason is required")
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.requests.Lock(ctx, requestID, direction)
		if err != nil {
			return err
		}
		before := locked.Snapshot()
		if err := s.requests.Transition(ctx, locked, request.TransitionReopen, request.StatusReopened, in.ReopenedBy, in.Reason, before); err != nil {
			return err
		}
		r = locked
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return r, nil
}

// Get returns a return with its summary, movements, decisions and journal.
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
	history, err := s.requests.History(ctx, r, historyLimit)
	if err != nil {
		return nil, err
	}
	return &Details{
		Request:   r,
		Summary:   r.Summarize(),
		Movements: movements,
		Approvals: approvals,
		History:   history,
	}, nil
}

// List returns a page of returns.
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
		return nil, apperror.NewForbidden("service center is not the destination of the return").
			WithDetail("service_center_id", serviceCenterID)
	}
	if err := request.Check(r, t); err != nil {
		return nil, err
	}
	return r, nil
}

func collectReceived(items []ReceivedItem) (map[id.ID]entity.Split, []id.ID, error) {
	counts := make(map[id.ID]entity.Split, len(items))
	order := make([]id.ID, 0, len(items))
	for _, it := range items {
		if _, dup := counts[it.ItemID]; dup {
			return nil, nil, apperror.NewValidation("item listed more than once").WithDetail("item_id", it.ItemID)
		}
		counts[it.ItemID] = entity.Split{Good: it.ReceivedGoodQty, Defective: it.ReceivedDefectiveQty}
		order = append(order, it.ItemID)
	}
	return counts, order, nil
}

func collectVerified(items []VerifiedItem) (map[id.ID]entity.Split, map[id.ID]string, []id.ID, error) {
	counts := make(map[id.ID]entity.Split, len(items))
	notes := make(map[id.ID]string)
	order := make([]id.ID, 0, len(items))
	for _, it := range items {
		if _, dup := counts[it.ItemID]; dup {
			return nil, nil, nil, apperror.NewValidation("item listed more than once").WithDetail("item_id", it.ItemID)
		}
		counts[it.ItemID] = entity.Split{Good: it.VerifiedGoodQty, Defective: it.VerifiedDefectiveQty}
		if n := strings.TrimSpace(it.ConditionNotes); n != "" {
			notes[it.ItemID] = n
		}
		order = append(order, it.ItemID)
	}
	return counts, notes, order, nil
}
