package catalog

import (
	"context"

	"spareflow/internal/core/apperror"
)

// Technician is a directory entry. Only the home service center matters here.
type Technician struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	ServiceCenterID int64  `db:"service_center_id" json:"serviceCenterId"`
}

// TechnicianRepository reads the technician directory.
// It returns an apperror NotFound for unknown technicians.
type TechnicianRepository interface {
	GetTechnician(ctx context.Context, technicianID int64) (Technician, error)
}

// Directory answers technician to service-center questions.
type Directory struct {
	repo TechnicianRepository
}

// NewDirectory creates a technician directory.
func NewDirectory(repo TechnicianRepository) *Directory {
	return &Directory{repo: repo}
}

// HomeServiceCenter returns the service center a technician belongs to.
func (d *Directory) HomeServiceCenter(ctx context.Context, technicianID int64) (int64, error) {
	if technicianID <= 0 {
		return 0, apperror.NewValidation("technicianId must be positive")
	}
	tech, err := d.repo.GetTechnician(ctx, technicianID)
	if err != nil {
		return 0, apperror.Wrap(err)
	}
	if tech.ServiceCenterID <= 0 {
		return 0, apperror.NewValidation("technician has no home service center").
			WithDetail("technician_id", technicianID)
	}
	return tech.ServiceCenterID, nil
}
