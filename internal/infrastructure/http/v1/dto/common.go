// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain"
	"spareflow/internal/domain/request"
)

const dateLayout = "2006-01-02"

// StatusResponse is returned by every transition endpoint.
type StatusResponse struct {
	RequestID string `json:"requestId"`
	RequestNo string `json:"requestNo,omitempty"`
	Status    string `json:"status"`
}

// FromRequest builds a StatusResponse.
func FromRequest(r *request.Request) StatusResponse {
	return StatusResponse{
		RequestID: r.ID.String(),
		RequestNo: r.RequestNo,
		Status:    r.Status,
	}
}

// ListQuery holds the query parameters of the list endpoints.
type ListQuery struct {
	ServiceCenterID int64  `form:"serviceCenterId"`
	TechnicianID    int64  `form:"technicianId"`
	Status          string `form:"status"`
	FromDate        string `form:"fromDate"`
	ToDate          string `form:"toDate"`
	Limit           int    `form:"limit"`
	Offset          int    `form:"offset"`
	IncludeItems    bool   `form:"includeItems"`
}

// ToQuery converts the parameters. Dates are RFC 3339 timestamps or plain
// dates; a plain toDate covers the whole day.
func (q ListQuery) ToQuery() (request.Query, error) {
	out := request.Query{
		ServiceCenterID: q.ServiceCenterID,
		TechnicianID:    q.TechnicianID,
		Status:          q.Status,
		Page:            domain.Page{Limit: q.Limit, Offset: q.Offset},
		IncludeItems:    q.IncludeItems,
	}

	if q.FromDate != "" {
		from, _, err := parseDate(q.FromDate)
		if err != nil {
			return out, apperror.NewValidation("invalid fromDate").WithDetail("value", q.FromDate)
		}
		out.FromDate = &from
	}
	if q.ToDate != "" {
		to, dateOnly, err := parseDate(q.ToDate)
		if err != nil {
			return out, apperror.NewValidation("invalid toDate").WithDetail("value", q.ToDate)
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		out.ToDate = &to
	}
	return out, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, s)
	return t, true, err
}

// ListResponse wraps a page of requests.
type ListResponse struct {
	Items      []request.Request `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// FromListResult builds a ListResponse.
func FromListResult(res domain.ListResult[request.Request]) ListResponse {
	items := res.Items
	if items == nil {
		items = []request.Request{}
	}
	return ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}
