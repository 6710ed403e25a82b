package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Placeholder defaults double as sentinels: a field holding its sentinel
// is treated as unset by the presence filters. Preserved as-is for wire
// compatibility with existing records.
const (
	SentinelName           = "Doctor"
	SentinelEmail          = "nodoc@gmail.com"
	SentinelPhone          = "0000000000"
	SentinelSpecialization = "General"
	SentinelAddress        = "No Address"
	SentinelWebsite        = "No Website"
)

type Doctor struct {
	ID             uuid.UUID `json:"_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Specialization string    `json:"specialization"`
	Address        string    `json:"address"`
	Website        string    `json:"website"`
	EmailSent      bool      `json:"email_sent"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Pagination struct {
	TotalDoctors int  `json:"totalDoctors"`
	TotalPages   int  `json:"totalPages"`
	CurrentPage  int  `json:"currentPage"`
	PageSize     int  `json:"pageSize"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// NewPagination derives the page metadata from the filtered total, so it
// is always consistent with the returned slice.
func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		TotalDoctors: total,
		TotalPages:   totalPages,
		CurrentPage:  page,
		PageSize:     limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}
