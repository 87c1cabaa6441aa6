package types

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in-progress"
	RequestStatusFulfilled  RequestStatus = "fulfilled"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// OpenRequestStatuses are the statuses of requests still looking for donors.
func OpenRequestStatuses() []RequestStatus {
	return []RequestStatus{RequestStatusPending, RequestStatusInProgress}
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInProgress, RequestStatusFulfilled, RequestStatusCancelled:
		return true
	}
	return false
}

type BloodRequest struct {
	ID            string        `db:"id" json:"id"`
	PatientName   string        `db:"patient_name" json:"patientName"`
	BloodType     BloodType     `db:"blood_type" json:"bloodType"`
	Units         int           `db:"units" json:"units"`
	Urgency       string        `db:"urgency" json:"urgency"`
	HospitalName  string        `db:"hospital_name" json:"hospitalName"`
	Location      string        `db:"location" json:"location"`
	RequesterName string        `db:"requester_name" json:"requesterName"`
	Phone         string        `db:"phone" json:"phone"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	Status        RequestStatus `db:"status" json:"status"`
	CreatorID     string        `db:"creator_id" json:"creatorId"`

	GeoPoint `json:"geolocation"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RequestFilter narrows request listings. Empty fields are ignored.
type RequestFilter struct {
	BloodType BloodType       `form:"bloodType"`
	Status    RequestStatus   `form:"status"`
	Statuses  []RequestStatus `form:"-"`
	Urgency   string          `form:"urgency"`
	CreatorID string          `form:"-"`
	Limit     uint64          `form:"limit"`
}
