package types

import "time"

type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "Available"
	AvailabilityUnavailable AvailabilityStatus = "Unavailable"
)

// DefaultDistanceLimitKm applies when a donor has no preferred distance limit.
const DefaultDistanceLimitKm = 50

type Donor struct {
	ID                      string             `db:"id" json:"id"`
	Name                    string             `db:"name" json:"name"`
	Email                   *string            `db:"email" json:"email,omitempty"`
	Phone                   *string            `db:"phone" json:"phone,omitempty"`
	BloodType               BloodType          `db:"blood_type" json:"bloodType"`
	IsVerified              bool               `db:"is_verified" json:"isVerified"`
	AvailabilityStatus      AvailabilityStatus `db:"availability_status" json:"availabilityStatus"`
	NotifyForNearbyRequests bool               `db:"notify_for_nearby_requests" json:"notifyForNearbyRequests"`
	PreferredDistanceLimit  *int               `db:"preferred_distance_limit" json:"preferredDistanceLimit,omitempty"`
	PushToken               *string            `db:"push_token" json:"-"`
	Address                 *string            `db:"address" json:"address,omitempty"`
	City                    *string            `db:"city" json:"city,omitempty"`
	State                   *string            `db:"state" json:"state,omitempty"`
	ProfileImage            *string            `db:"profile_image" json:"profileImage,omitempty"`

	GeoPoint `json:"geolocation"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DistanceLimitKm returns the donor's preferred limit, or fallback when unset.
func (d *Donor) DistanceLimitKm(fallback int) float64 {
	if d.PreferredDistanceLimit == nil || *d.PreferredDistanceLimit <= 0 {
		return float64(fallback)
	}
	return float64(*d.PreferredDistanceLimit)
}

// Eligible reports whether the donor may be contacted for nearby requests.
func (d *Donor) Eligible() bool {
	return d.IsVerified &&
		d.AvailabilityStatus == AvailabilityAvailable &&
		d.NotifyForNearbyRequests
}

// DonorFilter is the bulk candidate query the matcher issues to the donor store.
type DonorFilter struct {
	BloodTypes              []BloodType
	Verified                *bool
	Availability            AvailabilityStatus
	NotifyForNearbyRequests *bool
}

func (a AvailabilityStatus) Valid() bool {
	return a == AvailabilityAvailable || a == AvailabilityUnavailable
}

// DonorListFilter narrows the donor directory. Empty fields are ignored.
type DonorListFilter struct {
	BloodType    BloodType          `form:"bloodType"`
	Availability AvailabilityStatus `form:"availability"`
	Limit        uint64             `form:"limit"`
}
