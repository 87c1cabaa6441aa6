package matching

import (
	"context"
	"fmt"
	"sort"

	"bloodlink/internal/geo"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

// DonorStore runs the bulk candidate query. Implemented by store.DonorRepository.
type DonorStore interface {
	EligibleDonors(ctx context.Context, filter types.DonorFilter) ([]*types.Donor, error)
}

// Compatibility resolves which donor types a recipient may receive from.
type Compatibility interface {
	CompatibleDonors(recipient types.BloodType) ([]types.BloodType, error)
}

type Matcher struct {
	logger         logrus.FieldLogger
	donors         DonorStore
	compat         Compatibility
	defaultLimitKm int
}

func NewMatcher(logger logrus.FieldLogger, donors DonorStore, compat Compatibility, defaultLimitKm int) *Matcher {
	if defaultLimitKm <= 0 {
		defaultLimitKm = types.DefaultDistanceLimitKm
	}

	return &Matcher{
		logger:         logger,
		donors:         donors,
		compat:         compat,
		defaultLimitKm: defaultLimitKm,
	}
}

// FindMatches returns the eligible, compatible donors within their own
// distance limit of the request, nearest first. Donors whose distance cannot
// be computed are kept and ordered after every donor with a known distance.
func (m *Matcher) FindMatches(ctx context.Context, req *types.BloodRequest) ([]types.Match, error) {
	compatible, err := m.compat.CompatibleDonors(req.BloodType)
	if err != nil {
		return nil, err
	}

	entry := m.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"blood_type": req.BloodType,
	})

	filter := types.DonorFilter{
		BloodTypes:              compatible,
		Verified:                utils.BoolPtr(true),
		Availability:            types.AvailabilityAvailable,
		NotifyForNearbyRequests: utils.BoolPtr(true),
	}

	entry.WithField("compatible_types", compatible).Debug("querying donor store")

	candidates, err := m.donors.EligibleDonors(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	entry.WithField("candidates", len(candidates)).Info("donor candidates fetched")

	allowed := make(map[types.BloodType]bool, len(compatible))
	for _, t := range compatible {
		allowed[t] = true
	}

	seen := make(map[string]bool, len(candidates))
	matches := make([]types.Match, 0, len(candidates))
	unknown := 0

	for _, donor := range candidates {
		if donor == nil || seen[donor.ID] {
			continue
		}
		seen[donor.ID] = true

		if !donor.Eligible() || !allowed[donor.BloodType] {
			entry.WithField("donor_id", donor.ID).Warn("store returned ineligible donor, skipping")
			continue
		}

		distance := geo.Distance(&req.GeoPoint, &donor.GeoPoint)
		if !distance.Within(donor.DistanceLimitKm(m.defaultLimitKm)) {
			continue
		}

		if !distance.Known {
			unknown++
		}

		matches = append(matches, types.Match{Donor: donor, Distance: distance})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance.Less(matches[j].Distance)
	})

	entry.WithFields(logrus.Fields{
		"candidates":       len(candidates),
		"matched":          len(matches),
		"unknown_distance": unknown,
	}).Info("donor matching complete")

	return matches, nil
}
