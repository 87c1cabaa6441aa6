package matching

import (
	"context"
	"errors"
	"io"
	"testing"

	"bloodlink/internal/compat"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// fakeStore applies the filter the way the Postgres repository does, so
// tests can seed ineligible donors and watch them get filtered.
type fakeStore struct {
	donors  []*types.Donor
	err     error
	filters []types.DonorFilter
	raw     bool
}

func (f *fakeStore) EligibleDonors(_ context.Context, filter types.DonorFilter) ([]*types.Donor, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if f.raw {
		return f.donors, nil
	}

	allowed := make(map[types.BloodType]bool)
	for _, t := range filter.BloodTypes {
		allowed[t] = true
	}

	var out []*types.Donor
	for _, d := range f.donors {
		if !allowed[d.BloodType] {
			continue
		}
		if filter.Verified != nil && d.IsVerified != *filter.Verified {
			continue
		}
		if filter.Availability != "" && d.AvailabilityStatus != filter.Availability {
			continue
		}
		if filter.NotifyForNearbyRequests != nil && d.NotifyForNearbyRequests != *filter.NotifyForNearbyRequests {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type recordingNotifier struct {
	calls   int
	matches []types.Match
}

func (r *recordingNotifier) NotifyAll(_ context.Context, matches []types.Match, _ *types.BloodRequest) []types.NotificationOutcome {
	r.calls++
	r.matches = matches

	out := make([]types.NotificationOutcome, 0, len(matches))
	for _, m := range matches {
		out = append(out, types.SentOutcome(m.Donor.ID, types.ChannelEmail))
	}
	return out
}

var (
	chennai      = types.NewGeoPoint(13.0776, 80.2917)
	chengalpattu = types.NewGeoPoint(12.6165, 79.9747)
	egmore       = types.NewGeoPoint(13.0732, 80.2609)
	tambaram     = types.NewGeoPoint(12.9249, 80.1000)
)

func eligibleDonor(id string, bt types.BloodType, at types.GeoPoint, limit int) *types.Donor {
	d := &types.Donor{
		ID:                      id,
		Name:                    "Donor " + id,
		Email:                   utils.StringPtr(id + "@example.com"),
		BloodType:               bt,
		IsVerified:              true,
		AvailabilityStatus:      types.AvailabilityAvailable,
		NotifyForNearbyRequests: true,
		GeoPoint:                at,
	}
	if limit > 0 {
		d.PreferredDistanceLimit = utils.IntPtr(limit)
	}
	return d
}

type MatchingSuite struct {
	suite.Suite
	store        *fakeStore
	notifier     *recordingNotifier
	matcher      *Matcher
	orchestrator *Orchestrator
}

func TestMatchingSuite(t *testing.T) {
	suite.Run(t, new(MatchingSuite))
}

func (s *MatchingSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.store = &fakeStore{}
	s.notifier = &recordingNotifier{}
	s.matcher = NewMatcher(logger, s.store, compat.Standard(), types.DefaultDistanceLimitKm)
	s.orchestrator = NewOrchestrator(logger, s.matcher, s.notifier, nil)
}

func (s *MatchingSuite) request(bt types.BloodType, at types.GeoPoint) *types.BloodRequest {
	return &types.BloodRequest{
		ID:           "req-1",
		BloodType:    bt,
		Units:        2,
		HospitalName: "Rajiv Gandhi Government General Hospital",
		GeoPoint:     at,
	}
}

func (s *MatchingSuite) TestQueryUsesCompatibleTypesAndEligibility() {
	_, err := s.matcher.FindMatches(context.Background(), s.request(types.BloodTypeANeg, chennai))
	s.Require().NoError(err)

	s.Require().Len(s.store.filters, 1)
	f := s.store.filters[0]
	s.ElementsMatch([]types.BloodType{types.BloodTypeANeg, types.BloodTypeONeg}, f.BloodTypes)
	s.Require().NotNil(f.Verified)
	s.True(*f.Verified)
	s.Equal(types.AvailabilityAvailable, f.Availability)
	s.Require().NotNil(f.NotifyForNearbyRequests)
	s.True(*f.NotifyForNearbyRequests)
}

func (s *MatchingSuite) TestEndToEndDistanceLimit() {
	cases := []struct {
		name     string
		limit    int
		included bool
	}{
		{"default limit excludes", 0, false},
		{"limit of 50 excludes", 50, false},
		// the pair is 61.7 km apart
		{"limit of 60 excludes", 60, false},
		{"limit of 65 includes", 65, true},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.store.donors = []*types.Donor{eligibleDonor("o-neg", types.BloodTypeONeg, chengalpattu, tc.limit)}

			result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeANeg, chennai))
			s.Require().NoError(err)

			if !tc.included {
				s.Empty(result.Matches)
				s.Nil(result.BestMatch)
				return
			}

			s.Require().Len(result.Matches, 1)
			s.Require().NotNil(result.BestMatch)
			s.Equal("o-neg", result.BestMatch.Donor.ID)
			s.True(result.BestMatch.Distance.Known)
			s.InDelta(61.72, result.BestMatch.Distance.Km, 0.05)
		})
	}
}

func (s *MatchingSuite) TestUniversalRecipientMatchesEveryType() {
	for i, bt := range types.AllBloodTypes() {
		s.store.donors = append(s.store.donors, eligibleDonor(string(rune('a'+i)), bt, egmore, 50))
	}

	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeABPos, chennai))
	s.Require().NoError(err)

	s.Len(result.Matches, 8)
	got := make([]types.BloodType, 0, 8)
	for _, m := range result.Matches {
		got = append(got, m.Donor.BloodType)
	}
	s.ElementsMatch(types.AllBloodTypes(), got)
}

func (s *MatchingSuite) TestEmptyPool() {
	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeOPos, chennai))
	s.Require().NoError(err)

	s.NotNil(result.Matches)
	s.Empty(result.Matches)
	s.Nil(result.BestMatch)
	s.Equal(1, s.notifier.calls)
	s.Empty(s.notifier.matches)
}

func (s *MatchingSuite) TestStoreFailureDegradesToEmpty() {
	s.store.err = errors.New("dial tcp: connection refused")

	_, err := s.matcher.FindMatches(context.Background(), s.request(types.BloodTypeOPos, chennai))
	s.ErrorIs(err, types.ErrStoreUnavailable)

	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeOPos, chennai))
	s.Require().NoError(err)
	s.Empty(result.Matches)
	s.Nil(result.BestMatch)
	s.Empty(result.Outcomes)
}

func (s *MatchingSuite) TestInvalidBloodTypeFailsFast() {
	_, err := s.orchestrator.Run(context.Background(), s.request("Z+", chennai))
	s.ErrorIs(err, types.ErrInvalidBloodType)
	s.Empty(s.store.filters)
	s.Zero(s.notifier.calls)
}

func (s *MatchingSuite) TestIneligibleDonorsNeverMatch() {
	unverified := eligibleDonor("unverified", types.BloodTypeONeg, egmore, 50)
	unverified.IsVerified = false
	unavailable := eligibleDonor("unavailable", types.BloodTypeONeg, egmore, 50)
	unavailable.AvailabilityStatus = types.AvailabilityUnavailable
	muted := eligibleDonor("muted", types.BloodTypeONeg, egmore, 50)
	muted.NotifyForNearbyRequests = false
	incompatible := eligibleDonor("incompatible", types.BloodTypeAPos, egmore, 50)
	ok := eligibleDonor("ok", types.BloodTypeONeg, egmore, 50)

	s.store.donors = []*types.Donor{unverified, unavailable, muted, incompatible, ok}

	// once through the filtering fake, once as if the store ignored the filter
	for _, raw := range []bool{false, true} {
		s.store.raw = raw
		matches, err := s.matcher.FindMatches(context.Background(), s.request(types.BloodTypeANeg, chennai))
		s.Require().NoError(err)
		s.Require().Len(matches, 1)
		s.Equal("ok", matches[0].Donor.ID)
	}
}

func (s *MatchingSuite) TestMissingGeolocationIsIncludedAndRankedLast() {
	noGeo := eligibleDonor("no-geo", types.BloodTypeONeg, types.GeoPoint{}, 5)
	halfGeo := eligibleDonor("half-geo", types.BloodTypeONeg, types.GeoPoint{Lat: utils.Float64Ptr(13.0)}, 5)
	badGeo := eligibleDonor("bad-geo", types.BloodTypeONeg, types.NewGeoPoint(200, 80), 5)
	far := eligibleDonor("far", types.BloodTypeONeg, tambaram, 5)
	near := eligibleDonor("near", types.BloodTypeONeg, egmore, 0)
	mid := eligibleDonor("mid", types.BloodTypeONeg, tambaram, 0)

	s.store.donors = []*types.Donor{noGeo, far, halfGeo, mid, badGeo, near}

	matches, err := s.matcher.FindMatches(context.Background(), s.request(types.BloodTypeONeg, chennai))
	s.Require().NoError(err)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Donor.ID)
	}

	s.Require().Len(ids, 5)
	s.Equal([]string{"near", "mid"}, ids[:2])
	s.ElementsMatch([]string{"no-geo", "half-geo", "bad-geo"}, ids[2:])
	for _, m := range matches[2:] {
		s.False(m.Distance.Known)
	}
}

func (s *MatchingSuite) TestRequestWithoutLocationIncludesEveryone() {
	s.store.donors = []*types.Donor{
		eligibleDonor("a", types.BloodTypeONeg, chengalpattu, 1),
		eligibleDonor("b", types.BloodTypeONeg, egmore, 1),
	}

	matches, err := s.matcher.FindMatches(context.Background(), s.request(types.BloodTypeONeg, types.GeoPoint{}))
	s.Require().NoError(err)
	s.Len(matches, 2)
}

func (s *MatchingSuite) TestSortedAscendingByDistance() {
	s.store.donors = []*types.Donor{
		eligibleDonor("tambaram", types.BloodTypeOPos, tambaram, 100),
		eligibleDonor("chengalpattu", types.BloodTypeONeg, chengalpattu, 100),
		eligibleDonor("egmore", types.BloodTypeOPos, egmore, 100),
	}

	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeOPos, chennai))
	s.Require().NoError(err)

	s.Require().Len(result.Matches, 3)
	s.Equal("egmore", result.Matches[0].Donor.ID)
	s.Equal("tambaram", result.Matches[1].Donor.ID)
	s.Equal("chengalpattu", result.Matches[2].Donor.ID)
	s.Equal("egmore", result.BestMatch.Donor.ID)

	for i := 1; i < len(result.Matches); i++ {
		s.LessOrEqual(result.Matches[i-1].Distance.Km, result.Matches[i].Distance.Km)
	}
}

func (s *MatchingSuite) TestDuplicateDonorsCollapsed() {
	d := eligibleDonor("dup", types.BloodTypeONeg, egmore, 50)
	s.store.donors = []*types.Donor{d, d}

	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeONeg, chennai))
	s.Require().NoError(err)
	s.Len(result.Matches, 1)
	s.Len(result.Outcomes, 1)
}

func (s *MatchingSuite) TestNotifiedDonorsAreMatchedDonors() {
	s.store.donors = []*types.Donor{
		eligibleDonor("in", types.BloodTypeONeg, egmore, 50),
		eligibleDonor("out", types.BloodTypeONeg, chengalpattu, 10),
	}

	result, err := s.orchestrator.Run(context.Background(), s.request(types.BloodTypeONeg, chennai))
	s.Require().NoError(err)

	matched := make(map[string]bool)
	for _, m := range result.Matches {
		matched[m.Donor.ID] = true
	}
	for _, o := range result.Outcomes {
		s.True(matched[o.DonorID], o.DonorID)
	}
	s.Equal(map[string]bool{"in": true}, matched)
}
