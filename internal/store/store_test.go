package store

import (
	"strings"
	"testing"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDonorColumnsFlattenGeoPoint(t *testing.T) {
	assert.Contains(t, donorColumns, "latitude")
	assert.Contains(t, donorColumns, "longitude")
	assert.Contains(t, donorColumns, "push_token")
	assert.Equal(t, "id", donorColumns[0])
}

func TestEligibleDonorsQuery(t *testing.T) {
	query, args, err := eligibleDonorsQuery(types.DonorFilter{
		BloodTypes:              []types.BloodType{types.BloodTypeANeg, types.BloodTypeONeg},
		Verified:                utils.BoolPtr(true),
		Availability:            types.AvailabilityAvailable,
		NotifyForNearbyRequests: utils.BoolPtr(true),
	}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "SELECT id, name, email"))
	assert.Contains(t, query, "FROM bloodlink.donors")
	assert.Contains(t, query, "blood_type IN ($1,$2)")
	assert.Contains(t, query, "is_verified = $3")
	assert.Contains(t, query, "availability_status = $4")
	assert.Contains(t, query, "notify_for_nearby_requests = $5")
	assert.Equal(t, []any{"A-", "O-", true, "Available", true}, args)
}

func TestEligibleDonorsQueryOmitsUnsetPredicates(t *testing.T) {
	query, args, err := eligibleDonorsQuery(types.DonorFilter{
		BloodTypes: []types.BloodType{types.BloodTypeOPos},
	}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "is_verified")
	assert.NotContains(t, query, "availability_status =")
	assert.Equal(t, []any{"O+"}, args)
}

func TestListRequestsQuery(t *testing.T) {
	query, args, err := listRequestsQuery(types.RequestFilter{
		BloodType: types.BloodTypeBPos,
		Status:    types.RequestStatusPending,
		CreatorID: "user-1",
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM bloodlink.requests")
	assert.Contains(t, query, "blood_type = $1")
	assert.Contains(t, query, "status = $2")
	assert.Contains(t, query, "creator_id = $3")
	assert.NotContains(t, query, "urgency =")
	assert.Contains(t, query, "ORDER BY created_at desc LIMIT 50")
	assert.Equal(t, []any{"B+", "pending", "user-1"}, args)
}

func TestListRequestsQueryStatusSet(t *testing.T) {
	query, args, err := listRequestsQuery(types.RequestFilter{Statuses: types.OpenRequestStatuses()}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "status IN ($1,$2)")
	assert.Equal(t, []any{"pending", "in-progress"}, args)
}

func TestListRequestsQueryCapsLimit(t *testing.T) {
	query, _, err := listRequestsQuery(types.RequestFilter{Limit: 10}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 10")

	query, _, err = listRequestsQuery(types.RequestFilter{Limit: 5000}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 50")
}

func TestUpsertSuffix(t *testing.T) {
	suffix := upsertSuffix([]string{"id", "name", "created_at", "updated_at"}, "id", "created_at")
	assert.Equal(t, "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at", suffix)
}

func TestListRequestsQueryWithoutFilters(t *testing.T) {
	query, args, err := listRequestsQuery(types.RequestFilter{}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestListDonorsQuery(t *testing.T) {
	query, args, err := listDonorsQuery(types.DonorListFilter{
		BloodType:    types.BloodTypeONeg,
		Availability: types.AvailabilityAvailable,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM bloodlink.donors")
	assert.Contains(t, query, "blood_type = $1")
	assert.Contains(t, query, "availability_status = $2")
	assert.Contains(t, query, "ORDER BY created_at desc LIMIT 100")
	assert.Equal(t, []any{"O-", "Available"}, args)
}

func TestListDonorsQueryCapsLimit(t *testing.T) {
	query, args, err := listDonorsQuery(types.DonorListFilter{Limit: 500}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 100")
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)

	query, _, err = listDonorsQuery(types.DonorListFilter{Limit: 20}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 20")
}
