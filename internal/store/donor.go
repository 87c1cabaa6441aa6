package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const donorTableName = "bloodlink.donors"

const defaultDonorListLimit = 100

var donorColumns = utils.StructTagValues(types.Donor{})

type DonorRepository struct {
	pool *pgxpool.Pool
}

func NewDonorRepository(pool *pgxpool.Pool) *DonorRepository {
	return &DonorRepository{pool: pool}
}

// eligibleDonorsQuery pushes the compatibility and eligibility predicates down
// to Postgres so only candidates come back over the wire.
func eligibleDonorsQuery(filter types.DonorFilter) sq.SelectBuilder {
	builder := psql().
		Select(donorColumns...).
		From(donorTableName).
		OrderBy("id")

	if len(filter.BloodTypes) > 0 {
		builder = builder.Where(sq.Eq{"blood_type": bloodTypeStrings(filter.BloodTypes)})
	}
	if filter.Verified != nil {
		builder = builder.Where(sq.Eq{"is_verified": *filter.Verified})
	}
	if filter.Availability != "" {
		builder = builder.Where(sq.Eq{"availability_status": string(filter.Availability)})
	}
	if filter.NotifyForNearbyRequests != nil {
		builder = builder.Where(sq.Eq{"notify_for_nearby_requests": *filter.NotifyForNearbyRequests})
	}

	return builder
}

func (r *DonorRepository) EligibleDonors(ctx context.Context, filter types.DonorFilter) ([]*types.Donor, error) {
	// an empty type list would otherwise select every donor
	if len(filter.BloodTypes) == 0 {
		return []*types.Donor{}, nil
	}

	query, args, err := eligibleDonorsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate eligible donors query: %w", err)
	}

	var donors = make([]*types.Donor, 0)
	err = pgxscan.Select(ctx, r.pool, &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible donors: %w", err)
	}

	return donors, nil
}

func (r *DonorRepository) Donor(ctx context.Context, donorID string) (*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(sq.Eq{"id": donorID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor query: %w", err)
	}

	var donor types.Donor
	err = pgxscan.Get(ctx, r.pool, &donor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonorNotFound
		}
		return nil, fmt.Errorf("failed to fetch donor: %w", err)
	}

	return &donor, nil
}

func listDonorsQuery(filter types.DonorListFilter) sq.SelectBuilder {
	limit := filter.Limit
	if limit == 0 || limit > defaultDonorListLimit {
		limit = defaultDonorListLimit
	}

	builder := psql().
		Select(donorColumns...).
		From(donorTableName).
		OrderBy("created_at desc").
		Limit(limit)

	if filter.BloodType != "" {
		builder = builder.Where(sq.Eq{"blood_type": string(filter.BloodType)})
	}
	if filter.Availability != "" {
		builder = builder.Where(sq.Eq{"availability_status": string(filter.Availability)})
	}

	return builder
}

// List returns the donor directory, newest donors first.
func (r *DonorRepository) List(ctx context.Context, filter types.DonorListFilter) ([]*types.Donor, error) {
	query, args, err := listDonorsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate list donors query: %w", err)
	}

	var donors = make([]*types.Donor, 0)
	err = pgxscan.Select(ctx, r.pool, &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}

	return donors, nil
}

// Upsert inserts the donor or replaces every column of an existing row.
func (r *DonorRepository) Upsert(ctx context.Context, donor *types.Donor) error {
	now := time.Now()
	if donor.ID == "" {
		donor.ID = utils.NanoID()
	}
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now

	query, args, err := psql().
		Insert(donorTableName).
		SetMap(utils.StructToMap(donor)).
		Suffix(upsertSuffix(donorColumns, "id", "created_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert donor query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert donor: %w", err)
	}

	return nil
}

func (r *DonorRepository) UpdatePushToken(ctx context.Context, donorID, token string) error {
	return r.updateColumn(ctx, donorID, "push_token", token)
}

func (r *DonorRepository) UpdateProfileImage(ctx context.Context, donorID, imageURL string) error {
	return r.updateColumn(ctx, donorID, "profile_image", imageURL)
}

// SetVerified flips the donor's verification flag and returns the updated row.
func (r *DonorRepository) SetVerified(ctx context.Context, donorID string, verified bool) (*types.Donor, error) {
	if err := r.updateColumn(ctx, donorID, "is_verified", verified); err != nil {
		return nil, err
	}
	return r.Donor(ctx, donorID)
}

func (r *DonorRepository) updateColumn(ctx context.Context, donorID, column string, value any) error {
	query, args, err := psql().
		Update(donorTableName).
		Set(column, value).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": donorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update %s query: %w", column, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update donor %s: %w", column, err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDonorNotFound
	}

	return nil
}

type BloodTypeCount struct {
	BloodType types.BloodType `db:"blood_type"`
	Total     int             `db:"total"`
	Eligible  int             `db:"eligible"`
}

// CountByBloodType summarizes the donor pool, used by the debug command.
func (r *DonorRepository) CountByBloodType(ctx context.Context) ([]*BloodTypeCount, error) {
	query, args, err := psql().
		Select(
			"blood_type",
			"count(*) as total",
			"count(*) filter (where is_verified and availability_status = 'Available' and notify_for_nearby_requests) as eligible",
		).
		From(donorTableName).
		GroupBy("blood_type").
		OrderBy("blood_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor count query: %w", err)
	}

	var counts []*BloodTypeCount
	err = pgxscan.Select(ctx, r.pool, &counts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count donors: %w", err)
	}

	return counts, nil
}

func bloodTypeStrings(bloodTypes []types.BloodType) []string {
	out := make([]string, 0, len(bloodTypes))
	for _, t := range bloodTypes {
		out = append(out, string(t))
	}
	return out
}

func upsertSuffix(columns []string, conflict string, keep ...string) string {
	var sets []string
	for _, c := range utils.ColumnsExcept(columns, append([]string{conflict}, keep...)...) {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(sets, ", "))
}
