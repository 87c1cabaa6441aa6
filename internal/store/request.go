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

const requestTableName = "bloodlink.requests"

const defaultRequestListLimit = 50

var requestColumns = utils.StructTagValues(types.BloodRequest{})

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create assigns an ID and timestamps and persists the request as pending.
func (r *RequestRepository) Create(ctx context.Context, request *types.BloodRequest) error {
	now := time.Now()
	request.ID = utils.NanoID()
	request.Status = types.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now

	query, args, err := psql().
		Insert(requestTableName).
		SetMap(utils.StructToMap(request)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.BloodRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var request types.BloodRequest
	err = pgxscan.Get(ctx, r.pool, &request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}

	return &request, nil
}

func listRequestsQuery(filter types.RequestFilter) sq.SelectBuilder {
	limit := filter.Limit
	if limit == 0 || limit > defaultRequestListLimit {
		limit = defaultRequestListLimit
	}

	builder := psql().
		Select(requestColumns...).
		From(requestTableName).
		OrderBy("created_at desc").
		Limit(limit)

	if filter.BloodType != "" {
		builder = builder.Where(sq.Eq{"blood_type": string(filter.BloodType)})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	} else if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.Urgency != "" {
		builder = builder.Where(sq.Eq{"urgency": filter.Urgency})
	}
	if filter.CreatorID != "" {
		builder = builder.Where(sq.Eq{"creator_id": filter.CreatorID})
	}

	return builder
}

func (r *RequestRepository) List(ctx context.Context, filter types.RequestFilter) ([]*types.BloodRequest, error) {
	query, args, err := listRequestsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate list requests query: %w", err)
	}

	var requests = make([]*types.BloodRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus changes the status of a request owned by creatorID. Requests
// that do not exist or belong to someone else both report ErrRequestNotFound.
func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID, creatorID string, status types.RequestStatus) (*types.BloodRequest, error) {
	query, args, err := psql().
		Update(requestTableName).
		Set("status", string(status)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID, "creator_id": creatorID}).
		Suffix("RETURNING " + strings.Join(requestColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update request status query: %w", err)
	}

	var request types.BloodRequest
	err = pgxscan.Get(ctx, r.pool, &request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	return &request, nil
}
