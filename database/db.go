package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore reads platform entities from the shared entities table:
//
//	entities(id TEXT, entity_type TEXT, organization_id TEXT, data JSONB, created_date TIMESTAMPTZ)
//
// The table is owned by the platform; this store never writes to it.
type PostgresStore struct {
	db DB
}

var _ entities.Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{db: pool}, nil
}

// NewStore wraps an existing connection.
func NewStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) PastPerformance(ctx context.Context, organizationID string, limit int) ([]entities.PastPerformance, error) {
	q := newEntityQuery(entities.TypePastPerformance)
	q.where("organization_id = $%d", organizationID)
	q.limit = limit
	return queryEntities(ctx, s.db, q, func(r *entities.PastPerformance, id string, created time.Time) {
		r.ID, r.CreatedDate = id, created
	})
}

func (s *PostgresStore) Resources(ctx context.Context, organizationID string, limit int) ([]entities.Resource, error) {
	q := newEntityQuery(entities.TypeResource)
	q.where("organization_id = $%d", organizationID)
	q.limit = limit
	return queryEntities(ctx, s.db, q, func(r *entities.Resource, id string, created time.Time) {
		r.ID, r.CreatedDate = id, created
	})
}

func (s *PostgresStore) ContentChunks(ctx context.Context, filter entities.ChunkFilter) ([]entities.ContentChunk, error) {
	q := newEntityQuery(entities.TypeContentChunk)
	q.where("organization_id = $%d", filter.OrganizationID)
	if filter.ExcludeProposalID != "" {
		q.where("data->>'proposal_id' <> $%d", filter.ExcludeProposalID)
	}
	if filter.SectionType != "" {
		q.where("data->>'section_type' = $%d", filter.SectionType)
	}
	q.limit = filter.Limit
	return queryEntities(ctx, s.db, q, func(c *entities.ContentChunk, id string, created time.Time) {
		c.ID, c.CreatedDate = id, created
	})
}

func (s *PostgresStore) Proposal(ctx context.Context, id string) (entities.Proposal, error) {
	const query = `SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND id = $2`

	var (
		rowID   string
		data    []byte
		created time.Time
	)
	err := s.db.QueryRow(ctx, query, entities.TypeProposal, id).Scan(&rowID, &data, &created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.Proposal{}, apperrors.NotFound("proposal", id)
		}
		return entities.Proposal{}, fmt.Errorf("%w: fetch proposal %s: %w", apperrors.ErrEntityStore, id, err)
	}

	p, err := decodeData[entities.Proposal](data)
	if err != nil {
		return entities.Proposal{}, apperrors.WrapErrorf(err, "failed to decode proposal %s", id)
	}
	p.ID, p.CreatedDate = rowID, created
	return p, nil
}

func (s *PostgresStore) Proposals(ctx context.Context, filter entities.ProposalFilter) ([]entities.Proposal, error) {
	q := newEntityQuery(entities.TypeProposal)
	q.where("organization_id = $%d", filter.OrganizationID)
	if len(filter.Statuses) > 0 {
		q.where("data->>'status' = ANY($%d)", filter.Statuses)
	}
	if filter.ExcludeID != "" {
		q.where("id <> $%d", filter.ExcludeID)
	}
	q.limit = filter.Limit
	return queryEntities(ctx, s.db, q, func(p *entities.Proposal, id string, created time.Time) {
		p.ID, p.CreatedDate = id, created
	})
}

func (s *PostgresStore) QualityFeedback(ctx context.Context, organizationID string, limit int) ([]entities.QualityFeedback, error) {
	q := newEntityQuery(entities.TypeQualityFeedback)
	q.where("organization_id = $%d", organizationID)
	q.limit = limit
	return queryEntities(ctx, s.db, q, func(f *entities.QualityFeedback, id string, created time.Time) {
		f.ID, f.CreatedDate = id, created
	})
}

func (s *PostgresStore) IngestedDocuments(ctx context.Context, proposalID string, limit int) ([]entities.SolicitationDocument, error) {
	q := newEntityQuery(entities.TypeSolicitationDocument)
	q.where("data->>'proposal_id' = $%d", proposalID)
	q.conds = append(q.conds, "COALESCE((data->>'rag_ingested')::boolean, false)")
	q.limit = limit
	return queryEntities(ctx, s.db, q, func(d *entities.SolicitationDocument, id string, created time.Time) {
		d.ID, d.CreatedDate = id, created
	})
}

// entityQuery builds a parameterized SELECT over the entities table.
type entityQuery struct {
	entityType string
	conds      []string
	args       []any
	limit      int
}

func newEntityQuery(entityType string) *entityQuery {
	return &entityQuery{
		entityType: entityType,
		conds:      []string{"entity_type = $1"},
		args:       []any{entityType},
	}
}

// where appends a condition; format holds one %d for the placeholder index.
func (q *entityQuery) where(format string, arg any) {
	q.args = append(q.args, arg)
	q.conds = append(q.conds, fmt.Sprintf(format, len(q.args)))
}

func (q *entityQuery) sql() (string, []any) {
	var builder strings.Builder
	builder.WriteString("SELECT id, data, created_date FROM entities WHERE ")
	builder.WriteString(strings.Join(q.conds, " AND "))
	builder.WriteString(" ORDER BY created_date DESC, id ASC")

	args := q.args
	if q.limit > 0 {
		args = append(args, q.limit)
		builder.WriteString(" LIMIT $")
		builder.WriteString(strconv.Itoa(len(args)))
	}
	return builder.String(), args
}

func queryEntities[T any](ctx context.Context, db DB, q *entityQuery, assign func(*T, string, time.Time)) ([]T, error) {
	query, args := q.sql()
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", apperrors.ErrEntityStore, q.entityType, err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var (
			id      string
			data    []byte
			created time.Time
		)
		if err := rows.Scan(&id, &data, &created); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", apperrors.ErrEntityStore, q.entityType, err)
		}
		rec, err := decodeData[T](data)
		if err != nil {
			return nil, apperrors.WrapErrorf(err, "failed to decode %s %s", q.entityType, id)
		}
		assign(&rec, id, created)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", apperrors.ErrEntityStore, q.entityType, err)
	}
	return records, nil
}

// decodeData unmarshals a data column into T. created_date is always taken
// from the column, so a copy inside data is dropped before decoding.
func decodeData[T any](data []byte) (T, error) {
	var rec T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rec, err
	}
	if _, ok := fields["created_date"]; ok {
		delete(fields, "created_date")
		stripped, err := json.Marshal(fields)
		if err != nil {
			return rec, err
		}
		data = stripped
	}
	err := json.Unmarshal(data, &rec)
	return rec, err
}
