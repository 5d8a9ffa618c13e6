package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `request_id, user_query, model, name, owner_id, status, created_at, result, published_ids`

func (r *JobRepo) Insert(ctx context.Context, qx any, job *model.Job) error {
	const q = `
INSERT INTO generation_jobs (request_id, user_query, model, name, owner_id, status, created_at, result, published_ids)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	resultJSON, err := encodeResult(job.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = execSQL(ctx, r.pool, qx, q,
		job.RequestID, job.UserQuery, job.Model, job.Name, job.OwnerID,
		int16(job.Status), job.Timestamp, resultJSON, job.PublishedIDs)
	return err
}

func (r *JobRepo) FindByID(ctx context.Context, qx any, requestID string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, qx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE request_id=$1;`, requestID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *JobRepo) FindByOwner(ctx context.Context, qx any, ownerID string) ([]*model.Job, error) {
	rows, err := pickRows(ctx, r.pool, qx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE owner_id=$1 ORDER BY created_at DESC;`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *JobRepo) FindPending(ctx context.Context, qx any) ([]*model.Job, error) {
	rows, err := pickRows(ctx, r.pool, qx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE status=$1 ORDER BY created_at;`,
		int16(model.JobStatusNotProcessed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *JobRepo) CountPending(ctx context.Context, qx any) (int, error) {
	row, err := pickRow(ctx, r.pool, qx,
		`SELECT COUNT(*) FROM generation_jobs WHERE status=$1;`,
		int16(model.JobStatusNotProcessed))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// UpdateFields builds the SET list from explicit (column, value) pairs, one
// per set patch field.
func (r *JobRepo) UpdateFields(ctx context.Context, qx any, requestID string, patch repository.JobPatch) error {
	cols := make([]string, 0, 2)
	vals := make([]any, 0, 3)
	if patch.Model != nil {
		cols = append(cols, "model")
		vals = append(vals, *patch.Model)
	}
	if patch.UserQuery != nil {
		cols = append(cols, "user_query")
		vals = append(vals, *patch.UserQuery)
	}
	if len(cols) == 0 {
		return nil
	}

	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = fmt.Sprintf("%s=$%d", c, i+1)
	}
	vals = append(vals, requestID)
	q := fmt.Sprintf(`UPDATE generation_jobs SET %s WHERE request_id=$%d;`,
		strings.Join(set, ", "), len(vals))

	tag, err := execSQL(ctx, r.pool, qx, q, vals...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, qx any, requestID string, status model.JobStatus, result *model.JobResult) error {
	resultJSON, err := encodeResult(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	tag, err := execSQL(ctx, r.pool, qx,
		`UPDATE generation_jobs SET status=$1, result=$2 WHERE request_id=$3;`,
		int16(status), resultJSON, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepo) SavePublishedIDs(ctx context.Context, qx any, requestID string, ids []int64) error {
	_, err := execSQL(ctx, r.pool, qx,
		`UPDATE generation_jobs SET published_ids=$1 WHERE request_id=$2;`, ids, requestID)
	return err
}

func (r *JobRepo) Delete(ctx context.Context, qx any, requestID string) (int64, error) {
	tag, err := execSQL(ctx, r.pool, qx,
		`DELETE FROM generation_jobs WHERE request_id=$1;`, requestID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- row helpers ---

func encodeResult(res *model.JobResult) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	return json.Marshal(res)
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var status int16
	var raw []byte
	if err := row.Scan(&j.RequestID, &j.UserQuery, &j.Model, &j.Name, &j.OwnerID,
		&status, &j.Timestamp, &raw, &j.PublishedIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Status = model.JobStatus(status)
	j.ResultRaw = raw
	if len(raw) > 0 {
		var res model.JobResult
		if err := json.Unmarshal(raw, &res); err == nil {
			j.Result = &res
		}
		// Malformed stored JSON is surfaced by callers via ResultRaw,
		// not treated as a read failure.
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*model.Job, error) {
	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
