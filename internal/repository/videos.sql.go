package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const videoColumns = `id, user_id, filename, storage_key, poster_key, content_type, size_bytes, status, uploaded_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (Video, error) {
	var i Video
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Filename,
		&i.StorageKey,
		&i.PosterKey,
		&i.ContentType,
		&i.SizeBytes,
		&i.Status,
		&i.UploadedAt,
	)
	return i, err
}

const createVideo = `-- name: CreateVideo :one
INSERT INTO videos (id, user_id, filename, storage_key, poster_key, content_type, size_bytes, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + videoColumns

type CreateVideoParams struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Filename    string         `json:"filename"`
	StorageKey  string         `json:"storage_key"`
	PosterKey   sql.NullString `json:"poster_key"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	Status      string         `json:"status"`
}

func (q *Queries) CreateVideo(ctx context.Context, arg CreateVideoParams) (Video, error) {
	row := q.db.QueryRowContext(ctx, createVideo,
		arg.ID,
		arg.UserID,
		arg.Filename,
		arg.StorageKey,
		arg.PosterKey,
		arg.ContentType,
		arg.SizeBytes,
		arg.Status,
	)
	return scanVideo(row)
}

const getVideoByIDAndUser = `-- name: GetVideoByIDAndUser :one
SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND user_id = $2`

type GetVideoByIDAndUserParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) GetVideoByIDAndUser(ctx context.Context, arg GetVideoByIDAndUserParams) (Video, error) {
	return scanVideo(q.db.QueryRowContext(ctx, getVideoByIDAndUser, arg.ID, arg.UserID))
}

const listVideosByUser = `-- name: ListVideosByUser :many
SELECT ` + videoColumns + ` FROM videos
WHERE user_id = $1
  AND ($2::timestamptz IS NULL OR uploaded_at >= $2)
  AND ($3::timestamptz IS NULL OR uploaded_at < $3)
  AND (cardinality($4::text[]) = 0 OR status = ANY($4::text[]))
ORDER BY uploaded_at DESC
LIMIT $5`

type ListVideosByUserParams struct {
	UserID   uuid.UUID    `json:"user_id"`
	From     sql.NullTime `json:"from"`
	To       sql.NullTime `json:"to"`
	Statuses []string     `json:"statuses"`
	Limit    int32        `json:"limit"`
}

func (q *Queries) ListVideosByUser(ctx context.Context, arg ListVideosByUserParams) ([]Video, error) {
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.QueryContext(ctx, listVideosByUser,
		arg.UserID,
		arg.From,
		arg.To,
		pq.Array(statuses),
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Video
	for rows.Next() {
		i, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateVideoStatus = `-- name: UpdateVideoStatus :exec
UPDATE videos SET status = $2, status_changed_at = NOW() WHERE id = $1`

type UpdateVideoStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateVideoStatus(ctx context.Context, arg UpdateVideoStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateVideoStatus, arg.ID, arg.Status)
	return err
}

const failStaleProcessingVideos = `-- name: FailStaleProcessingVideos :execrows
UPDATE videos SET status = 'failed', status_changed_at = NOW()
WHERE status = 'processing' AND status_changed_at < $1`

func (q *Queries) FailStaleProcessingVideos(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, failStaleProcessingVideos, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
