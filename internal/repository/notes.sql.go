package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createVideoNote = `-- name: CreateVideoNote :one
INSERT INTO video_notes (video_id, user_id, transcript, notes, action_items, reduced_accuracy)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, video_id, user_id, transcript, notes, action_items, reduced_accuracy, created_at`

type CreateVideoNoteParams struct {
	VideoID         uuid.UUID             `json:"video_id"`
	UserID          uuid.UUID             `json:"user_id"`
	Transcript      string                `json:"transcript"`
	Notes           string                `json:"notes"`
	ActionItems     pqtype.NullRawMessage `json:"action_items"`
	ReducedAccuracy bool                  `json:"reduced_accuracy"`
}

func (q *Queries) CreateVideoNote(ctx context.Context, arg CreateVideoNoteParams) (VideoNote, error) {
	row := q.db.QueryRowContext(ctx, createVideoNote,
		arg.VideoID,
		arg.UserID,
		arg.Transcript,
		arg.Notes,
		arg.ActionItems,
		arg.ReducedAccuracy,
	)
	var i VideoNote
	err := row.Scan(
		&i.ID,
		&i.VideoID,
		&i.UserID,
		&i.Transcript,
		&i.Notes,
		&i.ActionItems,
		&i.ReducedAccuracy,
		&i.CreatedAt,
	)
	return i, err
}

const getLatestVideoNote = `-- name: GetLatestVideoNote :one
SELECT id, video_id, user_id, transcript, notes, action_items, reduced_accuracy, created_at
FROM video_notes
WHERE video_id = $1 AND user_id = $2
ORDER BY created_at DESC
LIMIT 1`

type GetLatestVideoNoteParams struct {
	VideoID uuid.UUID `json:"video_id"`
	UserID  uuid.UUID `json:"user_id"`
}

func (q *Queries) GetLatestVideoNote(ctx context.Context, arg GetLatestVideoNoteParams) (VideoNote, error) {
	row := q.db.QueryRowContext(ctx, getLatestVideoNote, arg.VideoID, arg.UserID)
	var i VideoNote
	err := row.Scan(
		&i.ID,
		&i.VideoID,
		&i.UserID,
		&i.Transcript,
		&i.Notes,
		&i.ActionItems,
		&i.ReducedAccuracy,
		&i.CreatedAt,
	)
	return i, err
}
