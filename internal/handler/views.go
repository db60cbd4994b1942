package handler

import (
	"time"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// userView is the public JSON form of an account.
type userView struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	UserType    string    `json:"userType"`
	Tier        string    `json:"tier"`
	UsageCount  int       `json:"usage_count"`
	LastResetAt time.Time `json:"lastResetAt"`
	IsVerified  bool      `json:"isVerified"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:          u.ID.String(),
		Name:        u.Name,
		Username:    u.Username,
		Email:       u.Email,
		UserType:    string(u.UserType),
		Tier:        string(u.Tier),
		UsageCount:  u.UsageCount,
		LastResetAt: u.LastResetAt,
		IsVerified:  u.IsVerified,
	}
}

// videoView matches the upload record the client caches.
type videoView struct {
	ID        string    `json:"_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	SizeBytes int64     `json:"sizeBytes"`
}

func newVideoView(v *domain.Video) videoView {
	return videoView{
		ID:        v.ID.String(),
		Filename:  v.Filename,
		CreatedAt: v.UploadedAt,
		URL:       v.URL,
		Status:    string(v.Status),
		SizeBytes: v.SizeBytes,
	}
}

type notesView struct {
	ID              string              `json:"_id"`
	VideoID         string              `json:"videoId"`
	Transcript      string              `json:"transcript"`
	Summary         string              `json:"summary"`
	ActionItems     []domain.ActionItem `json:"actionItems"`
	ReducedAccuracy bool                `json:"reducedAccuracy"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func newNotesView(n *domain.Notes) notesView {
	items := n.ActionItems
	if items == nil {
		items = []domain.ActionItem{}
	}
	return notesView{
		ID:              n.ID.String(),
		VideoID:         n.VideoID.String(),
		Transcript:      n.Transcript,
		Summary:         n.Summary,
		ActionItems:     items,
		ReducedAccuracy: n.ReducedAccuracy,
		CreatedAt:       n.CreatedAt,
	}
}
