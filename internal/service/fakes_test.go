package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUsageStore is an in-memory UsageStore. Writes counts how many times a
// ledger was persisted.
type memUsageStore struct {
	mu     sync.Mutex
	ledger map[uuid.UUID]domain.Usage
	writes int
	err    error
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{ledger: make(map[uuid.UUID]domain.Usage)}
}

func (m *memUsageStore) put(id uuid.UUID, u domain.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[id] = u
}

func (m *memUsageStore) get(id uuid.UUID) domain.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger[id]
}

func (m *memUsageStore) UpdateUsage(ctx context.Context, userID uuid.UUID, fn func(*domain.Usage) bool) (domain.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Usage{}, m.err
	}
	u, ok := m.ledger[userID]
	if !ok {
		return domain.Usage{}, sql.ErrNoRows
	}
	if fn(&u) {
		m.ledger[userID] = u
		m.writes++
	}
	return u, nil
}

func (m *memUsageStore) LoadUsage(ctx context.Context, userID uuid.UUID) (domain.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.ledger[userID]
	if !ok {
		return domain.Usage{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUsageStore) DecrementUsage(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.ledger[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	u.Count--
	m.ledger[userID] = u
	m.writes++
	return u.Count, nil
}

// memVideoQueries is an in-memory VideoQueries.
type memVideoQueries struct {
	mu        sync.Mutex
	videos    map[uuid.UUID]repository.Video
	notes     []repository.VideoNote
	statuses  []domain.VideoStatus
	createErr error
	noteErr   error
	now       time.Time
}

func newMemVideoQueries() *memVideoQueries {
	return &memVideoQueries{
		videos: make(map[uuid.UUID]repository.Video),
		now:    time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memVideoQueries) CreateVideo(ctx context.Context, arg repository.CreateVideoParams) (repository.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return repository.Video{}, m.createErr
	}
	v := repository.Video{
		ID:          arg.ID,
		UserID:      arg.UserID,
		Filename:    arg.Filename,
		StorageKey:  arg.StorageKey,
		PosterKey:   arg.PosterKey,
		ContentType: arg.ContentType,
		SizeBytes:   arg.SizeBytes,
		Status:      arg.Status,
		UploadedAt:  m.now,
	}
	m.videos[v.ID] = v
	return v, nil
}

func (m *memVideoQueries) GetVideoByIDAndUser(ctx context.Context, arg repository.GetVideoByIDAndUserParams) (repository.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[arg.ID]
	if !ok || v.UserID != arg.UserID {
		return repository.Video{}, sql.ErrNoRows
	}
	return v, nil
}

func (m *memVideoQueries) ListVideosByUser(ctx context.Context, arg repository.ListVideosByUserParams) ([]repository.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Video
	for _, v := range m.videos {
		if v.UserID != arg.UserID {
			continue
		}
		if arg.From.Valid && v.UploadedAt.Before(arg.From.Time) {
			continue
		}
		if arg.To.Valid && !v.UploadedAt.Before(arg.To.Time) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *memVideoQueries) UpdateVideoStatus(ctx context.Context, arg repository.UpdateVideoStatusParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.videos[arg.ID]
	v.Status = arg.Status
	m.videos[arg.ID] = v
	m.statuses = append(m.statuses, domain.VideoStatus(arg.Status))
	return nil
}

func (m *memVideoQueries) CreateVideoNote(ctx context.Context, arg repository.CreateVideoNoteParams) (repository.VideoNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noteErr != nil {
		return repository.VideoNote{}, m.noteErr
	}
	n := repository.VideoNote{
		ID:              uuid.New(),
		VideoID:         arg.VideoID,
		UserID:          arg.UserID,
		Transcript:      arg.Transcript,
		Notes:           arg.Notes,
		ActionItems:     arg.ActionItems,
		ReducedAccuracy: arg.ReducedAccuracy,
		CreatedAt:       m.now,
	}
	m.notes = append(m.notes, n)
	return n, nil
}

func (m *memVideoQueries) GetLatestVideoNote(ctx context.Context, arg repository.GetLatestVideoNoteParams) (repository.VideoNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.notes) - 1; i >= 0; i-- {
		n := m.notes[i]
		if n.VideoID == arg.VideoID && n.UserID == arg.UserID {
			return n, nil
		}
	}
	return repository.VideoNote{}, sql.ErrNoRows
}

func (m *memVideoQueries) video(id uuid.UUID) repository.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videos[id]
}

// memUserQueries is an in-memory UserQueries.
type memUserQueries struct {
	mu       sync.Mutex
	users    map[uuid.UUID]repository.User
	sessions map[string]repository.Session
	now      func() time.Time
}

func newMemUserQueries(now func() time.Time) *memUserQueries {
	return &memUserQueries{
		users:    make(map[uuid.UUID]repository.User),
		sessions: make(map[string]repository.Session),
		now:      now,
	}
}

func (m *memUserQueries) find(match func(repository.User) bool) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (m *memUserQueries) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	if _, err := m.GetUserByEmail(ctx, arg.Email); err == nil {
		return repository.User{}, errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := repository.User{
		ID:                  uuid.New(),
		Name:                arg.Name,
		Username:            arg.Username,
		Email:               arg.Email,
		PasswordHash:        arg.PasswordHash,
		UserType:            arg.UserType,
		Tier:                arg.Tier,
		UsageCount:          arg.UsageCount,
		LastResetAt:         m.now(),
		VerifyCode:          arg.VerifyCode,
		VerifyCodeExpiresAt: arg.VerifyCodeExpiresAt,
		CreatedAt:           m.now(),
		UpdatedAt:           m.now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUserQueries) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	return m.find(func(u repository.User) bool { return u.ID == id })
}

func (m *memUserQueries) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	return m.find(func(u repository.User) bool { return u.Email == email })
}

func (m *memUserQueries) GetVerifiedUserByUsername(ctx context.Context, username string) (repository.User, error) {
	return m.find(func(u repository.User) bool { return u.Username == username && u.IsVerified })
}

func (m *memUserQueries) GetUnverifiedUserByUsername(ctx context.Context, username string) (repository.User, error) {
	return m.find(func(u repository.User) bool { return u.Username == username && !u.IsVerified })
}

func (m *memUserQueries) GetUserByIdentifier(ctx context.Context, identifier string) (repository.User, error) {
	lower := strings.ToLower(identifier)
	return m.find(func(u repository.User) bool {
		return u.Email == lower || (u.Username == identifier && u.IsVerified)
	})
}

func (m *memUserQueries) GetUserByStripeCustomerID(ctx context.Context, id sql.NullString) (repository.User, error) {
	return m.find(func(u repository.User) bool { return u.StripeCustomerID.Valid && u.StripeCustomerID == id })
}

func (m *memUserQueries) update(id uuid.UUID, fn func(*repository.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return
	}
	fn(&u)
	m.users[id] = u
}

func (m *memUserQueries) RefreshUnverifiedUser(ctx context.Context, arg repository.RefreshUnverifiedUserParams) error {
	m.update(arg.ID, func(u *repository.User) {
		if u.IsVerified {
			return
		}
		u.Name = arg.Name
		u.Username = arg.Username
		u.PasswordHash = arg.PasswordHash
		u.UserType = arg.UserType
		u.VerifyCode = arg.VerifyCode
		u.VerifyCodeExpiresAt = arg.VerifyCodeExpiresAt
	})
	return nil
}

func (m *memUserQueries) MarkUserVerified(ctx context.Context, id uuid.UUID) error {
	m.update(id, func(u *repository.User) {
		u.IsVerified = true
		u.VerifyCode = ""
	})
	return nil
}

func (m *memUserQueries) UpdateUserTier(ctx context.Context, arg repository.UpdateUserTierParams) error {
	m.update(arg.ID, func(u *repository.User) { u.Tier = arg.Tier })
	return nil
}

func (m *memUserQueries) UpdateUserStripeCustomer(ctx context.Context, arg repository.UpdateUserStripeCustomerParams) error {
	m.update(arg.ID, func(u *repository.User) { u.StripeCustomerID = arg.StripeCustomerID })
	return nil
}

func (m *memUserQueries) CreateSession(ctx context.Context, arg repository.CreateSessionParams) (repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := repository.Session{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: m.now(),
	}
	m.sessions[arg.TokenHash] = s
	return s, nil
}

func (m *memUserQueries) GetUserBySessionToken(ctx context.Context, tokenHash string) (repository.User, error) {
	m.mu.Lock()
	s, ok := m.sessions[tokenHash]
	m.mu.Unlock()
	if !ok || !s.ExpiresAt.After(m.now()) {
		return repository.User{}, sql.ErrNoRows
	}
	return m.GetUserByID(ctx, s.UserID)
}

func (m *memUserQueries) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *memUserQueries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if !s.ExpiresAt.After(m.now()) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// fakeMailer records verification codes.
type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (f *fakeMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.codes == nil {
		f.codes = make(map[string]string)
	}
	f.codes[to] = code
	return nil
}

func (f *fakeMailer) code(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[to]
}
