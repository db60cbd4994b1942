package uploader

import "sync"

// Session is the per-user state of one CLI run: the latest upload and the
// current pipeline progress.
type Session struct {
	userID string

	mu       sync.RWMutex
	latest   *UploadRecord
	progress int
}

func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

func (s *Session) UserID() string {
	return s.userID
}

// Latest returns a copy of the most recent upload.
func (s *Session) Latest() (UploadRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return UploadRecord{}, false
	}
	return *s.latest, true
}

func (s *Session) SetLatest(rec *UploadRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		s.latest = nil
		return
	}
	cp := *rec
	s.latest = &cp
}

// Progress is a percentage in [0, 100].
func (s *Session) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Session) setProgress(p int) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}
