package chat

import (
	"context"
	"errors"
	"time"

	"github.com/janawaaz/civichub/internal/common"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func scopeFor(key SessionKey) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch key.Kind {
		case KeyBySession:
			return q.Where("session_id = ? AND user_id IS NULL", key.SessionID)
		case KeyByUser:
			return q.Where("user_id = ?", key.UserID).Order("updated_at DESC").Order("id DESC")
		case KeyBoth:
			return q.Where("session_id = ? AND (user_id = ? OR user_id IS NULL)", key.SessionID, key.UserID)
		default:
			return q.Where("1 = 0")
		}
	}
}

func findSession(q *gorm.DB, key SessionKey) (*Session, error) {
	var s Session
	if err := q.Scopes(scopeFor(key)).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func createSession(tx *gorm.DB, key SessionKey) (*Session, error) {
	s := &Session{SessionID: key.SessionID}
	if key.UserID != "" {
		uid := key.UserID
		s.UserID = &uid
	}
	if s.SessionID == "" {
		s.SessionID = common.NewSessionID()
	} else {
		// the id is taken but did not match the key: someone else owns it
		var n int64
		if err := tx.Model(&Session{}).Where("session_id = ?", s.SessionID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrSessionOwned
		}
	}
	if err := tx.Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// FindSession returns the session matching key, or ErrSessionNotFound.
func (r *Repo) FindSession(ctx context.Context, key SessionKey) (*Session, error) {
	return findSession(r.db.WithContext(ctx), key)
}

// OwnedElsewhere reports whether key names a session id that exists but is
// not reachable through key, i.e. it belongs to another user.
func (r *Repo) OwnedElsewhere(ctx context.Context, key SessionKey) (bool, error) {
	if key.SessionID == "" {
		return false, nil
	}
	_, err := r.FindSession(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return false, err
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&Session{}).Where("session_id = ?", key.SessionID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Append stores turns at the end of the transcript matching key, creating the
// session first if none matches. Turns are written in one transaction, in
// the order given.
func (r *Repo) Append(ctx context.Context, key SessionKey, turns ...Turn) (*Session, error) {
	if key.Kind == 0 {
		return nil, errors.New("chat: invalid session key")
	}

	var sess *Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := findSession(tx, key)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			if s, err = createSession(tx, key); err != nil {
				return err
			}
		case err != nil:
			return err
		case key.Kind == KeyBoth && s.UserID == nil:
			// claim the anonymous session for the signed-in user
			uid := key.UserID
			if err := tx.Model(s).Update("user_id", uid).Error; err != nil {
				return err
			}
			s.UserID = &uid
		}

		now := time.Now()
		if len(turns) > 0 {
			rows := make([]Turn, 0, len(turns))
			for _, t := range turns {
				t.ID = 0
				t.SessionID = s.SessionID
				t.Content = truncateRunes(t.Content, MaxTurnContentRunes)
				if t.CreatedAt.IsZero() {
					t.CreatedAt = now
				}
				rows = append(rows, t)
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(s).Update("updated_at", now).Error; err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// RecentTurns returns at most limit of the newest turns, oldest first.
func (r *Repo) RecentTurns(ctx context.Context, key SessionKey, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = DefaultHistoryWindow
	}
	s, err := r.FindSession(ctx, key)
	if err != nil {
		return nil, err
	}

	var desc []Turn
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", s.SessionID).
		Order("id DESC").
		Limit(limit).
		Find(&desc).Error; err != nil {
		return nil, err
	}

	// reverse to ASC (oldest -> newest)
	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	return desc, nil
}

// Read returns the session matching key and its full transcript in order.
func (r *Repo) Read(ctx context.Context, key SessionKey) (*Session, []Turn, error) {
	s, err := r.FindSession(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	var turns []Turn
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", s.SessionID).
		Order("id ASC").
		Find(&turns).Error; err != nil {
		return nil, nil, err
	}
	return s, turns, nil
}

// Clear deletes the session matching key and all its turns. It reports
// whether anything was deleted.
func (r *Repo) Clear(ctx context.Context, key SessionKey) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := findSession(tx, key)
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", s.SessionID).Delete(&Turn{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(s).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, reply *Reply) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"session_id":        reply.SessionID,
			"response":          reply.Response,
			"detected_language": reply.DetectedLanguage,
			"provider":          reply.Provider,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   JobFailed,
			"error":    errMsg,
			"response": nil,
		}).Error
}

func (r *Repo) GetJobByOwnerAndIdempotencyKey(ctx context.Context, ownerKey, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND idempotency_key = ?", ownerKey, key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting creates job, unless (owner_key, idempotency_key)
// already exists, in which case the existing job is returned with
// created=false.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	existing, err := r.GetJobByOwnerAndIdempotencyKey(ctx, job.OwnerKey, *job.IdempotencyKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	createErr := r.db.WithContext(ctx).Create(job).Error
	if createErr == nil {
		return job, true, nil
	}

	// lost a race with a concurrent insert of the same key
	existing, getErr := r.GetJobByOwnerAndIdempotencyKey(ctx, job.OwnerKey, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, createErr
	}
	return nil, false, getErr
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
