package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/janawaaz/civichub/internal/ai"
	"github.com/janawaaz/civichub/internal/common"
	"github.com/janawaaz/civichub/internal/langdetect"
	"github.com/janawaaz/civichub/internal/translate"
	"go.uber.org/zap"
)

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, translate.Outcome)
}

type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Request struct {
	Message       string
	SessionID     string
	UserID        string
	IgnoreHistory bool
}

type Reply struct {
	Response         string            `json:"response"`
	SessionID        string            `json:"sessionId"`
	DetectedLanguage string            `json:"detectedLanguage"`
	LanguageName     string            `json:"languageName"`
	Provider         string            `json:"provider"`
	Translation      translate.Outcome `json:"translation"`
}

type Service struct {
	repo          *Repo
	selector      *ai.Selector
	translator    Translator
	publisher     JobPublisher
	log           *zap.Logger
	systemPrompt  string
	historyWindow int
	locks         *keyedMutex
}

func NewService(repo *Repo, selector *ai.Selector, translator Translator, log *zap.Logger, systemPrompt string, historyWindow int) *Service {
	if historyWindow <= 0 || historyWindow > 100 {
		historyWindow = DefaultHistoryWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:          repo,
		selector:      selector,
		translator:    translator,
		log:           log,
		systemPrompt:  systemPrompt,
		historyWindow: historyWindow,
		locks:         newKeyedMutex(),
	}
}

// WithPublisher enables EnqueueJob.
func (s *Service) WithPublisher(p JobPublisher) *Service {
	s.publisher = p
	return s
}

func validateMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		return "", fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, MaxMessageRunes)
	}
	return msg, nil
}

// resolve returns the lookup key for req. Without any identifier a fresh
// anonymous session id is generated and hadKey is false.
func resolve(req Request) (key SessionKey, hadKey bool) {
	if key, ok := ResolveKey(req.UserID, req.SessionID); ok {
		return key, true
	}
	return BySession(common.NewAnonymousSessionID()), false
}

// exchange is everything decided before the provider is called.
type exchange struct {
	key      SessionKey
	message  string
	lang     langdetect.Code
	provider ai.Descriptor
	prompt   []ai.Message
}

func (s *Service) prepare(ctx context.Context, key SessionKey, hadKey bool, msg string, ignoreHistory bool) (*exchange, error) {
	lang := langdetect.Detect(msg)

	desc, err := s.selector.Select()
	if err != nil {
		return nil, err
	}

	var history []Turn
	if hadKey {
		owned, err := s.repo.OwnedElsewhere(ctx, key)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, ErrSessionOwned
		}
		if !ignoreHistory {
			history, err = s.repo.RecentTurns(ctx, key, s.historyWindow)
			if err != nil && !errors.Is(err, ErrSessionNotFound) {
				// history is advisory context; go on without it
				s.log.Warn("read chat history failed", zap.Stringer("key", key), zap.Error(err))
				history = nil
			}
		}
	}

	return &exchange{
		key:      key,
		message:  msg,
		lang:     lang,
		provider: desc,
		prompt:   BuildPrompt(s.systemPrompt, history, s.historyWindow, msg),
	}, nil
}

// Chat runs one exchange: detect language, call the selected provider,
// translate the reply and persist both turns.
func (s *Service) Chat(ctx context.Context, req Request) (*Reply, error) {
	msg, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}
	key, hadKey := resolve(req)

	unlock := s.locks.LockAll(key.lockNames()...)
	defer unlock()

	ex, err := s.prepare(ctx, key, hadKey, msg, req.IgnoreHistory)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := ex.provider.New().Chat(ctx, ex.prompt)
	if err != nil {
		s.log.Error("provider call failed",
			zap.String("provider", ex.provider.Name), zap.Stringer("key", key),
			zap.Duration("cost", time.Since(start)), zap.Error(err))
		return nil, err
	}

	return s.finish(ctx, ex, raw, time.Since(start))
}

// ChatStream is Chat with the provider output forwarded to onChunk as it
// arrives. The returned Reply carries the final, possibly translated text.
// Providers without streaming support deliver the whole reply as one chunk.
// Once onChunk fails the stream is still drained so the exchange is saved.
func (s *Service) ChatStream(ctx context.Context, req Request, onChunk func(string) error) (*Reply, error) {
	msg, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}
	key, hadKey := resolve(req)

	unlock := s.locks.LockAll(key.lockNames()...)
	defer unlock()

	ex, err := s.prepare(ctx, key, hadKey, msg, req.IgnoreHistory)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	provider := ex.provider.New()
	sp, ok := provider.(ai.StreamProvider)
	if !ok {
		raw, err := provider.Chat(ctx, ex.prompt)
		if err != nil {
			return nil, err
		}
		_ = onChunk(raw)
		return s.finish(ctx, ex, raw, time.Since(start))
	}

	chunks, errs := sp.StreamChat(ctx, ex.prompt)
	var b strings.Builder
	forward := true
	for c := range chunks {
		b.WriteString(c)
		if forward && onChunk(c) != nil {
			forward = false
		}
	}
	if err := <-errs; err != nil {
		s.log.Error("provider stream failed",
			zap.String("provider", ex.provider.Name), zap.Stringer("key", key), zap.Error(err))
		return nil, err
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil, &ai.ProviderError{Provider: ex.provider.Name, Detail: "empty response"}
	}

	return s.finish(ctx, ex, b.String(), time.Since(start))
}

// finish translates and persists. It runs detached from ctx so a client
// that disconnects after the provider answered still gets its history saved.
func (s *Service) finish(ctx context.Context, ex *exchange, raw string, providerCost time.Duration) (*Reply, error) {
	ctx = context.WithoutCancel(ctx)

	name := langdetect.Name(ex.lang)
	final, outcome := s.translator.Translate(ctx, raw, string(langdetect.English), string(ex.lang))
	if outcome.Degraded() {
		final += "\n\n" + degradeNote(outcome, name)
	}
	// the caller gets exactly what history keeps
	final = truncateRunes(final, MaxTurnContentRunes)

	sess, err := s.repo.Append(ctx, ex.key,
		Turn{Role: RoleUser, Content: ex.message},
		Turn{Role: RoleAssistant, Content: final},
	)
	if err != nil {
		s.log.Error("save chat history failed", zap.Stringer("key", ex.key), zap.Error(err))
		if errors.Is(err, ErrSessionOwned) {
			return nil, err
		}
		return nil, fmt.Errorf("save chat history: %w", err)
	}

	s.log.Info("chat served",
		zap.String("session_id", sess.SessionID),
		zap.String("provider", ex.provider.Name),
		zap.String("lang", string(ex.lang)),
		zap.String("translation", string(outcome)),
		zap.Int("prompt_messages", len(ex.prompt)),
		zap.Duration("provider_cost", providerCost),
	)

	return &Reply{
		Response:         final,
		SessionID:        sess.SessionID,
		DetectedLanguage: string(ex.lang),
		LanguageName:     name,
		Provider:         ex.provider.Name,
		Translation:      outcome,
	}, nil
}

func degradeNote(outcome translate.Outcome, langName string) string {
	if outcome == translate.OutcomeUnsupported {
		return fmt.Sprintf("(Translation to %s is not fully supported yet, so this reply is shown in English.)", langName)
	}
	return fmt.Sprintf("(We could not translate this reply to %s right now, so it is shown in English.)", langName)
}

// History returns the full transcript for key.
func (s *Service) History(ctx context.Context, key SessionKey) ([]Turn, error) {
	_, turns, err := s.repo.Read(ctx, key)
	return turns, err
}

// ClearHistory deletes the transcript for key. Clearing a missing session is
// not an error.
func (s *Service) ClearHistory(ctx context.Context, key SessionKey) error {
	unlock := s.locks.LockAll(key.lockNames()...)
	defer unlock()

	deleted, err := s.repo.Clear(ctx, key)
	if err != nil {
		return err
	}
	s.log.Info("chat history cleared", zap.Stringer("key", key), zap.Bool("deleted", deleted))
	return nil
}

// ActiveProvider names the provider the next chat would use.
func (s *Service) ActiveProvider() (string, error) {
	d, err := s.selector.Select()
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// EnqueueJob records a chat job and publishes it for the worker. With an
// idempotency key, a repeated request returns the first job and is not
// published again.
func (s *Service) EnqueueJob(ctx context.Context, req Request, idempotencyKey string) (*Job, error) {
	if s.publisher == nil {
		return nil, ErrAsyncDisabled
	}
	msg, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}
	key, hadKey := resolve(req)
	idemKey := strings.TrimSpace(idempotencyKey)
	if idemKey != "" && !hadKey {
		return nil, ErrIdempotencyNeedsOwner
	}

	jobID, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	j := &Job{
		ID:            jobID,
		OwnerKey:      key.UserID,
		SessionID:     key.SessionID,
		Message:       msg,
		IgnoreHistory: req.IgnoreHistory,
		Status:        JobQueued,
	}
	if key.UserID != "" {
		uid := key.UserID
		j.UserID = &uid
	} else {
		j.OwnerKey = key.SessionID
	}
	if idemKey != "" {
		j.IdempotencyKey = &idemKey
	}

	job, created, err := s.repo.CreateJobOrGetExisting(ctx, j)
	if err != nil {
		return nil, err
	}
	if !created {
		return job, nil
	}

	if err := s.publisher.PublishJob(ctx, job.ID); err != nil {
		s.log.Error("publish chat job failed", zap.String("job_id", job.ID), zap.Error(err))
		_ = s.repo.MarkJobFailed(context.WithoutCancel(ctx), job.ID, "enqueue failed")
		return nil, fmt.Errorf("publish job: %w", err)
	}
	return job, nil
}

// GetJob returns a job if userID may see it. Jobs of signed-in users are
// private to them; anonymous jobs are reachable by id alone.
func (s *Service) GetJob(ctx context.Context, jobID, userID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.UserID != nil && *j.UserID != userID {
		// hide existence
		return nil, ErrJobNotFound
	}
	return j, nil
}

// ProcessJob runs a queued job through Chat and records the outcome.
func (s *Service) ProcessJob(ctx context.Context, jobID string) error {
	if err := s.repo.UpdateJobStatusRunning(ctx, jobID); err != nil {
		return err
	}
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Status == JobSucceeded || j.Status == JobFailed {
		// redelivered after completion
		return nil
	}

	req := Request{Message: j.Message, SessionID: j.SessionID, IgnoreHistory: j.IgnoreHistory}
	if j.UserID != nil {
		req.UserID = *j.UserID
	}

	reply, err := s.Chat(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted, not failed; the job stays running and is redelivered
			return err
		}
		if markErr := s.repo.MarkJobFailed(context.WithoutCancel(ctx), jobID, err.Error()); markErr != nil {
			s.log.Error("mark job failed", zap.String("job_id", jobID), zap.Error(markErr))
		}
		return err
	}
	return s.repo.MarkJobSucceeded(context.WithoutCancel(ctx), jobID, reply)
}
