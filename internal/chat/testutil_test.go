package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/janawaaz/civichub/internal/ai"
	"github.com/janawaaz/civichub/internal/translate"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// recordingProvider echoes the last user message and remembers every prompt.
type recordingProvider struct {
	mu      sync.Mutex
	prompts [][]ai.Message
	reply   func(last string) string
	err     error
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	// copy to avoid mutations
	p.prompts = append(p.prompts, append([]ai.Message(nil), messages...))
	if p.err != nil {
		return "", p.err
	}
	last := messages[len(messages)-1].Content
	if p.reply != nil {
		return p.reply(last), nil
	}
	return "ok", nil
}

func (p *recordingProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

func (p *recordingProvider) last() []ai.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return nil
	}
	return p.prompts[len(p.prompts)-1]
}

// streamingProvider emits its reply word by word.
type streamingProvider struct {
	recordingProvider
	words []string
}

func (p *streamingProvider) StreamChat(ctx context.Context, messages []ai.Message) (<-chan string, <-chan error) {
	_, _ = p.recordingProvider.Chat(ctx, messages)
	chunks := make(chan string, len(p.words))
	errs := make(chan error, 1)
	for _, w := range p.words {
		chunks <- w
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func selectorFor(name string, p ai.Provider) *ai.Selector {
	return ai.NewSelectorFrom(ai.Descriptor{
		Name:         name,
		IsConfigured: func() bool { return true },
		New:          func() ai.Provider { return p },
	})
}

// fakeTranslator applies fn, or returns the text untouched with the same
// skip/unsupported rules as the real translator.
type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	fn    func(text, target string) (string, translate.Outcome)
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, translate.Outcome) {
	_ = ctx
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if source == target || target == "en" {
		return text, translate.OutcomeSkipped
	}
	if !translate.IsSupported(target) {
		return text, translate.OutcomeUnsupported
	}
	if f.fn != nil {
		return f.fn(text, target)
	}
	return "[" + target + "] " + text, translate.OutcomeTranslated
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishJob(ctx context.Context, jobID string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, jobID)
	return nil
}

func newTestService(t *testing.T, p ai.Provider) (*Service, *Repo) {
	t.Helper()
	repo := NewRepo(openTestDB(t))
	svc := NewService(repo, selectorFor("openrouter", p), &fakeTranslator{}, nil, "You are a civic assistant.", DefaultHistoryWindow)
	return svc, repo
}
