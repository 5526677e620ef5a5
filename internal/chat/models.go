package chat

import "time"

// Session is one persisted transcript. A nil UserID means the session is
// anonymous and reachable only through its SessionID.
type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	UserID    *string   `gorm:"type:varchar(64);index" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Turn is one role-tagged message. Turns are never updated; ID gives the
// insertion order.
type Turn struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(64);index;not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

func (Turn) TableName() string { return "chat_turns" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// MaxMessageRunes bounds an inbound user message.
	MaxMessageRunes = 2000
	// MaxTurnContentRunes bounds what is stored per turn.
	MaxTurnContentRunes = 8000
	// DefaultHistoryWindow is how many stored turns are replayed to the provider.
	DefaultHistoryWindow = 10
)

// Models lists every table this package owns, for AutoMigrate.
func Models() []any {
	return []any{&Session{}, &Turn{}, &Job{}}
}
