package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/chat"
	"github.com/janawaaz/civichub/internal/common"
	"github.com/janawaaz/civichub/internal/translate"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

type chatReq struct {
	Message       string `json:"message" binding:"required"`
	SessionID     string `json:"sessionId" binding:"omitempty,max=64"`
	IgnoreHistory bool   `json:"ignoreHistory"`
}

func (r chatReq) toRequest(userID string) chat.Request {
	return chat.Request{
		Message:       r.Message,
		SessionID:     strings.TrimSpace(r.SessionID),
		UserID:        userID,
		IgnoreHistory: r.IgnoreHistory,
	}
}

func bindChatReq(c *gin.Context) (chatReq, bool) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailWithDetails(c, http.StatusBadRequest, 10001, "invalid request body", err.Error())
		return req, false
	}
	return req, true
}

// sessionKeyFromPath builds the lookup key for the history routes.
func sessionKeyFromPath(c *gin.Context) (chat.SessionKey, bool) {
	sid := strings.TrimSpace(c.Param("sessionId"))
	if sid == "" || len(sid) > 64 {
		common.Fail(c, http.StatusBadRequest, 10002, "sessionId is invalid")
		return chat.SessionKey{}, false
	}
	key, _ := chat.ResolveKey(userIDFromContext(c), sid)
	return key, true
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	req, ok := bindChatReq(c)
	if !ok {
		return
	}

	// a started exchange runs to completion even if the client goes away;
	// the provider client timeout still bounds it
	ctx := context.WithoutCancel(c.Request.Context())
	reply, err := h.ChatSvc.Chat(ctx, req.toRequest(userIDFromContext(c)))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, reply)
}

func (h *Handler) GetChatHistory(c *gin.Context) {
	key, ok := sessionKeyFromPath(c)
	if !ok {
		return
	}

	turns, err := h.ChatSvc.History(c.Request.Context(), key)
	if err != nil && !errors.Is(err, chat.ErrSessionNotFound) {
		h.fail(c, err)
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	common.OK(c, gin.H{
		"sessionId": key.SessionID,
		"messages":  turns,
	})
}

func (h *Handler) ClearChatHistory(c *gin.Context) {
	key, ok := sessionKeyFromPath(c)
	if !ok {
		return
	}
	if err := h.ChatSvc.ClearHistory(c.Request.Context(), key); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"message": "Chat history cleared"})
}

func (h *Handler) GetProvider(c *gin.Context) {
	name, err := h.ChatSvc.ActiveProvider()
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{
		"provider":           name,
		"supportedLanguages": translate.SupportedLanguages(),
	})
}

type streamResult struct {
	reply *chat.Reply
	err   error
}

// SendChatMessageStream answers over Server-Sent Events: chunk events while
// the provider streams, ping every 15s, then one done or error event. An
// error raised before the first event is returned as a plain JSON error.
func (h *Handler) SendChatMessageStream(c *gin.Context) {
	req, ok := bindChatReq(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	creq := req.toRequest(userIDFromContext(c))
	chunks := make(chan string, 16)
	result := make(chan streamResult, 1)

	go func() {
		reply, err := h.ChatSvc.ChatStream(ctx, creq, func(s string) error {
			select {
			case chunks <- s:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		result <- streamResult{reply: reply, err: err}
	}()

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	started := false
	clientGone := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		// avoid gin writing a JSON response later
		c.Status(http.StatusOK)
	}
	writeJSON := func(event string, payload any) {
		if clientGone {
			return
		}
		start()
		b, err := json.Marshal(payload)
		if err != nil {
			// last-resort: send a simple error that won't break SSE framing
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			c.Writer.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		c.Writer.Flush()
	}

	done := ctx.Done()
	for {
		select {
		case s := <-chunks:
			writeJSON("chunk", gin.H{"type": "chunk", "delta": s})

		case <-ticker.C:
			writeJSON("ping", gin.H{"type": "ping", "ts": time.Now().Unix()})

		case res := <-result:
			// chunks sent before the result are still buffered
			for drained := false; !drained; {
				select {
				case s := <-chunks:
					writeJSON("chunk", gin.H{"type": "chunk", "delta": s})
				default:
					drained = true
				}
			}
			if res.err != nil {
				if !started && !clientGone {
					h.fail(c, res.err)
					return
				}
				e := classify(res.err)
				if e.status >= http.StatusInternalServerError {
					h.reqLog(c).Error("chat stream failed", zap.Int("code", e.code), zap.Error(res.err))
				}
				writeJSON("error", gin.H{"type": "error", "code": e.code, "message": e.message, "details": e.details})
				return
			}
			writeJSON("done", gin.H{
				"type":             "done",
				"response":         res.reply.Response,
				"sessionId":        res.reply.SessionID,
				"detectedLanguage": res.reply.DetectedLanguage,
				"languageName":     res.reply.LanguageName,
				"provider":         res.reply.Provider,
				"translation":      res.reply.Translation,
			})
			return

		case <-done:
			// stop writing, but wait so the exchange finishes before the
			// gin context is recycled
			clientGone = true
			done = nil
			h.reqLog(c).Info("stream client disconnected", zap.Error(context.Cause(ctx)))
		}
	}
}
