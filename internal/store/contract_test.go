package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("start closes previous active session", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.StartSession(ctx, "u1", base)
		if err != nil {
			t.Fatalf("start first: %v", err)
		}
		second, err := s.StartSession(ctx, "u1", base.Add(10*time.Minute))
		if err != nil {
			t.Fatalf("start second: %v", err)
		}

		sessions, err := s.ListSessions(ctx, "u1")
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(sessions))
		}
		if sessions[0].ID != first.ID || sessions[1].ID != second.ID {
			t.Fatalf("sessions not ordered oldest first: %+v", sessions)
		}
		if sessions[0].IsActive || sessions[0].EndedAt == nil {
			t.Fatalf("first session should be closed: %+v", sessions[0])
		}
		if !sessions[0].EndedAt.Equal(base.Add(10 * time.Minute)) {
			t.Fatalf("unexpected ended_at %v", sessions[0].EndedAt)
		}
		if !sessions[1].IsActive || sessions[1].EndedAt != nil {
			t.Fatalf("second session should be active: %+v", sessions[1])
		}

		active, ok, err := s.ActiveSession(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("active session: ok=%v err=%v", ok, err)
		}
		if active.ID != second.ID {
			t.Fatalf("expected active %s, got %s", second.ID, active.ID)
		}
	})

	t.Run("end active sessions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ended, err := s.EndActiveSessions(ctx, "u1", base)
		if err != nil {
			t.Fatalf("end without sessions: %v", err)
		}
		if ended != 0 {
			t.Fatalf("expected 0 ended, got %d", ended)
		}

		if _, err := s.StartSession(ctx, "u1", base); err != nil {
			t.Fatalf("start: %v", err)
		}
		ended, err = s.EndActiveSessions(ctx, "u1", base.Add(time.Hour))
		if err != nil {
			t.Fatalf("end: %v", err)
		}
		if ended != 1 {
			t.Fatalf("expected 1 ended, got %d", ended)
		}
		if _, ok, _ := s.ActiveSession(ctx, "u1"); ok {
			t.Fatal("expected no active session after end")
		}
	})

	t.Run("users are independent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, _ := s.StartSession(ctx, "alice", base)
		if _, err := s.StartSession(ctx, "bob", base); err != nil {
			t.Fatalf("start bob: %v", err)
		}

		active, ok, err := s.ActiveSession(ctx, "alice")
		if err != nil || !ok || active.ID != a.ID {
			t.Fatalf("alice lost her active session: %+v ok=%v err=%v", active, ok, err)
		}
	})

	t.Run("messages keep creation order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		session, _ := s.StartSession(ctx, "u1", base)

		contents := []string{"one", "two", "three", "four"}
		for i, content := range contents {
			sender := chat.SenderUser
			if i%2 == 1 {
				sender = chat.SenderAssistant
			}
			if _, err := s.AppendMessage(ctx, chat.Message{
				SessionID: session.ID,
				UserID:    "u1",
				Sender:    sender,
				Content:   content,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				t.Fatalf("append %q: %v", content, err)
			}
		}

		all, err := s.ListMessages(ctx, session.ID, 0)
		if err != nil {
			t.Fatalf("list messages: %v", err)
		}
		if len(all) != len(contents) {
			t.Fatalf("expected %d messages, got %d", len(contents), len(all))
		}
		for i, msg := range all {
			if msg.Content != contents[i] {
				t.Fatalf("message %d: expected %q, got %q", i, contents[i], msg.Content)
			}
		}

		window, err := s.ListMessages(ctx, session.ID, 2)
		if err != nil {
			t.Fatalf("list window: %v", err)
		}
		if len(window) != 2 || window[0].Content != "three" || window[1].Content != "four" {
			t.Fatalf("unexpected window: %+v", window)
		}
	})

	t.Run("same timestamp keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		session, _ := s.StartSession(ctx, "u1", base)

		for _, content := range []string{"a", "b", "c"} {
			if _, err := s.AppendMessage(ctx, chat.Message{
				SessionID: session.ID, UserID: "u1", Sender: chat.SenderUser, Content: content, CreatedAt: base,
			}); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		msgs, _ := s.ListMessages(ctx, session.ID, 0)
		if len(msgs) != 3 || msgs[0].Content != "a" || msgs[2].Content != "c" {
			t.Fatalf("unexpected order: %+v", msgs)
		}
	})

	t.Run("append to unknown session", func(t *testing.T) {
		s := newStore(t)
		_, err := s.AppendMessage(context.Background(), chat.Message{SessionID: "missing", UserID: "u1", Sender: chat.SenderUser, Content: "hi"})
		if !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("message status", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		session, _ := s.StartSession(ctx, "u1", base)

		msg, err := s.AppendMessage(ctx, chat.Message{
			SessionID: session.ID, UserID: "u1", Sender: chat.SenderUser, Content: "hello", Status: chat.StatusPending, CreatedAt: base,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := s.SetMessageStatus(ctx, msg.ID, chat.StatusFailed); err != nil {
			t.Fatalf("set status: %v", err)
		}
		msgs, _ := s.ListMessages(ctx, session.ID, 0)
		if msgs[0].Status != chat.StatusFailed {
			t.Fatalf("expected failed status, got %q", msgs[0].Status)
		}
		if err := s.SetMessageStatus(ctx, "missing", chat.StatusAnswered); !errors.Is(err, ErrMessageNotFound) {
			t.Fatalf("expected ErrMessageNotFound, got %v", err)
		}
	})

	t.Run("one sentiment per user message", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		session, _ := s.StartSession(ctx, "u1", base)

		userMsg, _ := s.AppendMessage(ctx, chat.Message{SessionID: session.ID, UserID: "u1", Sender: chat.SenderUser, Content: "happy", CreatedAt: base})
		botMsg, _ := s.AppendMessage(ctx, chat.Message{SessionID: session.ID, UserID: "u1", Sender: chat.SenderAssistant, Content: "glad", CreatedAt: base.Add(time.Second)})

		rec := chat.SentimentRecord{MessageID: userMsg.ID, Score: 0.6, Label: sentiment.Positive}
		if err := s.SaveSentiment(ctx, rec); err != nil {
			t.Fatalf("save sentiment: %v", err)
		}
		if err := s.SaveSentiment(ctx, rec); !errors.Is(err, ErrAlreadyScored) {
			t.Fatalf("expected ErrAlreadyScored, got %v", err)
		}
		if err := s.SaveSentiment(ctx, chat.SentimentRecord{MessageID: botMsg.ID, Score: 0.4, Label: sentiment.Positive}); !errors.Is(err, ErrNotUserMessage) {
			t.Fatalf("expected ErrNotUserMessage, got %v", err)
		}

		scores, err := s.ListScores(ctx, "u1")
		if err != nil {
			t.Fatalf("list scores: %v", err)
		}
		if len(scores) != 1 || scores[0].MessageID != userMsg.ID || scores[0].SessionID != session.ID || scores[0].Score != 0.6 {
			t.Fatalf("unexpected scores: %+v", scores)
		}
	})

	t.Run("scores span sessions in creation order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var want []float64
		for i := 0; i < 2; i++ {
			start := base.Add(time.Duration(i) * time.Hour)
			session, err := s.StartSession(ctx, "u1", start)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			for j := 0; j < 2; j++ {
				score := float64(i*2+j) / 10
				msg, _ := s.AppendMessage(ctx, chat.Message{
					SessionID: session.ID, UserID: "u1", Sender: chat.SenderUser, Content: "x",
					CreatedAt: start.Add(time.Duration(j) * time.Minute),
				})
				if err := s.SaveSentiment(ctx, chat.SentimentRecord{MessageID: msg.ID, Score: score, Label: sentiment.LabelFor(score)}); err != nil {
					t.Fatalf("save: %v", err)
				}
				want = append(want, score)
			}
		}

		scores, err := s.ListScores(ctx, "u1")
		if err != nil {
			t.Fatalf("list scores: %v", err)
		}
		if len(scores) != len(want) {
			t.Fatalf("expected %d scores, got %d", len(want), len(scores))
		}
		for i, sc := range scores {
			if sc.Score != want[i] {
				t.Fatalf("score %d: expected %v, got %v", i, want[i], sc.Score)
			}
		}
	})

	t.Run("delete user data", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		session, _ := s.StartSession(ctx, "u1", base)
		msg, _ := s.AppendMessage(ctx, chat.Message{SessionID: session.ID, UserID: "u1", Sender: chat.SenderUser, Content: "sad", CreatedAt: base})
		_ = s.SaveSentiment(ctx, chat.SentimentRecord{MessageID: msg.ID, Score: -0.4, Label: sentiment.Negative})
		other, _ := s.StartSession(ctx, "u2", base)

		for i := 0; i < 2; i++ {
			if err := s.DeleteUserData(ctx, "u1"); err != nil {
				t.Fatalf("delete attempt %d: %v", i+1, err)
			}
		}

		sessions, _ := s.ListSessions(ctx, "u1")
		scores, _ := s.ListScores(ctx, "u1")
		if len(sessions) != 0 || len(scores) != 0 {
			t.Fatalf("expected no data left, sessions=%d scores=%d", len(sessions), len(scores))
		}
		active, ok, _ := s.ActiveSession(ctx, "u2")
		if !ok || active.ID != other.ID {
			t.Fatal("other user's data must survive")
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
