package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"habitbot/internal/reminder"
	kit "habitbot/internal/transport"
	logx "habitbot/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	to    []kit.ChatTarget
	block bool
	err   error
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                    { return nil }
func (f *fakeAdapter) EditText(context.Context, kit.MessageRef, string, *kit.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	if f.block {
		<-ctx.Done()
		return kit.MessageRef{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func TestDeliverSendsReminder(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	s := New(Config{}, ad, logx.Nop())
	h := reminder.Handle{ID: "1_2_3", UserID: 1, HabitID: 2, HabitName: "Бег <утро>"}
	if err := s.Deliver(context.Background(), h); err != nil {
		t.Fatalf("Deliver = %v", err)
	}
	if len(ad.sent) != 1 || ad.to[0].ChatID != 1 {
		t.Fatalf("sent = %v to %v", ad.sent, ad.to)
	}
	if !strings.Contains(ad.sent[0], "<b>Бег &lt;утро&gt;</b>") {
		t.Fatalf("text = %q", ad.sent[0])
	}
}

func TestDeliverIsTimeBounded(t *testing.T) {
	t.Parallel()

	s := New(Config{SendTimeout: 20 * time.Millisecond}, &fakeAdapter{block: true}, logx.Nop())
	err := s.Deliver(context.Background(), reminder.Handle{UserID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Deliver = %v, want deadline exceeded", err)
	}
}

func TestStopRejectsSends(t *testing.T) {
	t.Parallel()

	s := New(Config{}, &fakeAdapter{}, logx.Nop())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	if err := s.Deliver(context.Background(), reminder.Handle{UserID: 1}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Deliver after Stop = %v, want ErrStopped", err)
	}
}

func TestReminderMessageButtons(t *testing.T) {
	t.Parallel()

	msg := ReminderMessage(reminder.Handle{HabitID: 9, HabitName: "x"})
	if msg.Opt == nil || msg.Opt.ReplyMarkupAdapter == nil {
		t.Fatalf("reminder message has no keyboard")
	}
}
