package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	to      string
	subject string
	text    string
	body    string
}

type recordingMailer struct {
	mu    sync.Mutex
	sent  []sentEmail
	err   error
	delay time.Duration
}

func (m *recordingMailer) Send(_ context.Context, email Email) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: email.To, subject: email.Subject, text: email.Text, body: email.HTML})
	return nil
}

func (m *recordingMailer) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

type mapDirectory struct {
	emails map[uuid.UUID]string
	err    error
}

func (d mapDirectory) GetEmail(_ context.Context, userID uuid.UUID) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.emails[userID], nil
}

func startBatcher(t *testing.T, window time.Duration, mailer Mailer, dir UserDirectory) *EmailBatcher {
	t.Helper()
	b := NewEmailBatcher(window, mailer, dir, zerolog.Nop())
	go b.Run(context.Background())
	t.Cleanup(b.Close)
	return b
}

func TestEmailBatcher_SingleEventSendsLiteralContent(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{}
	b := startBatcher(t, 20*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "mentee@example.com"}})

	b.Enqueue(user, "Booking accepted", "Your session on **Monday** is confirmed.")

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	sent := mailer.Sent()[0]
	assert.Equal(t, "mentee@example.com", sent.to)
	assert.Equal(t, "Booking accepted", sent.subject)
	assert.Equal(t, "Your session on **Monday** is confirmed.", sent.text)
	assert.Contains(t, sent.body, "<strong>Monday</strong>")
}

func TestEmailBatcher_BurstCoalescesIntoDigest(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{}
	b := startBatcher(t, 50*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "mentor@example.com"}})

	for i := 0; i < 5; i++ {
		b.Enqueue(user, fmt.Sprintf("New booking %d", i), fmt.Sprintf("secret detail %d", i))
	}

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	require.Len(t, mailer.Sent(), 1)

	sent := mailer.Sent()[0]
	assert.Equal(t, "You have 5 new notifications", sent.subject)
	assert.Contains(t, sent.body, "5 new notifications")
	assert.NotContains(t, sent.body, "secret detail")
	assert.NotContains(t, sent.text, "secret detail")
}

func TestEmailBatcher_EventsOutsideWindowSendSeparately(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{}
	b := startBatcher(t, 20*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "mentee@example.com"}})

	b.Enqueue(user, "First", "first body")
	require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, time.Second, 5*time.Millisecond)

	b.Enqueue(user, "Second", "second body")
	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, time.Second, 5*time.Millisecond)

	sent := mailer.Sent()
	assert.Equal(t, "First", sent[0].subject)
	assert.Equal(t, "Second", sent[1].subject)
}

func TestEmailBatcher_RecipientsAreBatchedIndependently(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	mailer := &recordingMailer{}
	b := startBatcher(t, 20*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{
		alice: "alice@example.com",
		bob:   "bob@example.com",
	}})

	b.Enqueue(alice, "A1", "a")
	b.Enqueue(bob, "B1", "b")
	b.Enqueue(alice, "A2", "a")

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, time.Second, 5*time.Millisecond)

	byRecipient := map[string]string{}
	for _, s := range mailer.Sent() {
		byRecipient[s.to] = s.subject
	}
	assert.Equal(t, "You have 2 new notifications", byRecipient["alice@example.com"])
	assert.Equal(t, "B1", byRecipient["bob@example.com"])
}

func TestEmailBatcher_SlowDeliveryDoesNotBlockEnqueue(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	mailer := &recordingMailer{delay: 200 * time.Millisecond}
	b := startBatcher(t, 10*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{
		alice: "alice@example.com",
		bob:   "bob@example.com",
	}})

	b.Enqueue(alice, "A1", "a")
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	b.Enqueue(bob, "B1", "b")
	b.Flush()
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestEmailBatcher_FlushSendsImmediately(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{}
	b := startBatcher(t, time.Hour, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "mentee@example.com"}})

	b.Enqueue(user, "Hello", "body")
	b.Flush()

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmailBatcher_CloseFlushesOpenBatches(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{}
	b := NewEmailBatcher(time.Hour, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "mentee@example.com"}}, zerolog.Nop())
	go b.Run(context.Background())

	b.Enqueue(user, "Hello", "body")
	b.Close()

	assert.Len(t, mailer.Sent(), 1)
}

func TestEmailBatcher_CancelledContextKeepsQueuedAndDropsLate(t *testing.T) {
	early, late := uuid.New(), uuid.New()
	mailer := &recordingMailer{}
	dir := mapDirectory{emails: map[uuid.UUID]string{early: "early@example.com", late: "late@example.com"}}
	b := NewEmailBatcher(time.Hour, mailer, dir, zerolog.Nop())

	// queued before Run starts, so still in the buffer when ctx is already cancelled
	b.Enqueue(early, "Queued", "queued body")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	b.Enqueue(late, "Late", "late body")

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "early@example.com", sent[0].to)
	assert.Equal(t, "queued body", sent[0].text)

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	assert.True(t, closed)
	assert.Empty(t, b.enqueue)
}

func TestEmailBatcher_FailuresAreSwallowed(t *testing.T) {
	user := uuid.New()
	mailer := &recordingMailer{err: errors.New("smtp down")}
	b := startBatcher(t, 10*time.Millisecond, mailer, mapDirectory{err: errors.New("directory down")})

	b.Enqueue(user, "Hello", "body")
	b.Flush()

	b2 := startBatcher(t, 10*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{user: "x@example.com"}})
	b2.Enqueue(user, "Hello", "body")
	b2.Flush()

	assert.Empty(t, mailer.Sent())
}

func TestEmailBatcher_MissingAddressSkips(t *testing.T) {
	mailer := &recordingMailer{}
	b := startBatcher(t, 10*time.Millisecond, mailer, mapDirectory{emails: map[uuid.UUID]string{}})

	b.Enqueue(uuid.New(), "Hello", "body")
	b.Flush()
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, mailer.Sent())
}

func TestComposeDigest(t *testing.T) {
	subject, body := composeDigest(batch{count: 1, firstTitle: "T", firstBody: "B", lastTitle: "T", lastBody: "B"})
	assert.Equal(t, "T", subject)
	assert.Equal(t, "B", body)

	subject, _ = composeDigest(batch{count: 3, firstTitle: "T", lastTitle: "U"})
	assert.Equal(t, "You have 3 new notifications", subject)
}
