package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserDirectory resolves a recipient's email address. An empty address means the
// user has none and the email is skipped.
type UserDirectory interface {
	GetEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

type batch struct {
	userID     uuid.UUID
	gen        uint64
	count      int
	firstTitle string
	firstBody  string
	lastTitle  string
	lastBody   string
	timer      *time.Timer
}

type enqueueRequest struct {
	userID uuid.UUID
	title  string
	body   string
}

type expiry struct {
	userID uuid.UUID
	gen    uint64
}

// EmailBatcher coalesces notification emails per recipient over a window.
// All batch state is owned by the Run goroutine; Enqueue and the timers talk to it
// over channels, and delivery happens on separate goroutines so one recipient's
// slow send never holds up another recipient's batching.
type EmailBatcher struct {
	window      time.Duration
	mailer      Mailer
	directory   UserDirectory
	log         zerolog.Logger
	sendTimeout time.Duration

	enqueue  chan enqueueRequest
	expired  chan expiry
	flushReq chan chan struct{}
	stop     chan struct{}
	closing  chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// mu orders Enqueue against the final drain in Run.
	mu     sync.RWMutex
	closed bool

	deliveries sync.WaitGroup
}

func NewEmailBatcher(window time.Duration, mailer Mailer, directory UserDirectory, log zerolog.Logger) *EmailBatcher {
	return &EmailBatcher{
		window:      window,
		mailer:      mailer,
		directory:   directory,
		log:         log,
		sendTimeout: 30 * time.Second,
		enqueue:     make(chan enqueueRequest, 256),
		expired:     make(chan expiry, 64),
		flushReq:    make(chan chan struct{}),
		stop:        make(chan struct{}),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run owns the batch registry until ctx is cancelled or Close is called. Open
// batches are flushed on the way out.
func (b *EmailBatcher) Run(ctx context.Context) {
	batches := make(map[uuid.UUID]*batch)
	var gen uint64

	defer func() {
		close(b.closing)
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.drainQueued(batches)

		for id, bt := range batches {
			if bt.timer != nil {
				bt.timer.Stop()
			}
			delete(batches, id)
			b.deliver(*bt)
		}
		b.deliveries.Wait()
		close(b.done)
	}()

	for {
		select {
		case req := <-b.enqueue:
			if bt, ok := batches[req.userID]; ok {
				bt.count++
				bt.lastTitle = req.title
				bt.lastBody = req.body
				continue
			}
			gen++
			bt := &batch{
				userID:     req.userID,
				gen:        gen,
				count:      1,
				firstTitle: req.title,
				firstBody:  req.body,
				lastTitle:  req.title,
				lastBody:   req.body,
			}
			exp := expiry{userID: req.userID, gen: gen}
			bt.timer = time.AfterFunc(b.window, func() {
				select {
				case b.expired <- exp:
				case <-b.done:
				}
			})
			batches[req.userID] = bt

		case exp := <-b.expired:
			bt, ok := batches[exp.userID]
			if !ok || bt.gen != exp.gen {
				continue
			}
			delete(batches, exp.userID)
			b.deliver(*bt)

		case ack := <-b.flushReq:
			for id, bt := range batches {
				bt.timer.Stop()
				delete(batches, id)
				b.deliver(*bt)
			}
			close(ack)

		case <-b.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue adds one notification to the recipient's open batch, opening a new batch
// when none exists.
func (b *EmailBatcher) Enqueue(userID uuid.UUID, title, body string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.closed {
		select {
		case b.enqueue <- enqueueRequest{userID: userID, title: title, body: body}:
			return
		case <-b.closing:
		}
	}
	b.log.Warn().Str("user_id", userID.String()).Msg("email batcher stopped, notification email dropped")
}

// drainQueued folds requests still sitting in the queue into their batches.
func (b *EmailBatcher) drainQueued(batches map[uuid.UUID]*batch) {
	for {
		select {
		case req := <-b.enqueue:
			if bt, ok := batches[req.userID]; ok {
				bt.count++
				bt.lastTitle = req.title
				bt.lastBody = req.body
				continue
			}
			batches[req.userID] = &batch{
				userID:     req.userID,
				count:      1,
				firstTitle: req.title,
				firstBody:  req.body,
				lastTitle:  req.title,
				lastBody:   req.body,
			}
		default:
			return
		}
	}
}

// Flush sends every open batch immediately without waiting for delivery.
func (b *EmailBatcher) Flush() {
	ack := make(chan struct{})
	select {
	case b.flushReq <- ack:
		<-ack
	case <-b.done:
	}
}

// Close stops Run, flushes open batches and waits for in-flight deliveries.
func (b *EmailBatcher) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

func (b *EmailBatcher) deliver(bt batch) {
	b.deliveries.Add(1)
	go func() {
		defer b.deliveries.Done()
		b.send(bt)
	}()
}

func (b *EmailBatcher) send(bt batch) {
	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	logger := b.log.With().Str("user_id", bt.userID.String()).Int("count", bt.count).Logger()

	email, err := b.directory.GetEmail(ctx, bt.userID)
	if err != nil {
		logger.Warn().Err(err).Msg("could not resolve recipient email, digest dropped")
		return
	}
	if email == "" {
		logger.Debug().Msg("recipient has no email address, digest skipped")
		return
	}

	subject, body := composeDigest(bt)
	msg := Email{To: email, Subject: subject, Text: body, HTML: RenderHTML(body)}
	if err := b.mailer.Send(ctx, msg); err != nil {
		logger.Warn().Err(err).Msg("failed to send notification email")
		return
	}
	logger.Debug().Msg("notification email sent")
}

// composeDigest never leaks individual event content when several events were coalesced.
func composeDigest(bt batch) (subject, body string) {
	if bt.count <= 1 {
		return bt.firstTitle, bt.firstBody
	}
	subject = fmt.Sprintf("You have %d new notifications", bt.count)
	body = fmt.Sprintf("You have %d new notifications.\n\nSign in to your dashboard to read them.", bt.count)
	return subject, body
}
