package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/delivery"
	"pureplatter/internal/mailer"
	"pureplatter/internal/models"
	"pureplatter/internal/payment"
	"pureplatter/internal/store"
	"pureplatter/internal/store/memstore"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeVerifier struct {
	result *payment.Verification
	err    error
}

func (f fakeVerifier) Verify(context.Context, string) (*payment.Verification, error) {
	return f.result, f.err
}

type harness struct {
	store  *store.Store
	outbox *Outbox
	worker *Worker
	sender *fakeSender
	tasks  *Tasks
	clock  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  memstore.New(),
		sender: &fakeSender{},
		clock:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.outbox = NewOutbox(h.store.Outbox)
	h.outbox.now = func() time.Time { return h.clock }
	h.worker = NewWorker(h.store.Outbox, WorkerConfig{MaxAttempts: 3, BaseBackoff: time.Second, MaxBackoff: 4 * time.Second})
	h.worker.now = func() time.Time { return h.clock }
	h.tasks = &Tasks{
		Store:    h.store,
		Sender:   h.sender,
		Composer: mailer.Composer{From: "shop@example.com", AdminTo: "admin@example.com", ContactTo: "hello@example.com", AppURL: "https://shop.example.com"},
		Codes:    delivery.NewService(h.store, h.outbox, nil, "https://shop.example.com"),
		Currency: "GHS",
	}
	h.tasks.Register(h.worker)
	return h
}

func (h *harness) order(t *testing.T, total float64) *models.Order {
	t.Helper()
	return h.orderWithReference(t, total, "")
}

func (h *harness) orderWithReference(t *testing.T, total float64, reference string) *models.Order {
	t.Helper()
	order := &models.Order{
		PaymentReference: reference,
		UserID:           primitive.NewObjectID(),
		TotalAmount:      total,
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentPending,
		UserEmail:        "ama@example.com",
		UserFullName:     "Ama Mensah",
		CreatedAt:        h.clock,
		UpdatedAt:        h.clock,
	}
	require.NoError(t, h.store.Orders.Insert(context.Background(), order))
	return order
}

func (h *harness) onlyTask(t *testing.T) models.OutboxTask {
	t.Helper()
	tasks, err := h.store.Outbox.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func TestProcessOnceDeliversTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, 120)

	h.outbox.Enqueue(ctx, models.TaskAdminNewOrder, models.OrderRef{OrderID: order.ID.Hex()})

	processed, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, h.sender.sent[0].To)
	assert.Equal(t, models.TaskDone, h.onlyTask(t).Status)

	processed, err = h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOnceRetriesWithBackoffThenFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, 50)
	h.sender.failures = 10

	h.outbox.Enqueue(ctx, models.TaskOrderStatusEmail, models.StatusEmailPayload{OrderID: order.ID.Hex(), Status: string(models.StatusShipped)})

	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	task := h.onlyTask(t)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, h.clock.Add(time.Second), task.NextAttemptAt)
	assert.Contains(t, task.LastError, "smtp unavailable")

	// not due yet
	processed, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	h.clock = h.clock.Add(time.Second)
	_, err = h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	task = h.onlyTask(t)
	assert.Equal(t, 2, task.Attempts)
	assert.Equal(t, h.clock.Add(2*time.Second), task.NextAttemptAt)

	h.clock = h.clock.Add(2 * time.Second)
	_, err = h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	task = h.onlyTask(t)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Equal(t, 3, task.Attempts)
	assert.Empty(t, h.sender.sent)
}

func TestRetryAfterTransientFailureSucceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.sender.failures = 1

	h.outbox.Enqueue(ctx, models.TaskContactMessage, models.ContactMessage{FirstName: "Kofi", LastName: "Boateng", Email: "kofi@example.com", Message: "Do you deliver to Tema?"})

	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	h.clock = h.clock.Add(time.Second)
	_, err = h.worker.ProcessOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.TaskDone, h.onlyTask(t).Status)
	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "kofi@example.com", h.sender.sent[0].ReplyTo)
}

func TestUnknownKindFailsImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.outbox.Enqueue(ctx, "carrier_pigeon", map[string]string{"to": "nowhere"})

	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	task := h.onlyTask(t)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Contains(t, task.LastError, "no handler")
}

func TestMalformedPayloadFailsImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Outbox.Enqueue(ctx, &models.OutboxTask{
		Kind:          models.TaskAdminNewOrder,
		Payload:       "{not json",
		Status:        models.TaskPending,
		NextAttemptAt: h.clock,
	}))

	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, h.onlyTask(t).Status)
}

func TestPanickingHandlerIsRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.worker.Register("explode", func(context.Context, *models.OutboxTask) error { panic("kaboom") })

	h.outbox.Enqueue(ctx, "explode", struct{}{})

	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)
	task := h.onlyTask(t)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Contains(t, task.LastError, "kaboom")
}

func TestDeliveryCodeTaskMailsCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, 80)

	h.outbox.Enqueue(ctx, models.TaskDeliveryCode, models.OrderRef{OrderID: order.ID.Hex()})
	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)

	confirmation, err := h.store.Deliveries.FindOutstandingByOrder(ctx, order.ID)
	require.NoError(t, err)

	require.Len(t, h.sender.sent, 1)
	msg := h.sender.sent[0]
	assert.Equal(t, []string{"ama@example.com"}, msg.To)
	assert.True(t, strings.Contains(msg.HTML, confirmation.ConfirmationCode))
}

func TestPaymentVerification(t *testing.T) {
	success := func(amount int64) *payment.Verification {
		return &payment.Verification{Reference: "PG_ref", Status: payment.StatusSuccess, AmountMinorUnits: amount, Currency: "GHS"}
	}
	cases := []struct {
		name     string
		result   *payment.Verification
		total    float64
		want     string
		wantTask string
	}{
		{name: "paid", result: success(12050), total: 120.50, want: models.PaymentPaid, wantTask: models.TaskDone},
		{name: "underpaid", result: success(100), total: 120.50, want: models.PaymentFailed, wantTask: models.TaskDone},
		{name: "abandoned", result: &payment.Verification{Status: payment.StatusAbandoned}, total: 10, want: models.PaymentFailed, wantTask: models.TaskDone},
		{name: "still pending", result: &payment.Verification{Status: "ongoing"}, total: 10, want: models.PaymentPending, wantTask: models.TaskPending},
		{
			name:     "other currency",
			result:   &payment.Verification{Reference: "PG_ref", Status: payment.StatusSuccess, AmountMinorUnits: 1000, Currency: "USD"},
			total:    10,
			want:     models.PaymentFailed,
			wantTask: models.TaskDone,
		},
		{
			name:     "other reference",
			result:   &payment.Verification{Reference: "PG_other", Status: payment.StatusSuccess, AmountMinorUnits: 1000, Currency: "GHS"},
			total:    10,
			want:     models.PaymentFailed,
			wantTask: models.TaskDone,
		},
		{
			name: "set up by another customer",
			result: &payment.Verification{
				Reference: "PG_ref", Status: payment.StatusSuccess, AmountMinorUnits: 1000, Currency: "GHS",
				Metadata: map[string]string{"userId": primitive.NewObjectID().Hex()},
			},
			total:    10,
			want:     models.PaymentFailed,
			wantTask: models.TaskDone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.tasks.Payments = fakeVerifier{result: tc.result}
			order := h.orderWithReference(t, tc.total, "PG_ref")

			h.outbox.Enqueue(ctx, models.TaskPaymentVerification, models.PaymentPayload{OrderID: order.ID.Hex(), Reference: "PG_ref"})
			_, err := h.worker.ProcessOnce(ctx)
			require.NoError(t, err)

			stored, err := h.store.Orders.FindByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stored.PaymentStatus)
			assert.Equal(t, tc.wantTask, h.onlyTask(t).Status)
		})
	}
}

func TestPaymentVerificationOwnerMetadataMatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.orderWithReference(t, 10, "PG_ref")
	h.tasks.Payments = fakeVerifier{result: &payment.Verification{
		Reference: "PG_ref", Status: payment.StatusSuccess, AmountMinorUnits: 1000, Currency: "ghs",
		Metadata: map[string]string{"userId": order.UserID.Hex()},
	}}

	h.outbox.Enqueue(ctx, models.TaskPaymentVerification, models.PaymentPayload{OrderID: order.ID.Hex(), Reference: "PG_ref"})
	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)

	stored, err := h.store.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
}

func TestPaymentVerificationIgnoresUnboundReference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.tasks.Payments = fakeVerifier{result: &payment.Verification{Reference: "PP-1", Status: payment.StatusSuccess, AmountMinorUnits: 12000, Currency: "GHS"}}
	paid := h.orderWithReference(t, 120, "PP-1")
	other := h.order(t, 120)

	h.outbox.Enqueue(ctx, models.TaskPaymentVerification, models.PaymentPayload{OrderID: paid.ID.Hex(), Reference: "PP-1"})
	h.outbox.Enqueue(ctx, models.TaskPaymentVerification, models.PaymentPayload{OrderID: other.ID.Hex(), Reference: "PP-1"})
	for i := 0; i < 2; i++ {
		_, err := h.worker.ProcessOnce(ctx)
		require.NoError(t, err)
	}

	stored, err := h.store.Orders.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)

	stored, err = h.store.Orders.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	failed, err := h.store.Outbox.List(ctx, models.TaskFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestQuoteAcknowledgementFailureDoesNotRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.tasks.Sender = &recipientFailSender{fail: "buyer@example.com", inner: h.sender}

	h.outbox.Enqueue(ctx, models.TaskQuoteRequest, models.QuoteRequest{Name: "Esi", Email: "buyer@example.com", Quantity: "40 packs"})
	_, err := h.worker.ProcessOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.TaskDone, h.onlyTask(t).Status)
	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, []string{"hello@example.com"}, h.sender.sent[0].To)
}

type recipientFailSender struct {
	fail  string
	inner mailer.Sender
}

func (s *recipientFailSender) Send(ctx context.Context, msg mailer.Message) error {
	for _, to := range msg.To {
		if to == s.fail {
			return errors.New("mailbox unavailable")
		}
	}
	return s.inner.Send(ctx, msg)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.worker.cfg.PollInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.worker.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
