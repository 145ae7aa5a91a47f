package delivery

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
	"pureplatter/internal/store/memstore"
)

type countingOutbox struct {
	kinds []string
}

func (c *countingOutbox) Enqueue(ctx context.Context, kind string, payload any) {
	_ = c.Add(ctx, kind, payload)
}

func (c *countingOutbox) Add(_ context.Context, kind string, _ any) error {
	c.kinds = append(c.kinds, kind)
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *countingOutbox) {
	t.Helper()
	s := memstore.New()
	outbox := &countingOutbox{}
	return NewService(s, outbox, nil, "https://shop.example"), s, outbox
}

func seedOrder(t *testing.T, s *store.Store, userID primitive.ObjectID, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{UserID: userID, Status: status, TotalAmount: 600}
	require.NoError(t, s.Orders.Insert(context.Background(), order))
	return order
}

func TestGenerateCodeShape(t *testing.T) {
	svc, s, _ := newTestService(t)
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusPending)

	confirmation, err := svc.GenerateCode(context.Background(), order.ID, &userID)
	require.NoError(t, err)
	assert.Len(t, confirmation.ConfirmationCode, 6)
	assert.True(t, validCode(confirmation.ConfirmationCode))
	assert.Equal(t, userID, confirmation.UserID)
	assert.False(t, confirmation.Confirmed)
}

func TestGenerateCodeReturnsOutstandingCode(t *testing.T) {
	svc, s, _ := newTestService(t)
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusConfirmed)
	ctx := context.Background()

	first, err := svc.GenerateCode(ctx, order.ID, &userID)
	require.NoError(t, err)
	second, err := svc.GenerateCode(ctx, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ConfirmationCode, second.ConfirmationCode)
	assert.Equal(t, first.ID, second.ID)
}

func TestGenerateCodeUniqueAcrossOrders(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		userID := primitive.NewObjectID()
		order := seedOrder(t, s, userID, models.StatusPending)
		confirmation, err := svc.GenerateCode(ctx, order.ID, &userID)
		require.NoError(t, err)
		assert.False(t, seen[confirmation.ConfirmationCode], "duplicate outstanding code %s", confirmation.ConfirmationCode)
		seen[confirmation.ConfirmationCode] = true
	}
}

func TestGenerateCodeGivesUpAfterCollisions(t *testing.T) {
	svc, s, _ := newTestService(t)
	svc.random = zeroReader{}
	ctx := context.Background()

	first := seedOrder(t, s, primitive.NewObjectID(), models.StatusPending)
	confirmation, err := svc.GenerateCode(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", confirmation.ConfirmationCode)

	second := seedOrder(t, s, primitive.NewObjectID(), models.StatusPending)
	_, err = svc.GenerateCode(ctx, second.ID, nil)
	assert.ErrorIs(t, err, ErrCodesExhausted)
}

type countingDeliveries struct {
	store.DeliveryRepository
	inserts int
}

func (c *countingDeliveries) Insert(ctx context.Context, confirmation *models.DeliveryConfirmation) error {
	c.inserts++
	return c.DeliveryRepository.Insert(ctx, confirmation)
}

func TestGenerateCodeSkipsOutstandingCodeWithoutInsert(t *testing.T) {
	svc, s, _ := newTestService(t)
	svc.random = zeroReader{}
	ctx := context.Background()

	first := seedOrder(t, s, primitive.NewObjectID(), models.StatusPending)
	_, err := svc.GenerateCode(ctx, first.ID, nil)
	require.NoError(t, err)

	counting := &countingDeliveries{DeliveryRepository: s.Deliveries}
	s.Deliveries = counting

	second := seedOrder(t, s, primitive.NewObjectID(), models.StatusPending)
	_, err = svc.GenerateCode(ctx, second.ID, nil)
	assert.ErrorIs(t, err, ErrCodesExhausted)
	assert.Zero(t, counting.inserts)
}

func TestGenerateCodeChecksOwnerAndStatus(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	order := seedOrder(t, s, owner, models.StatusPending)
	_, err := svc.GenerateCode(ctx, order.ID, &stranger)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	closed := seedOrder(t, s, owner, models.StatusCancelled)
	_, err = svc.GenerateCode(ctx, closed.ID, &owner)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestConfirmDeliveryWrongCodeLeavesOrder(t *testing.T) {
	svc, s, outbox := newTestService(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusShipped)

	confirmation, err := svc.GenerateCode(ctx, order.ID, &userID)
	require.NoError(t, err)

	wrong := "ZZZZZZ"
	if confirmation.ConfirmationCode == wrong {
		wrong = "YYYYYY"
	}
	_, err = svc.ConfirmDelivery(ctx, order.ID, userID, wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.ConfirmDelivery(ctx, order.ID, userID, "bad")
	assert.ErrorIs(t, err, ErrInvalidCode)

	stored, err := s.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, stored.Status)
	assert.Empty(t, outbox.kinds)
}

func TestConfirmDeliveryExactlyOnce(t *testing.T) {
	svc, s, outbox := newTestService(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusShipped)

	confirmation, err := svc.GenerateCode(ctx, order.ID, &userID)
	require.NoError(t, err)

	delivered, err := svc.ConfirmDelivery(ctx, order.ID, userID, strings.ToLower(confirmation.ConfirmationCode))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.ConfirmedDeliveryAt)
	assert.Equal(t, models.DeliveredByCustomerCode, delivered.DeliveryConfirmationMethod)
	assert.Equal(t, []string{models.TaskOrderStatusEmail}, outbox.kinds)

	_, err = svc.ConfirmDelivery(ctx, order.ID, userID, confirmation.ConfirmationCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Len(t, outbox.kinds, 1)
}

func TestConfirmDeliveryRequiresShipped(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusProcessing)

	confirmation, err := svc.GenerateCode(ctx, order.ID, &userID)
	require.NoError(t, err)

	_, err = svc.ConfirmDelivery(ctx, order.ID, userID, confirmation.ConfirmationCode)
	assert.ErrorIs(t, err, ErrNotShipped)

	outstanding, err := s.Deliveries.CodeOutstanding(ctx, confirmation.ConfirmationCode)
	require.NoError(t, err)
	assert.True(t, outstanding)
}

func TestConfirmDeliveryOtherCustomerRejected(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	order := seedOrder(t, s, owner, models.StatusShipped)

	confirmation, err := svc.GenerateCode(ctx, order.ID, &owner)
	require.NoError(t, err)

	_, err = svc.ConfirmDelivery(ctx, order.ID, primitive.NewObjectID(), confirmation.ConfirmationCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestQRCodeRendersPNG(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, s, userID, models.StatusShipped)

	_, err := svc.QRCode(ctx, order.ID, userID, 128)
	assert.ErrorIs(t, err, ErrNoOutstandingQR)

	_, err = svc.GenerateCode(ctx, order.ID, &userID)
	require.NoError(t, err)

	png, err := svc.QRCode(ctx, order.ID, userID, 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
