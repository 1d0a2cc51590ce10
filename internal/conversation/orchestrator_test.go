package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/showroom-assistant/internal/chat"
	"github.com/sells-group/showroom-assistant/internal/inventory"
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/sessionlog"
)

type fakeChat struct {
	mu       sync.Mutex
	requests []chat.Request
	replyFn  func(ctx context.Context, req chat.Request) (*chat.Response, error)
}

func (c *fakeChat) Reply(ctx context.Context, req chat.Request) (*chat.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.replyFn != nil {
		return c.replyFn(ctx, req)
	}
	return &chat.Response{Message: "The Silverado is a great fit."}, nil
}

func (c *fakeChat) Requests() []chat.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Request(nil), c.requests...)
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return true
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

type recordingSink struct {
	mu   sync.Mutex
	logs []model.SessionLog
	err  error
}

func (s *recordingSink) Write(_ context.Context, log model.SessionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return s.err
}

func (s *recordingSink) Last(t *testing.T) model.SessionLog {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.logs)
	return s.logs[len(s.logs)-1]
}

func testVehicles() []model.Vehicle {
	return []model.Vehicle{
		{StockNumber: "T1", Year: 2024, Make: "Chevrolet", Model: "Silverado 1500", BodyStyle: "Pickup", Price: 48500},
		{StockNumber: "S1", Year: 2023, Make: "Chevrolet", Model: "Tahoe", BodyStyle: "SUV", Price: 62000},
		{StockNumber: "C1", Year: 2022, Make: "Chevrolet", Model: "Malibu", BodyStyle: "Sedan", Price: 24000},
	}
}

type harness struct {
	orc     *Orchestrator
	chat    *fakeChat
	speaker *fakeSpeaker
	sink    *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{chat: &fakeChat{}, speaker: &fakeSpeaker{}, sink: &recordingSink{}}
	h.orc = New(Options{
		Chat:      h.chat,
		Inventory: inventory.NewStaticCatalog(testVehicles()),
		Speaker:   h.speaker,
		Sink:      h.sink,
	})
	return h
}

func TestSend_Success(t *testing.T) {
	h := newHarness(t)
	h.orc.SetCustomerName("Dana")

	msg, err := h.orc.Send(context.Background(), "I need a truck that can tow a boat for under $50k")
	require.NoError(t, err)
	h.orc.Wait()

	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "The Silverado is a great fit.", msg.Text)
	require.Len(t, msg.Vehicles, 1)
	assert.Equal(t, "T1", msg.Vehicles[0].StockNumber)

	reqs := h.chat.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Dana", reqs[0].CustomerName)
	assert.Empty(t, reqs[0].History)
	assert.Contains(t, reqs[0].InventoryContext, `"stock":"T1"`)

	assert.Equal(t, []string{"The Silverado is a great fit."}, h.speaker.spoken)

	log := h.sink.Last(t)
	assert.Len(t, log.Transcript, 2)
	assert.Equal(t, "Dana", log.CustomerName)
	require.NotNil(t, log.Budget.Max)
	assert.Equal(t, 50000.0, *log.Budget.Max)
	assert.Equal(t, model.BodyTypeTruck, log.VehicleInterest.BodyType)
	assert.Equal(t, []string{model.ActionChat, model.ActionInventoryMatch}, log.Actions)
}

func TestSend_RemoteFailureWithMatches(t *testing.T) {
	h := newHarness(t)
	h.chat.replyFn = func(context.Context, chat.Request) (*chat.Response, error) {
		return nil, errors.New("502 bad gateway")
	}

	msg, err := h.orc.Send(context.Background(), "I need a truck that can tow a boat for under $50k")
	require.NoError(t, err)
	h.orc.Wait()

	assert.Equal(t, FallbackWithMatches, msg.Text)
	assert.Len(t, msg.Vehicles, 1)
	assert.Equal(t, []string{FallbackWithMatches}, h.speaker.spoken)

	log := h.sink.Last(t)
	require.NotNil(t, log.Budget.Max)
	assert.Equal(t, 50000.0, *log.Budget.Max)
	assert.Equal(t, 40000.0, *log.Budget.Min)
	assert.Contains(t, log.VehicleInterest.Features, "towing")
	assert.Contains(t, log.Actions, model.ActionFallback)
	assert.Equal(t, FallbackWithMatches, log.Transcript[1].Content)
}

func TestSend_RemoteFailureNoMatches(t *testing.T) {
	h := newHarness(t)
	h.chat.replyFn = func(context.Context, chat.Request) (*chat.Response, error) {
		return &chat.Response{Message: "  "}, nil
	}

	msg, err := h.orc.Send(context.Background(), "hello there")
	require.NoError(t, err)
	h.orc.Wait()

	assert.Equal(t, FallbackNoMatches, msg.Text)
	assert.Empty(t, msg.Vehicles)
	assert.Equal(t, []string{FallbackNoMatches}, h.speaker.spoken)
	assert.Len(t, h.sink.logs, 1)
}

func TestSend_NoChatClient(t *testing.T) {
	o := New(Options{Inventory: inventory.NewStaticCatalog(nil)})
	msg, err := o.Send(context.Background(), "anything in red?")
	require.NoError(t, err)
	assert.Equal(t, FallbackNoMatches, msg.Text)
}

func TestSend_BusyRejectsSecondMessage(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.chat.replyFn = func(context.Context, chat.Request) (*chat.Response, error) {
		close(entered)
		<-release
		return &chat.Response{Message: "done"}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.orc.Send(context.Background(), "first")
		done <- err
	}()
	<-entered

	assert.True(t, h.orc.Busy())
	_, err := h.orc.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, h.orc.Reset(), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	h.orc.Wait()

	snap := h.orc.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "first", snap.Messages[0].Text)
	assert.False(t, snap.Busy)
	assert.Len(t, h.chat.Requests(), 1)
}

func TestSend_EmptyMessage(t *testing.T) {
	h := newHarness(t)
	_, err := h.orc.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, h.orc.Snapshot().Messages)
}

func TestSend_HistoryAndProfileAccumulate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orc.Send(ctx, "I want a truck with leather")
	require.NoError(t, err)
	_, err = h.orc.Send(ctx, "trading in my 2019 Ford Escape")
	require.NoError(t, err)
	h.orc.Wait()

	reqs := h.chat.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].History, 2)
	assert.Equal(t, model.RoleUser, reqs[1].History[0].Role)
	assert.Equal(t, "I want a truck with leather", reqs[1].History[0].Content)

	snap := h.orc.Snapshot()
	assert.Equal(t, []string{"leather"}, snap.Profile.VehicleInterest.Features)
	require.NotNil(t, snap.Profile.TradeIn.Vehicle)
	assert.Equal(t, "Escape", snap.Profile.TradeIn.Vehicle.Model)
	assert.Contains(t, snap.Actions, model.ActionTradeIn)
}

func TestSend_ObjectionFollowupsSetAndCleared(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orc.Send(ctx, "that's too expensive for me")
	require.NoError(t, err)
	snap := h.orc.Snapshot()
	assert.Equal(t, model.ObjectionPrice, snap.Objection.Category)
	assert.NotEmpty(t, snap.Followups())

	_, err = h.orc.Send(ctx, "ok, what colors does it come in")
	require.NoError(t, err)
	snap = h.orc.Snapshot()
	assert.False(t, snap.Objection.Detected())
	assert.Empty(t, snap.Followups())
	h.orc.Wait()
}

func TestSend_SinkFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.sink.err = errors.New("disk full")

	msg, err := h.orc.Send(context.Background(), "show me a Tahoe")
	require.NoError(t, err)
	h.orc.Wait()
	assert.Equal(t, "The Silverado is a great fit.", msg.Text)
	assert.Len(t, h.sink.logs, 1)
}

func TestSend_LogOutlivesCallerContext(t *testing.T) {
	h := newHarness(t)
	var gotErr error
	h.orc.sink = sessionlog.SinkFunc(func(ctx context.Context, _ model.SessionLog) error {
		time.Sleep(10 * time.Millisecond)
		gotErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.orc.Send(ctx, "show me a Tahoe")
	require.NoError(t, err)
	cancel()
	h.orc.Wait()
	assert.NoError(t, gotErr)
}

func TestSelectVehicle_DownPaymentPercent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orc.Send(ctx, "I can put 5k down, budget is $40,000")
	require.NoError(t, err)
	h.orc.Wait()
	log := h.sink.Last(t)
	require.NotNil(t, log.Budget.DownPaymentPercent)
	assert.Equal(t, 12.5, *log.Budget.DownPaymentPercent)

	v, err := h.orc.SelectVehicle(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "T1", v.StockNumber)
	h.orc.Wait()

	log = h.sink.Last(t)
	require.NotNil(t, log.SelectedVehicle)
	assert.Equal(t, "2024 Chevrolet Silverado 1500", log.SelectedVehicle.Title)
	require.NotNil(t, log.Budget.DownPaymentPercent)
	assert.Equal(t, 10.3, *log.Budget.DownPaymentPercent)
	assert.Contains(t, log.Actions, model.ActionVehicleSelect)

	_, err = h.orc.SelectVehicle(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	before := h.orc.Snapshot().SessionID

	h.orc.SetCustomerName(" Dana ")
	h.orc.SetStep("trade_in")
	_, err := h.orc.Send(ctx, "I need a truck")
	require.NoError(t, err)
	h.orc.Wait()

	snap := h.orc.Snapshot()
	assert.Equal(t, "Dana", snap.CustomerName)
	assert.Equal(t, "trade_in", snap.CurrentStep)

	require.NoError(t, h.orc.Reset())
	snap = h.orc.Snapshot()
	assert.NotEqual(t, before, snap.SessionID)
	assert.Empty(t, snap.Messages)
	assert.True(t, snap.Profile.IsEmpty())
	assert.Empty(t, snap.CustomerName)
	assert.Empty(t, snap.Actions)
	assert.Equal(t, 1, h.speaker.stops)
}

func TestSnapshot_IsACopy(t *testing.T) {
	h := newHarness(t)
	_, err := h.orc.Send(context.Background(), "a truck with leather")
	require.NoError(t, err)
	h.orc.Wait()

	snap := h.orc.Snapshot()
	snap.Messages[0].Text = "changed"
	snap.Profile.VehicleInterest.Features[0] = "changed"

	again := h.orc.Snapshot()
	assert.Equal(t, "a truck with leather", again.Messages[0].Text)
	assert.Equal(t, "leather", again.Profile.VehicleInterest.Features[0])
}

func TestFlush(t *testing.T) {
	h := newHarness(t)
	h.orc.SetStep("welcome")
	h.orc.Flush(context.Background())
	h.orc.Wait()
	assert.Equal(t, "welcome", h.sink.Last(t).CurrentStep)
}

func TestFallbackText(t *testing.T) {
	assert.Equal(t, FallbackNoMatches, FallbackText(0))
	assert.Equal(t, FallbackWithMatches, FallbackText(3))
}
