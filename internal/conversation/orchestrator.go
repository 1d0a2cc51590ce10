// Package conversation runs one kiosk conversation: extraction, objection
// detection, the remote chat call, inventory matching, speech and the
// session log.
package conversation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/showroom-assistant/internal/chat"
	"github.com/sells-group/showroom-assistant/internal/extract"
	"github.com/sells-group/showroom-assistant/internal/inventory"
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/objection"
	"github.com/sells-group/showroom-assistant/internal/sessionlog"
)

var (
	// ErrBusy is returned when a message is already in flight. The rejected
	// message is dropped.
	ErrBusy = eris.New("conversation: a message is already in flight")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = eris.New("conversation: message is empty")
	// ErrVehicleNotFound is returned when a stock number is not in inventory.
	ErrVehicleNotFound = eris.New("conversation: vehicle not found")
)

// Speaker plays assistant replies. *speech.Coordinator satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string) bool
	Stop()
}

// Options wires an Orchestrator. Only Inventory is required; a nil Chat
// answers every message with the fallback text.
type Options struct {
	Chat       chat.Client
	Inventory  inventory.Source
	Extractor  *extract.Extractor
	Classifier *objection.Classifier
	Speaker    Speaker
	Sink       sessionlog.Sink

	SearchLimit  int
	ContextLimit int
	MaxHistory   int
	LogTimeout   time.Duration
}

// Orchestrator owns the state of one conversation. Send is single-flight:
// a concurrent Send is rejected with ErrBusy, never queued.
type Orchestrator struct {
	chat       chat.Client
	inventory  inventory.Source
	extractor  *extract.Extractor
	classifier *objection.Classifier
	speaker    Speaker
	sink       sessionlog.Sink

	searchLimit  int
	contextLimit int
	maxHistory   int
	logTimeout   time.Duration

	busy atomic.Bool

	mu           sync.Mutex
	sessionID    string
	createdAt    time.Time
	messages     []model.Message
	profile      model.Profile
	objection    model.ObjectionResult
	customerName string
	step         string
	selected     *model.Vehicle
	actions      []string

	wg sync.WaitGroup
}

// New creates an Orchestrator with a fresh session.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		chat:         opts.Chat,
		inventory:    opts.Inventory,
		extractor:    opts.Extractor,
		classifier:   opts.Classifier,
		speaker:      opts.Speaker,
		sink:         opts.Sink,
		searchLimit:  opts.SearchLimit,
		contextLimit: opts.ContextLimit,
		maxHistory:   opts.MaxHistory,
		logTimeout:   opts.LogTimeout,
	}
	if o.extractor == nil {
		o.extractor = extract.New(nil)
	}
	if o.classifier == nil {
		o.classifier = objection.New(nil)
	}
	if o.searchLimit <= 0 {
		o.searchLimit = inventory.DefaultLimit
	}
	if o.contextLimit <= 0 {
		o.contextLimit = 25
	}
	if o.maxHistory <= 0 {
		o.maxHistory = 20
	}
	if o.logTimeout <= 0 {
		o.logTimeout = 15 * time.Second
	}
	o.startSession()
	return o
}

func (o *Orchestrator) startSession() {
	o.sessionID = uuid.New().String()
	o.createdAt = time.Now().UTC()
	o.messages = nil
	o.profile = model.Profile{}
	o.objection = model.ObjectionResult{}
	o.customerName = ""
	o.step = ""
	o.selected = nil
	o.actions = nil
}

// Send runs one conversation cycle for text and returns the assistant
// message. Remote chat failures are answered with the fallback text and
// never returned as errors.
func (o *Orchestrator) Send(ctx context.Context, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	o.mu.Lock()
	history := chat.History(o.messages, o.maxHistory)
	o.messages = append(o.messages, model.NewMessage(model.RoleUser, text, nil))
	o.profile = o.extractor.Extract(text, o.profile)
	o.objection = o.classifier.Classify(text)
	if o.objection.Detected() {
		o.addActionLocked(model.ActionObjection)
	}
	if o.profile.TradeIn.HasTrade != nil && *o.profile.TradeIn.HasTrade {
		o.addActionLocked(model.ActionTradeIn)
	}
	customer := o.customerName
	o.mu.Unlock()

	vehicles, err := o.inventory.List(ctx)
	if err != nil {
		zap.L().Warn("conversation: inventory unavailable", zap.Error(err))
	}

	var (
		reply   *chat.Response
		chatErr error
		matches []model.Vehicle
	)
	var g errgroup.Group
	g.Go(func() error {
		reply, chatErr = o.reply(ctx, chat.Request{
			Message:          text,
			InventoryContext: inventory.Context(vehicles, o.contextLimit),
			History:          history,
			CustomerName:     customer,
		})
		return nil
	})
	g.Go(func() error {
		matches = inventory.Search(vehicles, text, o.searchLimit)
		return nil
	})
	_ = g.Wait()

	var answer string
	o.mu.Lock()
	if chatErr != nil {
		zap.L().Warn("conversation: chat failed, using fallback",
			zap.String("session_id", o.sessionID),
			zap.Int("matches", len(matches)),
			zap.Error(chatErr),
		)
		answer = FallbackText(len(matches))
		o.addActionLocked(model.ActionFallback)
	} else {
		answer = reply.Message
		o.addActionLocked(model.ActionChat)
	}
	if len(matches) > 0 {
		o.addActionLocked(model.ActionInventoryMatch)
	}
	msg := model.NewMessage(model.RoleAssistant, answer, matches)
	o.messages = append(o.messages, msg)
	log := o.sessionLogLocked()
	o.mu.Unlock()

	o.writeLog(ctx, log)
	if o.speaker != nil {
		o.speaker.Speak(ctx, answer)
	}
	return &msg, nil
}

func (o *Orchestrator) reply(ctx context.Context, req chat.Request) (*chat.Response, error) {
	if o.chat == nil {
		return nil, eris.New("conversation: no chat client configured")
	}
	resp, err := o.chat.Reply(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Message) == "" {
		return nil, chat.ErrEmptyReply
	}
	return resp, nil
}

// writeLog delivers log in the background. Failures are logged and never
// retried.
func (o *Orchestrator) writeLog(ctx context.Context, log model.SessionLog) {
	if o.sink == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.logTimeout)
		defer cancel()
		if err := o.sink.Write(wctx, log); err != nil {
			zap.L().Warn("conversation: session log write failed",
				zap.String("session_id", log.SessionID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background session-log writes have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Busy reports whether a message is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Reset stops speech and starts a new session. It fails with ErrBusy while
// a message is in flight.
func (o *Orchestrator) Reset() error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.busy.Store(false)

	if o.speaker != nil {
		o.speaker.Stop()
	}
	o.mu.Lock()
	old := o.sessionID
	o.startSession()
	id := o.sessionID
	o.mu.Unlock()
	zap.L().Info("conversation: session reset", zap.String("previous", old), zap.String("session_id", id))
	return nil
}

// SetCustomerName records the customer's name for the chat prompt and the
// session log.
func (o *Orchestrator) SetCustomerName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.customerName = strings.TrimSpace(name)
}

// SetStep records the kiosk step the customer is on.
func (o *Orchestrator) SetStep(step string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.step = strings.TrimSpace(step)
}

// SelectVehicle marks the vehicle with stockNumber as selected and writes
// the session log.
func (o *Orchestrator) SelectVehicle(ctx context.Context, stockNumber string) (model.Vehicle, error) {
	vehicles, err := o.inventory.List(ctx)
	if err != nil {
		return model.Vehicle{}, eris.Wrap(err, "conversation: list inventory")
	}
	var found *model.Vehicle
	for i := range vehicles {
		if strings.EqualFold(vehicles[i].StockNumber, stockNumber) {
			found = &vehicles[i]
			break
		}
	}
	if found == nil {
		return model.Vehicle{}, eris.Wrapf(ErrVehicleNotFound, "stock %s", stockNumber)
	}

	o.mu.Lock()
	v := *found
	o.selected = &v
	o.addActionLocked(model.ActionVehicleSelect)
	log := o.sessionLogLocked()
	o.mu.Unlock()

	o.writeLog(ctx, log)
	return v, nil
}

// Flush writes the current session log in the background.
func (o *Orchestrator) Flush(ctx context.Context) {
	o.mu.Lock()
	log := o.sessionLogLocked()
	o.mu.Unlock()
	o.writeLog(ctx, log)
}

func (o *Orchestrator) addActionLocked(action string) {
	for _, a := range o.actions {
		if a == action {
			return
		}
	}
	o.actions = append(o.actions, action)
}

func (o *Orchestrator) sessionLogLocked() model.SessionLog {
	p := o.profile.Clone()
	log := model.SessionLog{
		SessionID:       o.sessionID,
		CustomerName:    o.customerName,
		CurrentStep:     o.step,
		Transcript:      model.Transcript(o.messages),
		VehicleInterest: p.VehicleInterest,
		Budget: model.BudgetLog{
			Budget:             p.Budget,
			DownPaymentPercent: model.DownPaymentPercent(p.Budget, o.selected),
		},
		TradeIn:  p.TradeIn,
		Actions:  append([]string(nil), o.actions...),
		LoggedAt: time.Now().UTC(),
	}
	if o.selected != nil {
		s := o.selected.Summarize()
		log.SelectedVehicle = &s
	}
	return log
}

// SessionLog returns the session log as it would be written now.
func (o *Orchestrator) SessionLog() model.SessionLog {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionLogLocked()
}
