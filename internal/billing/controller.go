package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/pdv-terminal/internal/attendant"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/confirm"
	"github.com/angelmondragon/pdv-terminal/internal/fiscal"
	"github.com/angelmondragon/pdv-terminal/internal/payment"
	"github.com/angelmondragon/pdv-terminal/internal/poll"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultBillInterval = 5 * time.Second

// Gate is the cash session precondition for closing a bill.
type Gate interface {
	RequireOpen() error
}

// FiscalIssuer generates the fiscal document of a closed sale.
type FiscalIssuer interface {
	GenerateFromSale(ctx context.Context, saleID string) (*fiscal.Document, error)
}

// Notifier surfaces failures to the operator.
type Notifier interface {
	Alert(ctx context.Context, ref cart.ContextRef, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ref cart.ContextRef, err error)

func (f NotifierFunc) Alert(ctx context.Context, ref cart.ContextRef, err error) {
	f(ctx, ref, err)
}

type logNotifier struct {
	logg *logger.Logger
}

func (n logNotifier) Alert(ctx context.Context, _ cart.ContextRef, err error) {
	n.logg.Warn(ctx, "operator alert: "+pkgerrors.UserMessage(err))
}

// ControllerParams wires a Controller.
type ControllerParams struct {
	Backend      Backend
	Cart         *cart.Store
	Gate         Gate
	Fiscal       FiscalIssuer
	Notifier     Notifier
	Operator     attendant.Operator
	Poller       *poll.Service
	BillInterval time.Duration
	Metrics      *metrics.BillingMetrics
	Logger       *logger.Logger
}

// SendOptions tune a send-order call.
type SendOptions struct {
	// AttendantID assigns the order to someone other than the operator.
	// Only operators allowed by attendant.CanChooseAttendant may set it.
	AttendantID string
}

// SendResult reports how many lines reached the server.
type SendResult struct {
	Opened    bool `json:"opened"`
	Committed int  `json:"committed"`
	Remaining int  `json:"remaining"`
}

// CloseResult reports a successful closure. FiscalErr is set when the
// closure succeeded but the fiscal document could not be generated.
type CloseResult struct {
	SaleID    string           `json:"sale_id"`
	Change    decimal.Decimal  `json:"change"`
	Fiscal    *fiscal.Document `json:"fiscal,omitempty"`
	FiscalErr error            `json:"-"`
}

// Controller is the bill session state machine of one context.
type Controller struct {
	backend  Backend
	cart     *cart.Store
	gate     Gate
	fiscal   FiscalIssuer
	notifier Notifier
	operator attendant.Operator
	poller   *poll.Service
	interval time.Duration
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger

	busy atomic.Bool

	mu      sync.RWMutex
	bill    *Bill
	billErr error
	polling *poll.Handle
}

func NewController(params ControllerParams) (*Controller, error) {
	if params.Backend == nil {
		return nil, errors.New("billing backend is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart store is required")
	}
	if params.Gate == nil {
		return nil, errors.New("cash session gate is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = logNotifier{logg: logg}
	}
	interval := params.BillInterval
	if interval <= 0 {
		interval = defaultBillInterval
	}
	return &Controller{
		backend:  params.Backend,
		cart:     params.Cart,
		gate:     params.Gate,
		fiscal:   params.Fiscal,
		notifier: notifier,
		operator: params.Operator,
		poller:   params.Poller,
		interval: interval,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

func (c *Controller) Ref() cart.ContextRef {
	return c.backend.Ref()
}

func (c *Controller) Availability() Availability {
	return c.backend.Availability()
}

// Busy reports whether a send, cancel, close or release is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Bill returns the last fetched bill snapshot, nil before the first fetch.
func (c *Controller) Bill() *Bill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bill.clone()
}

// BillErr is the last bill fetch failure. The previous snapshot stays visible.
func (c *Controller) BillErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.billErr
}

// State derives the session state from the cart and the bill.
func (c *Controller) State() State {
	if c.cart.Context() == c.Ref() && !c.cart.IsEmpty() {
		return StateComposing
	}
	if c.Bill().HasItems() {
		return StateReviewingBill
	}
	return StateIdle
}

// Refresh re-fetches the bill snapshot.
func (c *Controller) Refresh(ctx context.Context) error {
	bill, err := c.backend.FetchBill(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.billErr = err
		return err
	}
	c.bill = bill
	c.billErr = nil
	return nil
}

// SendOrder commits the cart lines one by one, opening the context first when
// it is free. Each committed line leaves the local cart as soon as the server
// accepts it; a failure stops the loop and leaves that line and the ones after
// it in the cart. Nothing already committed is rolled back.
func (c *Controller) SendOrder(ctx context.Context, opts SendOptions) (SendResult, error) {
	ctx = c.logCtx(ctx)
	if err := c.begin(); err != nil {
		return SendResult{}, err
	}
	defer c.end()

	ref := c.Ref()
	if current := c.cart.Context(); current != ref {
		return SendResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cart belongs to %s, not %s", current, ref))
	}
	lines := c.cart.Snapshot()
	if len(lines) == 0 {
		return SendResult{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	attendantID, err := c.resolveAttendant(opts.AttendantID)
	if err != nil {
		return SendResult{}, c.alert(ctx, err)
	}

	result := SendResult{Remaining: len(lines)}
	switch c.backend.Availability() {
	case AvailabilityUnavailable:
		return result, c.alert(ctx, pkgerrors.New(pkgerrors.CodeStateConflict, ref.String()+" is not accepting orders"))
	case AvailabilityNeedsOpen:
		if err := c.backend.Open(ctx, attendantID); err != nil {
			return result, c.alert(ctx, err)
		}
		result.Opened = true
		c.logg.Info(ctx, "context opened")
	}

	kind := ref.Kind.String()
	for i, line := range lines {
		if err := c.backend.AddLine(ctx, line); err != nil {
			c.metrics.IncLinesFailed(kind)
			result.Committed = i
			result.Remaining = len(lines) - i
			c.refreshQuietly(ctx)
			return result, c.alert(ctx, sendFailure(err, result))
		}
		c.cart.Commit(ctx, line.ProductID, line.Quantity)
		c.metrics.IncLinesSent(kind)
	}
	result.Committed = len(lines)
	result.Remaining = 0
	c.logg.Info(c.logg.WithField(ctx, "lines", len(lines)), "order sent")
	c.refreshQuietly(ctx)
	return result, nil
}

// CancelItem removes a committed bill item after the operator confirms.
func (c *Controller) CancelItem(ctx context.Context, itemID string, confirmer confirm.Confirmer) error {
	ctx = c.logCtx(ctx)
	if itemID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	name := itemID
	if item, ok := c.Bill().Item(itemID); ok {
		name = item.ProductName
	}
	if err := confirm.Ask(ctx, confirmer, confirm.Prompt{
		Action:  "cancel item",
		Message: fmt.Sprintf("Cancel %s on %s?", name, c.Ref()),
	}); err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.backend.RemoveLine(ctx, itemID); err != nil {
		c.refreshQuietly(ctx)
		return c.alert(ctx, err)
	}
	c.logg.Info(c.logg.WithField(ctx, "item_id", itemID), "bill item cancelled")
	c.refreshQuietly(ctx)
	return nil
}

// CloseBill takes payment for the bill. It refuses without an open cash
// session, checking both before the payment modal opens and right before the
// close call. Fiscal generation runs afterwards and never fails the closure.
func (c *Controller) CloseBill(ctx context.Context, prompter payment.Prompter) (*CloseResult, error) {
	ctx = c.logCtx(ctx)
	if err := c.gate.RequireOpen(); err != nil {
		return nil, c.alert(ctx, err)
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	bill := c.Bill()
	if state := c.State(); state != StateReviewingBill {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("nothing to close on %s (state %s)", c.Ref(), state))
	}
	if prompter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDeclined, "payment cancelled")
	}
	intent, ok, err := prompter.Prompt(ctx, payment.Request{Ref: c.Ref(), NetTotal: bill.NetTotal})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDeclined, "payment cancelled")
	}
	intent = intent.Normalize()
	if err := payment.Validate(intent); err != nil {
		return nil, c.alert(ctx, err)
	}
	if err := c.gate.RequireOpen(); err != nil {
		return nil, c.alert(ctx, err)
	}

	resp, err := c.backend.CloseBill(ctx, CloseRequest{
		WarehouseID:    intent.WarehouseID,
		Method:         intent.Method.String(),
		AmountTendered: intent.AmountTendered,
		AttendantID:    intent.AttendantID,
		CustomerTaxID:  intent.CustomerTaxID,
	})
	if err != nil {
		c.refreshQuietly(ctx)
		return nil, c.alert(ctx, err)
	}

	result := &CloseResult{Change: intent.Change(bill.NetTotal)}
	if resp != nil {
		result.SaleID = resp.SaleID.String()
	}
	kind := c.Ref().Kind.String()
	c.metrics.IncBillsClosed(kind, intent.Method.String())
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{"sale_id": result.SaleID, "method": intent.Method.String()}), "bill closed")

	if c.cart.Context() == c.Ref() {
		c.cart.Clear(ctx)
	}
	c.refreshQuietly(ctx)

	if intent.IssueFiscalReceipt && c.fiscal != nil {
		doc, ferr := c.fiscal.GenerateFromSale(ctx, result.SaleID)
		if ferr != nil {
			c.metrics.IncFiscalFailures(kind)
			result.FiscalErr = ferr
			c.logg.Error(ctx, "fiscal document generation failed", ferr)
			c.notifier.Alert(ctx, c.Ref(), pkgerrors.Wrap(pkgerrors.CodeDependency, ferr,
				"bill closed, but the fiscal document failed: "+pkgerrors.UserMessage(ferr)))
		} else {
			result.Fiscal = doc
		}
	}
	return result, nil
}

// Release frees a context whose bill has no items, after confirmation, and
// stops bill polling for it.
func (c *Controller) Release(ctx context.Context, confirmer confirm.Confirmer) error {
	ctx = c.logCtx(ctx)
	if c.Bill().HasItems() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bill has items: close it instead of releasing")
	}
	if err := confirm.Ask(ctx, confirmer, confirm.Prompt{
		Action:  "release",
		Message: fmt.Sprintf("Release %s?", c.Ref()),
	}); err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.backend.Release(ctx); err != nil {
		return c.alert(ctx, err)
	}
	if c.cart.Context() == c.Ref() {
		c.cart.Clear(ctx)
	}
	c.StopPolling()
	c.refreshQuietly(ctx)
	c.logg.Info(ctx, "context released")
	return nil
}

// StartPolling re-fetches the bill every interval while the context is in
// use. Calling it again replaces the previous schedule.
func (c *Controller) StartPolling(ctx context.Context) {
	if c.poller == nil {
		return
	}
	job := poll.Func("bill:"+c.Ref().String(), func(ctx context.Context) error {
		if c.backend.Availability() != AvailabilityOpen {
			return nil
		}
		return c.Refresh(ctx)
	})
	handle := c.poller.Start(ctx, job, c.interval)
	c.mu.Lock()
	prev := c.polling
	c.polling = handle
	c.mu.Unlock()
	prev.Stop()
}

// StopPolling clears the schedule. A fetch already in flight may still land.
func (c *Controller) StopPolling() {
	c.mu.Lock()
	handle := c.polling
	c.polling = nil
	c.mu.Unlock()
	handle.Stop()
}

// Polling reports whether a bill schedule is active.
func (c *Controller) Polling() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.polling != nil
}

func (c *Controller) resolveAttendant(requested string) (string, error) {
	if requested == "" || requested == c.operator.ID {
		return "", nil
	}
	if !attendant.CanChooseAttendant(c.operator) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only cashier, manager or admin operators may choose another attendant")
	}
	return requested, nil
}

func (c *Controller) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return pkgerrors.New(pkgerrors.CodeConflict, "another action is still in progress on "+c.Ref().String())
	}
	return nil
}

func (c *Controller) end() {
	c.busy.Store(false)
}

func (c *Controller) alert(ctx context.Context, err error) error {
	c.notifier.Alert(ctx, c.Ref(), err)
	return err
}

func (c *Controller) refreshQuietly(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logg.Warn(ctx, fmt.Sprintf("bill reload failed: %v", err))
	}
}

func (c *Controller) logCtx(ctx context.Context) context.Context {
	ref := c.Ref()
	ctx = c.logg.WithContextRef(ctx, ref.Kind.String(), ref.ID)
	if c.operator.ID != "" {
		ctx = c.logg.WithOperatorID(ctx, c.operator.ID)
	}
	return ctx
}

func sendFailure(err error, result SendResult) error {
	details := map[string]int{"committed": result.Committed, "remaining": result.Remaining}
	message := pkgerrors.UserMessage(err)
	if result.Committed == 0 {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message).WithDetails(details)
	}
	message = fmt.Sprintf("%d of %d lines sent; %s", result.Committed, result.Committed+result.Remaining, message)
	return pkgerrors.Wrap(pkgerrors.CodePartial, err, message).WithDetails(details)
}
