// Package cashier tracks the open cash register session. No bill may be
// closed while no session is open; consumers call RequireOpen right before
// initiating payment.
package cashier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/angelmondragon/pdv-terminal/internal/confirm"
	"github.com/angelmondragon/pdv-terminal/internal/poll"
	"github.com/angelmondragon/pdv-terminal/pkg/apiclient"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	openSessionPath  = "/sessoes-caixa/aberta/"
	openRegisterPath = "/sessoes-caixa/abrir/"
)

// ErrNoOpenSession is returned by RequireOpen.
var ErrNoOpenSession = pkgerrors.New(pkgerrors.CodePrecondition, "no open cash session: open the register before taking payments")

// API is the slice of the API client the gate needs.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Session is a register's open-to-close operating period.
type Session struct {
	ID             types.ID                `json:"id"`
	RegisterID     types.ID                `json:"caixa_id"`
	OperatorID     types.ID                `json:"operador_id"`
	OpenedAt       time.Time               `json:"data_abertura"`
	ClosedAt       *time.Time              `json:"data_fechamento,omitempty"`
	OpeningBalance decimal.Decimal         `json:"saldo_inicial"`
	Status         enums.CashSessionStatus `json:"status"`
}

// IsOpen reports whether the session still gates payments open. Only an
// identified session explicitly marked ABERTA counts; an empty 2xx body does not.
func (s *Session) IsOpen() bool {
	return s != nil && !s.ID.IsZero() && s.ClosedAt == nil && s.Status == enums.CashSessionStatusOpen
}

type openRequest struct {
	RegisterID     string          `json:"caixa_id"`
	OpeningBalance decimal.Decimal `json:"saldo_inicial"`
}

type closeRequest struct {
	ClosingBalance decimal.Decimal `json:"saldo_final"`
}

// Gate is the process-wide cash session store.
type Gate struct {
	api  API
	logg *logger.Logger

	mu      sync.RWMutex
	session *Session
	loading bool
	err     error
}

func NewGate(api API, logg *logger.Logger) (*Gate, error) {
	if api == nil {
		return nil, errors.New("cashier api is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gate{api: api, logg: logg}, nil
}

// CheckSession fetches the open session. Any failure, 404 included, is
// treated as "no open session" and is not returned.
func (g *Gate) CheckSession(ctx context.Context) *Session {
	g.setLoading(true)
	defer g.setLoading(false)

	var session Session
	err := g.api.Get(ctx, openSessionPath, nil, &session)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil || !session.IsOpen() {
		if err != nil && apiclient.StatusOf(err) != 404 {
			g.logg.Warn(ctx, fmt.Sprintf("cash session check failed: %v", err))
		}
		g.session = nil
		return nil
	}
	g.session = &session
	return cloneSession(g.session)
}

// OpenSession opens a register with the counted opening balance.
func (g *Gate) OpenSession(ctx context.Context, registerID string, openingBalance decimal.Decimal) error {
	g.begin()
	defer g.setLoading(false)

	if registerID == "" {
		return g.fail(pkgerrors.New(pkgerrors.CodeValidation, "register id is required"))
	}
	if openingBalance.IsNegative() {
		return g.fail(pkgerrors.New(pkgerrors.CodeValidation, "opening balance cannot be negative"))
	}

	var session Session
	req := openRequest{RegisterID: registerID, OpeningBalance: openingBalance}
	if err := g.api.Post(ctx, openRegisterPath, req, &session); err != nil {
		return g.fail(err)
	}
	if session.Status == "" {
		session.Status = enums.CashSessionStatusOpen
	}
	g.mu.Lock()
	g.session = &session
	g.mu.Unlock()
	g.logg.Info(g.logg.WithField(ctx, "session_id", session.ID.String()), "cash session opened")
	return nil
}

// CloseSession closes the tracked session with the counted final balance.
// Without a tracked session it does nothing.
func (g *Gate) CloseSession(ctx context.Context, counted decimal.Decimal, confirmer confirm.Confirmer) error {
	current := g.Session()
	if current == nil {
		return nil
	}
	if err := confirm.Ask(ctx, confirmer, confirm.Prompt{
		Action:  "close register",
		Message: fmt.Sprintf("Close cash session %s with final balance %s?", current.ID, counted.StringFixed(2)),
	}); err != nil {
		return err
	}

	g.begin()
	defer g.setLoading(false)

	path := fmt.Sprintf("/sessoes-caixa/%s/fechar/", current.ID)
	if err := g.api.Post(ctx, path, closeRequest{ClosingBalance: counted}, nil); err != nil {
		return g.fail(err)
	}
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	g.logg.Info(g.logg.WithField(ctx, "session_id", current.ID.String()), "cash session closed")
	return nil
}

// RequireOpen fails with PRECONDITION_FAILED unless a session is open.
func (g *Gate) RequireOpen() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.session.IsOpen() {
		return ErrNoOpenSession
	}
	return nil
}

func (g *Gate) Session() *Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneSession(g.session)
}

func (g *Gate) IsLoading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading
}

// Err is the last open or close failure, for the UI to render.
func (g *Gate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Job re-checks the session so one opened on another terminal unlocks payment.
func (g *Gate) Job() poll.Job {
	return poll.Func("cash-session", func(ctx context.Context) error {
		g.CheckSession(ctx)
		return nil
	})
}

func (g *Gate) begin() {
	g.mu.Lock()
	g.loading = true
	g.err = nil
	g.mu.Unlock()
}

func (g *Gate) setLoading(v bool) {
	g.mu.Lock()
	g.loading = v
	g.mu.Unlock()
}

func (g *Gate) fail(err error) error {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	return err
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
