// Package checkout drives a cart through payment: method selection, cash
// tender, and the single finalizing request that turns the cart into a sale.
package checkout

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/pricing"
	"github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/internal/sales"
	"github.com/tillpoint/pos-engine/pkg/backend"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
	"github.com/tillpoint/pos-engine/pkg/metrics"
)

// Result is the state of a register's checkout after an operation. Sale and
// Snapshot are set only when the operation completed a sale; Snapshot is the
// exact cart the sale was built from, for receipt handling.
type Result struct {
	State          enums.CheckoutState `json:"state"`
	Method         enums.PaymentMethod `json:"method,omitempty"`
	Totals         pricing.Totals      `json:"totals"`
	AmountTendered *decimal.Decimal    `json:"amount_tendered,omitempty"`
	ChangeDue      *decimal.Decimal    `json:"change_due,omitempty"`
	Sale           *backend.Sale       `json:"sale,omitempty"`
	Snapshot       *cart.Cart          `json:"snapshot,omitempty"`
}

// Service runs the checkout workflow for any register.
type Service interface {
	Begin(ctx context.Context, sess *register.Session) (*Result, error)
	SelectMethod(ctx context.Context, sess *register.Session, method enums.PaymentMethod) (*Result, error)
	TenderCash(ctx context.Context, sess *register.Session, amount decimal.Decimal) (*Result, error)
	Cancel(ctx context.Context, sess *register.Session) (*Result, error)
	Status(ctx context.Context, sess *register.Session) (*Result, error)
}

// machine is one register's checkout state. Transitions run under its lock;
// the lock is released while the create-sale request is in flight, with
// inFlight blocking any re-entry into finalizing.
type machine struct {
	mu       sync.Mutex
	state    enums.CheckoutState
	method   enums.PaymentMethod
	tendered *decimal.Decimal
	change   *decimal.Decimal
	inFlight bool
}

type service struct {
	sales   sales.Service
	rates   register.RateResolver
	region  string
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics

	mu       sync.Mutex
	machines map[string]*machine
}

// NewService builds the checkout workflow. metrics and logg may be nil.
func NewService(saleSvc sales.Service, rates register.RateResolver, region string, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if saleSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service requires a sales service")
	}
	if rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service requires a rate resolver")
	}
	return &service{
		sales:    saleSvc,
		rates:    rates,
		region:   region,
		logg:     logg,
		metrics:  m,
		machines: make(map[string]*machine),
	}, nil
}

func (s *service) machineFor(sess *register.Session) *machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.machines[sess.ID()]; ok {
		return existing
	}
	created := &machine{state: enums.CheckoutStateBuilding}
	s.machines[sess.ID()] = created
	return created
}

// Begin moves the register from building into method selection. An empty
// cart cannot check out.
func (s *service) Begin(ctx context.Context, sess *register.Session) (*Result, error) {
	m := s.machineFor(sess)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already finalizing")
	}
	if m.state != enums.CheckoutStateBuilding && m.state != enums.CheckoutStateFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout has already begun")
	}
	if sess.Snapshot().IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot check out an empty cart")
	}

	m.state = enums.CheckoutStateMethodSelection
	m.method = ""
	m.tendered = nil
	m.change = nil
	return s.result(ctx, sess, m)
}

// SelectMethod records the payment method. Cash moves to the tender prompt;
// card and other finalize immediately.
func (s *service) SelectMethod(ctx context.Context, sess *register.Session, method enums.PaymentMethod) (*Result, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	m := s.machineFor(sess)
	m.mu.Lock()

	if m.inFlight {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already finalizing")
	}
	// A failed attempt retries from method selection without re-beginning.
	if m.state != enums.CheckoutStateMethodSelection && m.state != enums.CheckoutStateFailed {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not awaiting a payment method")
	}

	m.method = method
	if method == enums.PaymentMethodCash {
		m.state = enums.CheckoutStateCashTender
		m.tendered = nil
		m.change = nil
		defer m.mu.Unlock()
		return s.result(ctx, sess, m)
	}

	return s.finalizeLocked(ctx, sess, m)
}

// TenderCash accepts the cash amount and finalizes. Amounts below the total
// are rejected and the machine stays in the tender prompt.
func (s *service) TenderCash(ctx context.Context, sess *register.Session, amount decimal.Decimal) (*Result, error) {
	m := s.machineFor(sess)
	m.mu.Lock()

	if m.inFlight {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already finalizing")
	}
	if m.state != enums.CheckoutStateCashTender {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not awaiting cash tender")
	}

	totals, err := s.totals(ctx, sess)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if amount.LessThan(totals.Total) {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount tendered is less than the total").
			WithDetails(map[string]string{
				"amount_tendered": amount.StringFixed(2),
				"total":           totals.Total.StringFixed(2),
			})
	}

	tendered := amount
	change := amount.Sub(totals.Total)
	m.tendered = &tendered
	m.change = &change
	return s.finalizeLocked(ctx, sess, m)
}

// Cancel returns the register to building. Building, method selection, cash
// tender and a failed attempt all cancel with no side effects; a finalizing
// checkout cannot be cancelled.
func (s *service) Cancel(ctx context.Context, sess *register.Session) (*Result, error) {
	m := s.machineFor(sess)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel while finalizing")
	}

	m.state = enums.CheckoutStateBuilding
	m.method = ""
	m.tendered = nil
	m.change = nil
	return s.result(ctx, sess, m)
}

// Status reports the register's current checkout state and live totals.
func (s *service) Status(ctx context.Context, sess *register.Session) (*Result, error) {
	m := s.machineFor(sess)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight {
		totals, err := s.totals(ctx, sess)
		if err != nil {
			return nil, err
		}
		return &Result{
			State:          enums.CheckoutStateFinalizing,
			Method:         m.method,
			Totals:         totals,
			AmountTendered: m.tendered,
			ChangeDue:      m.change,
		}, nil
	}
	return s.result(ctx, sess, m)
}

// finalizeLocked issues the create-sale request. It enters with m.mu held
// and releases it for the duration of the request so status reads and the
// in-flight guard stay responsive; exactly one request runs per attempt.
func (s *service) finalizeLocked(ctx context.Context, sess *register.Session, m *machine) (*Result, error) {
	snapshot := sess.Snapshot()
	if snapshot.IsEmpty() {
		m.state = enums.CheckoutStateBuilding
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot check out an empty cart")
	}

	totals, err := s.totals(ctx, sess)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	method := m.method
	tendered := m.tendered
	change := m.change
	m.state = enums.CheckoutStateFinalizing
	m.inFlight = true
	m.mu.Unlock()

	s.metrics.IncAttempt(string(method))
	sale, saleErr := s.sales.CreateSale(ctx, snapshot, totals, method, tendered)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if saleErr != nil {
		// The cart is untouched; the caller may retry from method selection.
		m.state = enums.CheckoutStateFailed
		s.metrics.IncFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithRegisterID(ctx, sess.ID()), "checkout finalization failed", saleErr)
		}
		return nil, saleErr
	}

	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.Clear()
		return nil
	}); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithRegisterID(ctx, sess.ID()), "cart clear after sale failed")
	}

	s.metrics.IncCompletion()
	m.state = enums.CheckoutStateBuilding
	m.method = ""
	m.tendered = nil
	m.change = nil

	return &Result{
		State:          enums.CheckoutStateCompleted,
		Method:         method,
		Totals:         totals,
		AmountTendered: tendered,
		ChangeDue:      change,
		Sale:           sale,
		Snapshot:       snapshot,
	}, nil
}

func (s *service) totals(ctx context.Context, sess *register.Session) (pricing.Totals, error) {
	snapshot := sess.Snapshot()
	rate, err := s.rates.RateFor(ctx, s.region, categorySet(snapshot))
	if err != nil {
		return pricing.Totals{}, err
	}
	return pricing.Compute(snapshot, rate), nil
}

func (s *service) result(ctx context.Context, sess *register.Session, m *machine) (*Result, error) {
	totals, err := s.totals(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &Result{
		State:          m.state,
		Method:         m.method,
		Totals:         totals,
		AmountTendered: m.tendered,
		ChangeDue:      m.change,
	}, nil
}

func categorySet(c *cart.Cart) []string {
	seen := make(map[string]struct{}, len(c.Lines))
	categories := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		if line.Category == "" {
			continue
		}
		if _, ok := seen[line.Category]; ok {
			continue
		}
		seen[line.Category] = struct{}{}
		categories = append(categories, line.Category)
	}
	return categories
}
