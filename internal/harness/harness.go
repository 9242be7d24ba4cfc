package harness

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/validate"
)

// BaseURL is the origin used for reset links and checkout redirects.
const BaseURL = "http://shop.test"

// Harness executes steps against a private storefront.
type Harness struct {
	store    *store.Store
	auth     *auth.Service
	shop     *shop.Service
	payments *payment.OfflineGateway
	clock    *testutil.FixedClock
	mailer   *recordingMailer
	log      *zap.Logger

	// checkouts holds the last checkout session started per user id.
	checkouts map[int64]string
	seq       int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The clock starts at
// testutil.DefaultTime and only moves on advance_clock; order numbers are
// SO-0001, SO-0002, ... An error is returned when the scenario cannot be
// executed at all (a setup step failed, an argument is malformed); broken
// expectations are reported through Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	h, err := New()
	if err != nil {
		return nil, err
	}
	defer h.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		outCase, out, err := h.Execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
		if outCase != CaseSuccess {
			return nil, fmt.Errorf("setup step %d (%s): completed with %s: %v", i, step.Invoke, outCase, out["message"])
		}
	}

	for i, step := range scenario.Flow {
		outCase, out, err := h.Execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
		checkExpect(result, i, step, outCase, out)
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// New creates a harness over a fresh in-memory store.
func New() (*Harness, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	h := &Harness{
		store:     st,
		payments:  payment.NewOfflineGateway(false),
		clock:     testutil.NewFixedClock(time.Time{}),
		mailer:    &recordingMailer{},
		log:       zap.NewNop(),
		checkouts: make(map[int64]string),
	}

	h.auth = auth.New(st, h.mailer, h.clock, h.log, nil, auth.Config{
		Cost:     bcrypt.MinCost,
		BaseURL:  BaseURL,
		ResetTTL: time.Hour,
	})

	orders := 0
	h.shop = shop.New(shop.Deps{
		Store:    st,
		Images:   fakeImages{},
		Payments: h.payments,
		Mailer:   h.mailer,
		Clock:    h.clock,
		Log:      h.log,
	}, shop.Config{
		NewNumber: func() string {
			orders++
			return fmt.Sprintf("SO-%04d", orders)
		},
	})
	return h, nil
}

// Close releases the store.
func (h *Harness) Close() error {
	return h.store.Close()
}

// Store exposes the underlying store for assertions.
func (h *Harness) Store() *store.Store {
	return h.store
}

// Execute runs one step, appending its invocation, any emails it sent and
// its completion to result. It returns the output case and result.
func (h *Harness) Execute(ctx context.Context, step Step, result *Result) (string, map[string]any, error) {
	if err := validateStep(step); err != nil {
		return "", nil, err
	}
	act := actions[step.Invoke]

	h.seq++
	result.AddInvocationTrace(step.Invoke, step.As, step.Args, h.seq)

	var user domain.User
	if act.needsUser {
		u, err := h.store.UserByEmail(ctx, validate.Email(step.As))
		if err != nil {
			return "", nil, fmt.Errorf("account %q: %w", step.As, err)
		}
		user = u
	}

	out, err := act.run(h, ctx, user, args(step.Args))

	for _, msg := range h.mailer.take() {
		h.seq++
		result.AddEmailTrace(msg.To, msg.Subject, h.seq)
	}

	var argErr *argError
	if errors.As(err, &argErr) {
		return "", nil, err
	}
	outCase := CaseSuccess
	if err != nil {
		outCase, out = failure(err)
	}

	h.seq++
	result.AddCompletionTrace(outCase, out, h.seq)
	return outCase, out, nil
}

// checkExpect compares a completion with the step's expect clause.
func checkExpect(result *Result, i int, step Step, outCase string, out map[string]any) {
	wantCase := CaseSuccess
	var wantResult map[string]any
	if step.Expect != nil {
		wantCase, wantResult = step.Expect.Case, step.Expect.Result
	}

	if outCase != wantCase {
		msg := fmt.Sprintf("flow step %d (%s): expected case %s, got %s", i, step.Invoke, wantCase, outCase)
		if m, ok := out["message"]; ok {
			msg += fmt.Sprintf(" (%v)", m)
		}
		result.AddError(msg)
		return
	}
	if !matchArgs(out, wantResult) {
		result.AddError(fmt.Sprintf("flow step %d (%s): expected result %v, got %v", i, step.Invoke, wantResult, out))
	}
}

// failure maps an operation error to its output case and result.
func failure(err error) (string, map[string]any) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return "ERROR", map[string]any{"message": err.Error()}
	}
	out := map[string]any{"message": de.Message}
	if de.Field != "" {
		out["field"] = de.Field
	}
	return string(de.Code), out
}

// recordingMailer keeps sent messages until the harness takes them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) take() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.sent
	m.sent = nil
	return sent
}

// fakeImages names images after the uploaded file without touching disk.
type fakeImages struct{}

func (fakeImages) Save(fh *multipart.FileHeader) (string, error) {
	return "/images/" + fh.Filename, nil
}

func (fakeImages) Delete(string) error { return nil }
