package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/internal/metrics"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/verify"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	session *session.Session
	lookup  *testsupport.FakeLookup
	sink    *testsupport.RecordingSink
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, formID string, opts ...session.Option) *fixture {
	t.Helper()
	fx := &fixture{
		lookup:  testsupport.NewFakeLookup(),
		sink:    &testsupport.RecordingSink{},
		metrics: metrics.New("test", prometheus.NewRegistry()),
	}
	opts = append([]session.Option{
		session.WithLookup(fx.lookup),
		session.WithSink(fx.sink),
		session.WithObserver(fx.metrics),
		session.WithLogger(testsupport.DiscardLogger()),
	}, opts...)
	s, err := session.New(testsupport.Form(t, formID), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	fx.session = s
	return fx
}

func (fx *fixture) input(t *testing.T, field, raw string) string {
	t.Helper()
	value, err := fx.session.SetInput(field, raw)
	require.NoError(t, err)
	return value
}

// fillSignup enters a valid sign-up form except for the postal code.
func (fx *fixture) fillSignup(t *testing.T) {
	t.Helper()
	fx.input(t, model.FieldName, "José da Silva")
	fx.input(t, model.FieldEmail, "jose@example.com")
	fx.input(t, model.FieldBirthDate, "07/03/1990")
	fx.input(t, model.FieldPhone, "11987654321")
	fx.input(t, model.FieldPassword, "Abc123!x")
	fx.input(t, model.FieldConfirmPassword, "Abc123!x")
}

func (fx *fixture) status(t *testing.T) verify.Status {
	t.Helper()
	status, err := fx.session.VerificationStatus()
	require.NoError(t, err)
	return status
}

func (fx *fixture) errorKind(t *testing.T, field string) form.ErrorKind {
	t.Helper()
	fe, err := fx.session.Error(field)
	require.NoError(t, err)
	return fe.Kind
}

func submitAsync(ctx context.Context, s *session.Session) <-chan submitResult {
	out := make(chan submitResult, 1)
	go func() {
		d, err := s.Submit(ctx)
		out <- submitResult{decision: d, err: err}
	}()
	return out
}

type submitResult struct {
	decision session.Decision
	err      error
}

func TestSubmit_AllEmptyRequiresEveryFieldWithoutNetwork(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)

	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRejected, decision.Outcome)

	want := map[string]form.ErrorKind{}
	for _, name := range fx.session.Form().FieldNames() {
		want[name] = form.KindRequired
	}
	got := map[string]form.ErrorKind{}
	for name, fe := range decision.Errors {
		got[name] = fe.Kind
		assert.NotEmpty(t, fe.Message, name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected errors (-want +got):\n%s", diff)
	}

	assert.Equal(t, 0, fx.lookup.Count())
	assert.Equal(t, 0, fx.sink.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Submissions.WithLabelValues(model.FormSignUp, "rejected")))
}

func TestSetInput_ClearsOnlyTheEditedFieldError(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	_, err := fx.session.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "(11", fx.input(t, model.FieldPhone, "11"))
	assert.Equal(t, form.KindNone, fx.errorKind(t, model.FieldPhone))
	assert.Equal(t, form.KindRequired, fx.errorKind(t, model.FieldEmail))

	// Re-entering the same value is not an edit.
	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, form.KindWrongLength, decision.Errors[model.FieldPhone].Kind)
	fx.input(t, model.FieldPhone, "(11")
	assert.Equal(t, form.KindWrongLength, fx.errorKind(t, model.FieldPhone))
}

func TestSetInput_MasksAndRejectsOverTyping(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)

	assert.Equal(t, "(11) 98765-4321", fx.input(t, model.FieldPhone, "11987654321"))
	assert.Equal(t, "(11) 98765-4321", fx.input(t, model.FieldPhone, "(11) 98765-43219"))
	assert.Equal(t, "0131010", fx.input(t, model.FieldPostalCode, "01310-10"))

	_, err := fx.session.SetInput("nickname", "x")
	assert.ErrorIs(t, err, form.ErrUnknownField)
}

func TestPostalCode_IncompleteCodeIssuesNoLookup(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)

	fx.input(t, model.FieldPostalCode, "0131010")
	assert.Equal(t, verify.StatusIdle, fx.status(t))

	fx.input(t, model.FieldPostalCode, "01310100")
	call := fx.lookup.Next(t)
	assert.Equal(t, "01310100", call.PostalCode)
	assert.Equal(t, verify.StatusPending, fx.status(t))

	// Shortening the code abandons the lookup.
	fx.input(t, model.FieldPostalCode, "0131010")
	assert.Equal(t, verify.StatusIdle, fx.status(t))
	call.Found(verify.Address{})
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(fx.metrics.LookupsDiscarded) == 1
	}, waitFor, tick)
	assert.Equal(t, verify.StatusIdle, fx.status(t))
	assert.Equal(t, []string{"01310100"}, fx.lookup.Calls())
}

func TestPostalCode_LatestLookupWinsWhenStaleArrivesLast(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)

	fx.input(t, model.FieldPostalCode, "01310100")
	first := fx.lookup.Next(t)
	fx.input(t, model.FieldPostalCode, "04567000")
	latest := fx.lookup.Next(t)

	latest.Found(verify.Address{Street: "Rua Funchal", City: "São Paulo", State: "SP"})
	status, err := fx.session.AwaitVerification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, verify.StatusConfirmed, status)

	first.NotFound()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(fx.metrics.LookupsDiscarded) == 1
	}, waitFor, tick)

	assert.Equal(t, verify.StatusConfirmed, fx.status(t))
	assert.Equal(t, form.KindNone, fx.errorKind(t, model.FieldPostalCode))
	addr, ok, err := fx.session.Address()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "04567000", addr.PostalCode)
	assert.Equal(t, "Rua Funchal", addr.Street)
}

func TestPostalCode_LatestLookupWinsWhenStaleArrivesFirst(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)

	fx.input(t, model.FieldPostalCode, "01310100")
	first := fx.lookup.Next(t)
	fx.input(t, model.FieldPostalCode, "04567000")
	latest := fx.lookup.Next(t)

	first.Found(verify.Address{})
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(fx.metrics.LookupsDiscarded) == 1
	}, waitFor, tick)
	assert.Equal(t, verify.StatusPending, fx.status(t))
	assert.Equal(t, form.KindNone, fx.errorKind(t, model.FieldPostalCode))

	latest.NotFound()
	status, err := fx.session.AwaitVerification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, verify.StatusNotFound, status)
	assert.Equal(t, form.KindNotFound, fx.errorKind(t, model.FieldPostalCode))
}

func TestSubmit_PendingLookupHoldsDecision(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.fillSignup(t)
	fx.input(t, model.FieldPostalCode, "01310-100")
	call := fx.lookup.Next(t)

	results := submitAsync(context.Background(), fx.session)
	select {
	case res := <-results:
		t.Fatalf("submission decided while lookup pending: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	// Editing keeps working while the submission waits.
	fx.input(t, model.FieldName, "José Silva")

	call.Found(verify.Address{City: "São Paulo"})
	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, session.OutcomeAccepted, res.decision.Outcome)
	assert.Empty(t, res.decision.Errors)

	want := sink.Payload{
		Form:      model.FormSignUp,
		Operation: "createAccount",
		Fields: map[string]string{
			model.FieldName:       "José Silva",
			model.FieldEmail:      "jose@example.com",
			model.FieldBirthDate:  "07/03/1990",
			model.FieldPhone:      "11987654321",
			model.FieldPostalCode: "01310100",
			model.FieldPassword:   "Abc123!x",
		},
	}
	payloads := fx.sink.Payloads()
	require.Len(t, payloads, 1)
	if diff := testsupport.CompareGolden(want, payloads[0]); diff != "" {
		t.Fatalf("unexpected payload (-want +got):\n%s", diff)
	}

	contract, err := sink.BuiltinContract()
	require.NoError(t, err)
	assert.NoError(t, contract.Check(payloads[0]))
}

func TestSubmit_ContextEndsWhilePending(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.fillSignup(t)
	fx.input(t, model.FieldPostalCode, "01310100")
	fx.lookup.Next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	decision, err := fx.session.Submit(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, session.OutcomePending, decision.Outcome)
	assert.Equal(t, 0, fx.sink.Count())
}

func TestSubmit_RejectsWithoutWaitingWhenOtherFieldsFail(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.input(t, model.FieldPostalCode, "01310100")
	fx.lookup.Next(t)

	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRejected, decision.Outcome)
	_, flagged := decision.Errors[model.FieldPostalCode]
	assert.False(t, flagged, "pending postal code must not carry an error")
	assert.Equal(t, 1, fx.lookup.Count())
}

func TestSubmit_NotFoundBlocks(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.fillSignup(t)
	fx.input(t, model.FieldPostalCode, "99999999")
	fx.lookup.Next(t).NotFound()
	_, err := fx.session.AwaitVerification(context.Background())
	require.NoError(t, err)

	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRejected, decision.Outcome)
	assert.Equal(t, form.KindNotFound, decision.Errors[model.FieldPostalCode].Kind)
	assert.Equal(t, "CEP não encontrado!", decision.Errors[model.FieldPostalCode].Message)
	assert.Equal(t, 1, fx.lookup.Count())
	assert.Equal(t, 0, fx.sink.Count())
}

func TestSubmit_RetriesFailedLookupOnce(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.fillSignup(t)
	fx.input(t, model.FieldPostalCode, "01310100")
	fx.lookup.Next(t).Fail(errors.New("connection reset"))
	status, err := fx.session.AwaitVerification(context.Background())
	require.NoError(t, err)
	require.Equal(t, verify.StatusFailed, status)
	assert.Equal(t, form.KindLookupFailed, fx.errorKind(t, model.FieldPostalCode))

	results := submitAsync(context.Background(), fx.session)
	fx.lookup.Next(t).Fail(errors.New("connection reset"))
	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, session.OutcomeRejected, res.decision.Outcome)
	assert.Equal(t, form.KindLookupFailed, res.decision.Errors[model.FieldPostalCode].Kind)
	assert.Equal(t, 2, fx.lookup.Count())

	// The next attempt retries again and can succeed.
	results = submitAsync(context.Background(), fx.session)
	fx.lookup.Next(t).Found(verify.Address{})
	res = <-results
	require.NoError(t, res.err)
	assert.Equal(t, session.OutcomeAccepted, res.decision.Outcome)
	assert.Equal(t, 1, fx.sink.Count())
}

func TestSubmit_LookupTimeoutIsFailure(t *testing.T) {
	stuck := verify.LookupFunc(func(ctx context.Context, _ string) (verify.Response, error) {
		<-ctx.Done()
		return verify.Response{}, ctx.Err()
	})
	fx := newFixture(t, model.FormSignUp,
		session.WithLookup(stuck),
		session.WithLookupTimeout(10*time.Millisecond),
	)
	fx.fillSignup(t)
	fx.input(t, model.FieldPostalCode, "01310100")

	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRejected, decision.Outcome)
	assert.Equal(t, form.KindLookupFailed, decision.Errors[model.FieldPostalCode].Kind)
}

func TestSubmit_ConfirmPasswordFollowsPassword(t *testing.T) {
	fx := newFixture(t, model.FormPasswordReset)
	fx.input(t, model.FieldToken, "123 456")
	fx.input(t, model.FieldPassword, "Abc123!x")
	fx.input(t, model.FieldConfirmPassword, "Abc123!x")

	decision, err := fx.session.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.OutcomeAccepted, decision.Outcome)
	assert.Equal(t, map[string]string{
		model.FieldToken:    "123456",
		model.FieldPassword: "Abc123!x",
	}, decision.Payload.Fields)

	fx.input(t, model.FieldPassword, "Xyz789#a")
	decision, err = fx.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRejected, decision.Outcome)
	assert.Equal(t, form.KindMismatch, decision.Errors[model.FieldConfirmPassword].Kind)
	assert.Equal(t, 0, fx.lookup.Count())
}

func TestSubmit_SinkFailureIsReported(t *testing.T) {
	fx := newFixture(t, model.FormLogin)
	fx.sink.Err = errors.New("upstream unavailable")
	fx.input(t, model.FieldEmail, "ana@example.com")
	fx.input(t, model.FieldPassword, "x")

	decision, err := fx.session.Submit(context.Background())
	assert.ErrorIs(t, err, fx.sink.Err)
	assert.Equal(t, session.OutcomeAccepted, decision.Outcome)
}

func TestPickDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	today := time.Date(2024, time.May, 10, 9, 0, 0, 0, loc)
	fx := newFixture(t, model.FormSignUp, session.WithClock(func() time.Time { return today }))
	ctx := context.Background()

	var gotMax time.Time
	value, err := fx.session.PickDate(ctx, model.FieldBirthDate, session.DatePickerFunc(
		func(_ context.Context, max time.Time) (time.Time, error) {
			gotMax = max
			return time.Date(1990, time.March, 7, 0, 0, 0, 0, loc), nil
		}))
	require.NoError(t, err)
	assert.Equal(t, "07/03/1990", value)
	assert.True(t, gotMax.Equal(today))

	value, err = fx.session.PickDate(ctx, model.FieldBirthDate, session.DatePickerFunc(
		func(context.Context, time.Time) (time.Time, error) {
			return time.Time{}, session.ErrPickerCancelled
		}))
	assert.ErrorIs(t, err, session.ErrPickerCancelled)
	assert.Equal(t, "07/03/1990", value)

	_, err = fx.session.PickDate(ctx, model.FieldBirthDate, session.DatePickerFunc(
		func(context.Context, time.Time) (time.Time, error) {
			return today.AddDate(0, 0, 1), nil
		}))
	assert.ErrorIs(t, err, session.ErrFutureDate)
	stored, err := fx.session.Value(model.FieldBirthDate)
	require.NoError(t, err)
	assert.Equal(t, "07/03/1990", stored)
}

func TestPaste_StripsMarkupBeforeMasking(t *testing.T) {
	fx := newFixture(t, model.FormPasswordReset)
	clip := session.ClipboardFunc(func(context.Context) (string, error) {
		return "<b>12 34</b>\n<script>alert(1)</script>56", nil
	})
	value, err := fx.session.Paste(context.Background(), model.FieldToken, clip)
	require.NoError(t, err)
	assert.Equal(t, "123456", value)

	fx2 := newFixture(t, model.FormSignUp)
	value, err = fx2.session.Paste(context.Background(), model.FieldPostalCode, session.ClipboardFunc(
		func(context.Context) (string, error) { return "CEP: 01310-100", nil }))
	require.NoError(t, err)
	assert.Equal(t, "01310100", value)
	assert.Equal(t, "01310100", fx2.lookup.Next(t).PostalCode)
}

func TestClose(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	fx.input(t, model.FieldPostalCode, "01310100")
	call := fx.lookup.Next(t)

	require.NoError(t, fx.session.Close())
	require.NoError(t, fx.session.Close())
	call.Found(verify.Address{})

	_, err := fx.session.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrClosed)
	_, err = fx.session.SetInput(model.FieldName, "Ana")
	assert.ErrorIs(t, err, session.ErrClosed)
}

func TestUninitialisedSession(t *testing.T) {
	var nilSession *session.Session
	_, err := nilSession.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrNotInitialized)

	var zero session.Session
	_, err = zero.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrNotInitialized)
	_, err = zero.SetInput(model.FieldName, "Ana")
	assert.ErrorIs(t, err, session.ErrNotInitialized)

	_, err = session.New(model.FormModel{})
	assert.ErrorIs(t, err, session.ErrNotInitialized)
}

func TestFormCarriesResolvedMasks(t *testing.T) {
	fx := newFixture(t, model.FormSignUp)
	def := fx.session.Form()

	phone, ok := def.Field(model.FieldPhone)
	require.True(t, ok)
	assert.Equal(t, mask.MaskPhone, phone.Metadata[mask.MetadataKey])

	name, ok := def.Field(model.FieldName)
	require.True(t, ok)
	assert.Equal(t, mask.MaskText, name.Metadata[mask.MetadataKey])
}
