package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	registerHash = common.HexToHash("0x9f2c1a")
	verifyHash   = common.HexToHash("0x77ab01")
	ledgerAddr   = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func registrationHandle(survey string) domain.TxHandle {
	return domain.TxHandle{
		Hash:         registerHash,
		Kind:         domain.TxKindRegistration,
		From:         testAccount,
		To:           ledgerAddr,
		Gas:          500000,
		SurveyNumber: survey,
	}
}

func verificationHandle(uid string) domain.TxHandle {
	return domain.TxHandle{
		Hash:    verifyHash,
		Kind:    domain.TxKindVerification,
		From:    testAccount,
		To:      ledgerAddr,
		LandUID: uid,
	}
}

func TestRegisterLandRejectsZeroAreaBeforeLedger(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	input := validInput()
	input.Area.Value = 0
	_, err := f.coord.RegisterLand(context.Background(), input)

	require.ErrorIs(t, err, domain.ErrInvalidArea)
	assert.Zero(t, gatewayCallsTo(f.gateway, "SubmitRegistration"))
	assert.Zero(t, callsTo(f.agent, "SendTransaction"))
	assert.Empty(t, f.tracker.All())

	active := f.queue.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "Land registration failed", active[1].Title)
	assert.Equal(t, domain.ToastError, active[1].Kind)
}

func TestRegisterLandRequiresConnection(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RegisterLand(context.Background(), validInput())

	require.ErrorIs(t, err, domain.ErrNotConnected)
	active := f.queue.Active()
	require.Len(t, active, 1)
	assert.Equal(t, domain.ToastWarning, active[0].Kind)
	assert.Empty(t, f.gateway.Calls)
}

func TestRegisterLandConfirmsAndResolvesUID(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	input := validInput()
	handle := registrationHandle("NRG-77#m5x2kq.1")
	registered := domain.LandRecord{UID: "LND-3", Owner: testAccount, SurveyNumber: handle.SurveyNumber}

	f.gateway.On("SubmitRegistration", mock.Anything, testAccount, input).Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).
		Return(domain.Receipt{TxHash: handle.Hash, BlockNumber: 42, Succeeded: true}, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(append(sampleRecords(), registered), nil).Once()

	tx, err := f.coord.RegisterLand(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, registerHash, tx.Hash)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, "LND-3", tx.LandUID)
	assert.Equal(t, testNow, tx.Timestamp)

	latest, ok := f.coord.LatestTransaction()
	require.True(t, ok)
	assert.Equal(t, "LND-3", latest.LandUID)

	found, ok := f.coord.Search("nrg-77")
	require.True(t, ok)
	assert.Equal(t, "LND-3", found.UID)

	assert.Equal(t,
		[]string{"Wallet connected", "Registration submitted", "Land registered"},
		toastTitles(f.queue.Active()),
	)
	for _, toast := range f.queue.Active()[1:] {
		require.NotNil(t, toast.RelatedTxHash)
		assert.Equal(t, registerHash, *toast.RelatedTxHash)
	}
}

func TestRegisterLandKeepsPlaceholderWhenUIDUnknown(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	input := validInput()
	handle := registrationHandle("NRG-77#m5x2kq.1")
	f.gateway.On("SubmitRegistration", mock.Anything, testAccount, input).Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).Return(domain.Receipt{Succeeded: true}, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(nil, errors.New("rpc down")).Once()

	tx, err := f.coord.RegisterLand(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, domain.PendingLandUID, tx.LandUID)
}

func TestRegisterLandRevertReasonIsTruncated(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	input := validInput()
	handle := registrationHandle("NRG-77#m5x2kq.1")
	reason := strings.Repeat("জমি", 80)
	f.gateway.On("SubmitRegistration", mock.Anything, testAccount, input).Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).
		Return(domain.Receipt{}, &domain.RevertError{Reason: reason}).Once()

	tx, err := f.coord.RegisterLand(context.Background(), input)

	require.ErrorIs(t, err, domain.ErrReverted)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.Equal(t, 100, utf8.RuneCountInString(tx.Reason))
	assert.True(t, strings.HasPrefix(reason, tx.Reason))

	active := f.queue.Active()
	last := active[len(active)-1]
	assert.Equal(t, domain.ToastError, last.Kind)
	assert.Equal(t, tx.Reason, last.Body)
	require.NotNil(t, last.RelatedTxHash)
	assert.Equal(t, registerHash, *last.RelatedTxHash)
	assert.Equal(t, 1, gatewayCallsTo(f.gateway, "FetchAll"))
}

func TestRegisterLandTimeoutMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	input := validInput()
	handle := registrationHandle("NRG-77#m5x2kq.1")
	f.gateway.On("SubmitRegistration", mock.Anything, testAccount, input).Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).
		Return(domain.Receipt{}, fmt.Errorf("wait receipt: %w", domain.ErrTimeout)).Once()

	tx, err := f.coord.RegisterLand(context.Background(), input)

	require.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.NotEmpty(t, tx.Reason)
}

type settledCounter struct {
	ports.NopMetrics
	settled atomic.Int32
}

func (m *settledCounter) TxSettled(domain.TxKind, domain.TxStatus) {
	m.settled.Add(1)
}

func TestRegisterLandCanceledWaitStaysPending(t *testing.T) {
	f := newFixture(t)
	metrics := &settledCounter{}
	f.coord = NewCoordinator(CoordinatorDeps{
		Session:  f.session,
		Guard:    f.guard,
		Gateway:  f.gateway,
		Tracker:  f.tracker,
		Notifier: f.queue,
		Metrics:  metrics,
		Clock:    f.clock,
	})
	f.connect(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	input := validInput()
	handle := registrationHandle("NRG-77#m5x2kq.1")
	f.gateway.On("SubmitRegistration", mock.Anything, testAccount, input).Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.Receipt{}, context.Canceled).Once()

	tx, err := f.coord.RegisterLand(ctx, input)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	assert.Empty(t, tx.Reason)
	assert.Zero(t, metrics.settled.Load())

	titles := toastTitles(f.queue.Active())
	assert.Contains(t, titles, "Stopped waiting for confirmation")
	assert.NotContains(t, titles, "Land registration failed")
}

func TestRegisterLandOnWrongNetworkNeverSubmits(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	f.chainID.Store(1)
	f.agent.On("SwitchChain", mock.Anything, requiredChainID).Return(domain.ErrUserRejected).Once()

	_, err := f.coord.RegisterLand(context.Background(), validInput())

	require.ErrorIs(t, err, domain.ErrUserRejected)
	assert.Equal(t, 1, callsTo(f.agent, "SwitchChain"))
	assert.Zero(t, gatewayCallsTo(f.gateway, "SubmitRegistration"))
	assert.Empty(t, f.tracker.All())
	assert.Len(t, f.queue.Active(), 2)
}

func TestVerifyLandUnauthorizedLeavesNoTrackerEntry(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	f.gateway.On("SubmitVerification", mock.Anything, testAccount, "LND-2").
		Return(domain.TxHandle{}, &domain.RevertError{Reason: "Only admin can verify"}).Once()

	_, err := f.coord.VerifyLand(context.Background(), "LND-2")

	require.ErrorIs(t, err, domain.ErrReverted)
	assert.Empty(t, f.tracker.All())

	active := f.queue.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "Verification failed", active[1].Title)
	assert.Equal(t, "Only admin can verify", active[1].Body)
	assert.Nil(t, active[1].RelatedTxHash)
}

func TestVerifyLandConfirms(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	handle := verificationHandle("LND-2")
	verified := sampleRecords()
	verified[1].Verified = true

	f.gateway.On("SubmitVerification", mock.Anything, testAccount, "LND-2").Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).Return(domain.Receipt{Succeeded: true}, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(verified, nil).Once()

	require.Len(t, f.coord.PendingRecords(), 1)

	tx, err := f.coord.VerifyLand(context.Background(), "LND-2")

	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, "LND-2", tx.LandUID)
	assert.Empty(t, f.coord.PendingRecords())
	assert.Equal(t,
		[]string{"Wallet connected", "Verification submitted", "Land verified"},
		toastTitles(f.queue.Active()),
	)
}

func TestVerifyLandRequiresUID(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	_, err := f.coord.VerifyLand(context.Background(), "")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, gatewayCallsTo(f.gateway, "SubmitVerification"))
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	f.gateway.On("FetchAll", mock.Anything).Return(nil, domain.ErrDecodeFailure).Once()

	err := f.coord.Refresh(context.Background())

	require.ErrorIs(t, err, domain.ErrDecodeFailure)
	assert.Equal(t, sampleRecords(), f.coord.Records())
	active := f.queue.Active()
	assert.Equal(t, "Failed to load land records", active[len(active)-1].Title)
}

func TestRefreshDropsStaleResult(t *testing.T) {
	f := newFixture(t)

	stale := sampleRecords()[:1]
	fresh := sampleRecords()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gateway.On("FetchAll", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(stale, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(fresh, nil).Once()

	done := make(chan error)
	go func() { done <- f.coord.Refresh(context.Background()) }()

	<-entered
	require.NoError(t, f.coord.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, fresh, f.coord.Records())
}

func TestSearchMatchesExactlyIgnoringCase(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	for _, term := range []string{"lnd-2", "CTG-9", "ctg-9#m5x2k3.2", strings.ToLower(otherAcct.Hex())} {
		got, ok := f.coord.Search(term)
		require.True(t, ok, term)
		assert.Equal(t, "LND-2", got.UID)
	}

	_, ok := f.coord.Search("CTG")
	assert.False(t, ok)
}

func TestFilterMatchesSubstringsIgnoringCase(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	assert.Len(t, f.coord.Filter(""), 2)
	assert.Len(t, f.coord.Filter("lnd-"), 2)

	got := f.coord.Filter("chatto")
	require.Len(t, got, 1)
	assert.Equal(t, "LND-2", got[0].UID)

	got = f.coord.Filter("gazi")
	require.Len(t, got, 1)
	assert.Equal(t, "LND-1", got[0].UID)

	assert.Empty(t, f.coord.Filter("sylhet"))
}

func TestRecentTransactionsFollowDisplayWindow(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	handle := verificationHandle("LND-2")
	f.gateway.On("SubmitVerification", mock.Anything, testAccount, "LND-2").Return(handle, nil).Once()
	f.gateway.On("AwaitConfirmation", mock.Anything, handle).Return(domain.Receipt{Succeeded: true}, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(sampleRecords(), nil).Once()

	_, err := f.coord.VerifyLand(context.Background(), "LND-2")
	require.NoError(t, err)

	recent := f.coord.RecentTransactions()
	require.Len(t, recent, 1)
	assert.Equal(t, domain.TxStatusConfirmed, recent[0].Status)

	f.clock.Advance(DefaultDisplayWindow)
	assert.Empty(t, f.coord.RecentTransactions())
	assert.Len(t, f.coord.Transactions(), 1)
}
