package application

import (
	"context"
	"testing"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionConnectLoadsAccountAndRecords(t *testing.T) {
	f := newFixture(t)
	f.connect(t, sampleRecords())

	session := f.session.Current()
	assert.True(t, session.Connected)
	assert.Equal(t, testAccount, session.Address)
	assert.Equal(t, "1.0", session.BalanceDisplay)
	assert.Len(t, f.coord.Records(), 2)
	assert.Equal(t, []string{"Wallet connected"}, toastTitles(f.queue.Active()))
}

func TestSessionConnectWithoutAgent(t *testing.T) {
	queue := newTestQueue(t, mocks.NewClock(testNow))
	session := NewSession(nil, NewNetworkGuard(nil, testNetwork(), nil), queue, nil)

	got, err := session.Connect(context.Background())

	require.ErrorIs(t, err, domain.ErrNoAgent)
	assert.False(t, got.Connected)
	active := queue.Active()
	require.Len(t, active, 1)
	assert.Equal(t, domain.ToastError, active[0].Kind)
}

func TestSessionConnectRejectedByUser(t *testing.T) {
	f := newFixture(t)
	f.agent.On("RequestAccounts", mock.Anything).Return(nil, domain.ErrUserRejected).Once()

	got, err := f.session.Connect(context.Background())

	require.ErrorIs(t, err, domain.ErrUserRejected)
	assert.False(t, got.Connected)
	active := f.queue.Active()
	require.Len(t, active, 1)
	assert.Equal(t, domain.ToastWarning, active[0].Kind)
	assert.Equal(t, "Request was rejected in the wallet.", active[0].Body)
	assert.Zero(t, gatewayCallsTo(f.gateway, "FetchAll"))
}

func TestSessionConnectWithNoAccounts(t *testing.T) {
	f := newFixture(t)
	f.agent.On("RequestAccounts", mock.Anything).Return([]common.Address{}, nil).Once()

	_, err := f.session.Connect(context.Background())

	require.ErrorIs(t, err, domain.ErrNoAccounts)
	assert.False(t, f.session.Current().Connected)
	assert.Len(t, f.queue.Active(), 1)
}

func TestSessionConnectOnWrongNetworkRejected(t *testing.T) {
	f := newFixture(t)
	f.chainID.Store(1)
	f.agent.On("SwitchChain", mock.Anything, requiredChainID).Return(domain.ErrUserRejected).Once()

	_, err := f.session.Connect(context.Background())

	require.ErrorIs(t, err, domain.ErrUserRejected)
	assert.Zero(t, callsTo(f.agent, "RequestAccounts"))
	assert.Len(t, f.queue.Active(), 1)
}

func TestSessionLatestConnectAttemptWins(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.agent.On("RequestAccounts", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return([]common.Address{testAccount}, nil).Once()
	f.agent.On("RequestAccounts", mock.Anything).Return([]common.Address{otherAcct}, nil).Once()
	f.agent.On("Balance", mock.Anything, mock.Anything).Return(oneEther, nil).Times(2)
	f.gateway.On("FetchAll", mock.Anything).Return(sampleRecords(), nil).Once()

	done := make(chan domain.WalletSession)
	go func() {
		got, _ := f.session.Connect(context.Background())
		done <- got
	}()

	<-entered
	second, err := f.session.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, otherAcct, second.Address)

	close(release)
	first := <-done

	assert.Equal(t, otherAcct, first.Address)
	assert.Equal(t, otherAcct, f.session.Current().Address)
	assert.Equal(t, []string{"Wallet connected"}, toastTitles(f.queue.Active()))
}

func TestSessionDisconnect(t *testing.T) {
	f := newFixture(t)

	f.session.Disconnect()
	assert.Empty(t, f.queue.Active())

	f.connect(t, nil)
	f.session.Disconnect()

	assert.False(t, f.session.Current().Connected)
	assert.Equal(t, "0", f.session.Current().BalanceDisplay)
	assert.Equal(t, []string{"Wallet connected", "Wallet disconnected"}, toastTitles(f.queue.Active()))
}

func TestSessionFollowsAccountChanges(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	f.agent.On("RequestAccounts", mock.Anything).Return([]common.Address{otherAcct}, nil).Once()
	f.agent.On("Balance", mock.Anything, otherAcct).Return(oneEther, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(sampleRecords(), nil).Once()

	f.notifyAccounts(otherAcct)
	assert.Equal(t, otherAcct, f.session.Current().Address)

	f.notifyAccounts()
	assert.False(t, f.session.Current().Connected)
}

func TestSessionCloseStopsWatching(t *testing.T) {
	f := newFixture(t)
	f.connect(t, nil)

	f.session.Close()

	assert.True(t, f.unwatched.Load())
	assert.False(t, f.session.Current().Connected)

	f.notifyAccounts(otherAcct)
	assert.Equal(t, 1, callsTo(f.agent, "RequestAccounts"))
}

func TestSessionConnectAfterCloseIsRefused(t *testing.T) {
	f := newFixture(t)
	f.session.Close()

	got, err := f.session.Connect(context.Background())

	require.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, got.Connected)
	assert.Zero(t, callsTo(f.agent, "SubscribeAccounts"))
	assert.Zero(t, callsTo(f.agent, "RequestAccounts"))
	assert.Empty(t, f.queue.Active())
}
