package application

import (
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/bdlandchain/landchain-cli/internal/ports/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const requiredChainID uint64 = 11155111

var (
	testNow     = time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	testAccount = common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")
	otherAcct   = common.HexToAddress("0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF")
	oneEther    = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func testNetwork() domain.NetworkParams {
	return domain.NetworkParams{
		ChainID:      requiredChainID,
		Name:         "Sepolia",
		Currency:     domain.NativeCurrency{Name: "SepoliaETH", Symbol: "ETH", Decimals: 18},
		RPCURLs:      []string{"https://rpc.sepolia.org"},
		ExplorerURLs: []string{"https://sepolia.etherscan.io"},
	}
}

func newTestQueue(t *testing.T, clock *mocks.Clock) *NotificationQueue {
	t.Helper()

	queue := NewNotificationQueue(NotificationOptions{}, clock, nil, nil)
	t.Cleanup(queue.Close)
	return queue
}

func toastTitles(toasts []domain.Toast) []string {
	titles := make([]string, 0, len(toasts))
	for _, toast := range toasts {
		titles = append(titles, toast.Title)
	}
	return titles
}

func callsTo(agent *mocks.SigningAgent, method string) int {
	count := 0
	for _, call := range agent.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

func gatewayCallsTo(gateway *mocks.LedgerGateway, method string) int {
	count := 0
	for _, call := range gateway.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

type fixture struct {
	agent   *mocks.SigningAgent
	gateway *mocks.LedgerGateway
	clock   *mocks.Clock
	queue   *NotificationQueue
	tracker *Tracker
	guard   *NetworkGuard
	session *Session
	coord   *Coordinator

	chainID   atomic.Uint64
	listener  atomic.Value
	unwatched atomic.Bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		agent:   mocks.NewSigningAgent(t),
		gateway: mocks.NewLedgerGateway(t),
		clock:   mocks.NewClock(testNow),
	}
	f.chainID.Store(requiredChainID)

	f.agent.On("ChainID", mock.Anything).Return(func() uint64 { return f.chainID.Load() }, nil).Maybe()
	f.agent.On("SubscribeAccounts", mock.Anything).
		Run(func(args mock.Arguments) { f.listener.Store(args.Get(0).(ports.AccountsListener)) }).
		Return(func() { f.unwatched.Store(true) }).
		Maybe()

	f.queue = newTestQueue(t, f.clock)
	f.tracker = NewTracker(TrackerOptions{}, f.clock, nil)
	f.guard = NewNetworkGuard(f.agent, testNetwork(), nil)
	f.session = NewSession(f.agent, f.guard, f.queue, nil)
	t.Cleanup(f.session.Close)
	f.coord = NewCoordinator(CoordinatorDeps{
		Session:  f.session,
		Guard:    f.guard,
		Gateway:  f.gateway,
		Tracker:  f.tracker,
		Notifier: f.queue,
		Clock:    f.clock,
	})

	return f
}

// connect performs a successful handshake whose refresh loads records.
func (f *fixture) connect(t *testing.T, records []domain.LandRecord) {
	t.Helper()

	f.agent.On("RequestAccounts", mock.Anything).Return([]common.Address{testAccount}, nil).Once()
	f.agent.On("Balance", mock.Anything, testAccount).Return(oneEther, nil).Once()
	f.gateway.On("FetchAll", mock.Anything).Return(records, nil).Once()

	_, err := f.coord.Connect(t.Context())
	require.NoError(t, err)
}

func (f *fixture) notifyAccounts(accounts ...common.Address) {
	listener, _ := f.listener.Load().(ports.AccountsListener)
	if listener != nil {
		listener(accounts)
	}
}

func sampleRecords() []domain.LandRecord {
	return []domain.LandRecord{
		{
			UID:          "LND-1",
			Owner:        testAccount,
			SurveyNumber: "DHK-104#m5x2k1.1",
			Division:     "Dhaka",
			District:     "Gazipur",
			Area:         domain.Area{Value: 12, Unit: domain.AreaUnitKatha},
			DocumentHash: "0xdeed",
			Verified:     true,
		},
		{
			UID:          "LND-2",
			Owner:        otherAcct,
			SurveyNumber: "CTG-9#m5x2k3.2",
			Division:     "Chattogram",
			District:     "Cox's Bazar",
			Area:         domain.Area{Value: 3, Unit: domain.AreaUnitBigha},
			DocumentHash: "0xbeef",
		},
	}
}

func validInput() domain.RegistrationInput {
	return domain.RegistrationInput{
		Division:     "Dhaka",
		District:     "Narayanganj",
		SurveyNumber: "NRG-77",
		Area:         domain.Area{Value: 5, Unit: domain.AreaUnitKatha},
		GPS:          domain.GPS{Lat: 23.62, Lng: 90.5},
		DocumentHash: "0xfeed",
	}
}
