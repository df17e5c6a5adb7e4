package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bdlandchain/landchain-cli/internal/adapters/ledger"
	filestore "github.com/bdlandchain/landchain-cli/internal/adapters/secrets/file"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/version"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	sepoliaHex   = "0xaa36a7"
)

var testAccount = common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeLand struct {
	uid      string
	division string
	district string
	verified bool
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// fakeWallet answers the JSON-RPC methods a signing agent exposes.
type fakeWallet struct {
	mu      sync.Mutex
	results map[string]any
	errors  map[string]rpcError
	calls   map[string]int
	lands   []fakeLand
}

func newFakeWallet(t *testing.T) (*fakeWallet, string) {
	t.Helper()

	wallet := &fakeWallet{
		results: map[string]any{
			"eth_chainId":         sepoliaHex,
			"eth_requestAccounts": []string{testAccount.Hex()},
			"eth_accounts":        []string{testAccount.Hex()},
			"eth_getBalance":      "0xde0b6b3a7640000",
			"eth_call":            "0x" + strings.Repeat("0", 64),
		},
		errors: map[string]rpcError{},
		calls:  map[string]int{},
	}

	server := httptest.NewServer(http.HandlerFunc(wallet.serveHTTP))
	t.Cleanup(server.Close)

	return wallet, server.URL
}

func (w *fakeWallet) set(method string, result any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[method] = result
}

func (w *fakeWallet) fail(method string, err rpcError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors[method] = err
}

func (w *fakeWallet) addLands(lands ...fakeLand) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lands = append(w.lands, lands...)
}

func (w *fakeWallet) verify(uid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.lands {
		if w.lands[i].uid == uid {
			w.lands[i].verified = true
		}
	}
}

// ledgerCall answers registry view calls from the fake land list.
func (w *fakeWallet) ledgerCall(params []json.RawMessage) (any, bool) {
	if len(w.lands) == 0 || len(params) == 0 {
		return nil, false
	}

	var call struct {
		Data hexutil.Bytes `json:"data"`
	}
	if err := json.Unmarshal(params[0], &call); err != nil || len(call.Data) < 4 {
		return nil, false
	}

	registry := ledger.RegistryABI()
	method, err := registry.MethodById(call.Data[:4])
	if err != nil {
		return nil, false
	}

	var out []byte
	switch method.Name {
	case "getLandCount":
		out, err = method.Outputs.Pack(big.NewInt(int64(len(w.lands))))
	case "getLandByIndex":
		args, unpackErr := method.Inputs.Unpack(call.Data[4:])
		if unpackErr != nil {
			return nil, false
		}
		index := args[0].(*big.Int).Int64()
		if index < 0 || index >= int64(len(w.lands)) {
			return nil, false
		}
		land := w.lands[index]
		out, err = method.Outputs.Pack(
			land.uid, testAccount, "CS-"+land.uid+"#m5x2k3.1", land.division, land.district,
			big.NewInt(12), "katha", "23.81,90.41", "0xdeed", big.NewInt(1767225600), land.verified,
		)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	return hexutil.Encode(out), true
}

func (w *fakeWallet) count(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[method]
}

func (w *fakeWallet) serveHTTP(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rw.Header().Set("Content-Type", "application/json")

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []rpcRequest
		_ = json.Unmarshal(trimmed, &reqs)
		resps := make([]rpcResponse, 0, len(reqs))
		for _, req := range reqs {
			resps = append(resps, w.dispatch(req))
		}
		_ = json.NewEncoder(rw).Encode(resps)
		return
	}

	var req rpcRequest
	_ = json.Unmarshal(body, &req)
	_ = json.NewEncoder(rw).Encode(w.dispatch(req))
}

func (w *fakeWallet) dispatch(req rpcRequest) rpcResponse {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.calls[req.Method]++
	resp := rpcResponse{Version: "2.0", ID: req.ID}
	if err, ok := w.errors[req.Method]; ok {
		resp.Error = &err
		return resp
	}
	if req.Method == "eth_call" {
		if result, ok := w.ledgerCall(req.Params); ok {
			resp.Result = result
			return resp
		}
	}
	result, ok := w.results[req.Method]
	if !ok {
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		return resp
	}
	resp.Result = result
	return resp
}

func useWallet(t *testing.T, url string) {
	t.Helper()
	t.Setenv("LANDCHAIN_AGENT_RPC_URL", url)
	t.Setenv("LANDCHAIN_CONTRACT_ADDRESS", testContract)
}

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestLangDefaultsToEnglishAndPersistsChanges(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "lang")
	require.NoError(t, err)
	assert.Equal(t, "en\n", stdout)

	stdout, _, err = executeCLI(t, home, "lang", "set", "bn")
	require.NoError(t, err)
	assert.Equal(t, "bn\n", stdout)

	stdout, _, err = executeCLI(t, home, "lang")
	require.NoError(t, err)
	assert.Equal(t, "bn\n", stdout)

	stdout, _, err = executeCLI(t, home, "lang", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "en\n", stdout)

	data, err := os.ReadFile(filepath.Join(home, ".landchain", "preferences.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "app_lang")
}

func TestLangSetRejectsUnsupportedLanguage(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "lang", "set", "tr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestWalletConnectsAndPrintsSession(t *testing.T) {
	wallet, url := newFakeWallet(t)
	useWallet(t, url)

	stdout, stderr, err := executeCLI(t, t.TempDir(), "wallet")
	require.NoError(t, err)
	assert.Contains(t, stdout, testAccount.Hex())
	assert.Contains(t, stdout, "balance:\t1.0 ETH")
	assert.Contains(t, stdout, "Sepolia (11155111)")
	assert.Contains(t, stderr, "[success] Wallet connected")
	assert.Equal(t, 1, wallet.count("eth_requestAccounts"))
	assert.Zero(t, wallet.count("wallet_switchEthereumChain"))
}

func TestWalletJSONOutput(t *testing.T) {
	_, url := newFakeWallet(t)
	useWallet(t, url)

	stdout, _, err := executeCLI(t, t.TempDir(), "wallet", "--json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var out walletOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.True(t, out.Connected)
	assert.Equal(t, testAccount.Hex(), out.Address)
	assert.Equal(t, "1.0", out.Balance)
}

func TestWalletWithoutReachableAgentReportsOnce(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	useWallet(t, url)

	_, stderr, err := executeCLI(t, t.TempDir(), "wallet")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(stderr, "[error]"))
}

func TestNetworkEnsureStopsAfterRejectedSwitch(t *testing.T) {
	wallet, url := newFakeWallet(t)
	wallet.set("eth_chainId", "0x1")
	wallet.fail("wallet_switchEthereumChain", rpcError{Code: 4001, Message: "User rejected the request."})
	useWallet(t, url)

	_, _, err := executeCLI(t, t.TempDir(), "network", "ensure")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Equal(t, 1, wallet.count("wallet_switchEthereumChain"))
	assert.Zero(t, wallet.count("wallet_addEthereumChain"))
	assert.Zero(t, wallet.count("eth_call"))
}

func TestNetworkEnsureOnRequiredNetwork(t *testing.T) {
	_, url := newFakeWallet(t)
	useWallet(t, url)

	stdout, _, err := executeCLI(t, t.TempDir(), "network", "ensure")
	require.NoError(t, err)
	assert.Equal(t, "on Sepolia (11155111)\n", stdout)
}

func TestLandListJSONWithEmptyLedger(t *testing.T) {
	_, url := newFakeWallet(t)
	useWallet(t, url)

	stdout, _, err := executeCLI(t, t.TempDir(), "land", "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", stdout)
}

func TestLandListRendersDashboard(t *testing.T) {
	_, url := newFakeWallet(t)
	useWallet(t, url)

	stdout, _, err := executeCLI(t, t.TempDir(), "land", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Land Registry")
	assert.Contains(t, stdout, "records: 0")
}

func sampleLands() []fakeLand {
	return []fakeLand{
		{uid: "LND-1", division: "Dhaka", district: "Gazipur", verified: true},
		{uid: "LND-2", division: "Chattogram", district: "Cox's Bazar"},
		{uid: "LND-3", division: "Dhaka", district: "Narayanganj"},
	}
}

func listedUIDs(t *testing.T, stdout string) []string {
	t.Helper()

	var records []landRecordOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	uids := make([]string, 0, len(records))
	for _, record := range records {
		uids = append(uids, record.UID)
	}
	return uids
}

func TestLandListFiltersAndPages(t *testing.T) {
	wallet, url := newFakeWallet(t)
	wallet.addLands(sampleLands()...)
	useWallet(t, url)
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "land", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"LND-1", "LND-2", "LND-3"}, listedUIDs(t, stdout))

	stdout, _, err = executeCLI(t, home, "land", "list", "--filter", "DHAKA", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"LND-1", "LND-3"}, listedUIDs(t, stdout))

	stdout, _, err = executeCLI(t, home, "land", "list", "--filter", "dhaka", "--pending", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"LND-3"}, listedUIDs(t, stdout))

	stdout, _, err = executeCLI(t, home, "land", "list", "--page", "2", "--page-size", "2", "--json")
	require.NoError(t, err)
	assert.Equal(t, []string{"LND-3"}, listedUIDs(t, stdout))

	stdout, _, err = executeCLI(t, home, "land", "list", "--page", "1", "--page-size", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "LND-2")
	assert.NotContains(t, stdout, "LND-3")
	assert.Contains(t, stdout, "page 1 of 2")
}

func TestLandShowUnknownRecord(t *testing.T) {
	_, url := newFakeWallet(t)
	useWallet(t, url)

	_, _, err := executeCLI(t, t.TempDir(), "land", "show", "LND-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no land record matches "LND-404"`)
}

func TestLandRegisterZeroAreaMakesNoLedgerWrite(t *testing.T) {
	wallet, url := newFakeWallet(t)
	useWallet(t, url)

	_, stderr, err := executeCLI(t, t.TempDir(),
		"land", "register",
		"--division", "Dhaka",
		"--district", "Gazipur",
		"--survey", "DHK-101",
		"--area", "0",
		"--lat", "23.99",
		"--lng", "90.42",
		"--doc-hash", "0x"+strings.Repeat("ab", 32),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "area")
	assert.Contains(t, stderr, "[error] Land registration failed")
	assert.Zero(t, wallet.count("eth_estimateGas"))
	assert.Zero(t, wallet.count("eth_sendTransaction"))
}

func TestLandRegisterRejectsBothHashSources(t *testing.T) {
	deed := filepath.Join(t.TempDir(), "deed.pdf")
	require.NoError(t, os.WriteFile(deed, []byte("deed"), 0o600))

	_, _, err := executeCLI(t, t.TempDir(),
		"land", "register",
		"--division", "Dhaka",
		"--district", "Gazipur",
		"--survey", "DHK-101",
		"--area", "5",
		"--doc-hash", "0xabc",
		"--deed", deed,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --doc-hash or --deed")
}

func TestLedgerCommandsRequireContractAddress(t *testing.T) {
	_, url := newFakeWallet(t)
	t.Setenv("LANDCHAIN_AGENT_RPC_URL", url)

	_, _, err := executeCLI(t, t.TempDir(), "land", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract.address is not configured")
}

func TestWalletNewRequiresKeystoreAgent(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "wallet", "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent.kind = "keystore"`)
}

func TestWalletForgetRemovesStoredPassphrase(t *testing.T) {
	secrets := t.TempDir()
	t.Setenv("LANDCHAIN_AGENT_KEYSTORE_SECRETS", secrets)

	account := common.HexToAddress("0x52908400098527886e0f7030069857d2e4169ee7")
	files := filestore.NewStore(secrets)
	require.NoError(t, files.Put(context.Background(), domain.PassphraseSecretKey(account), "pw"))

	stdout, _, err := executeCLI(t, t.TempDir(), "wallet", "forget", strings.ToLower(account.Hex()))
	require.NoError(t, err)
	assert.Contains(t, stdout, "forgot stored passphrase for "+account.Hex())

	_, err = files.Get(context.Background(), domain.PassphraseSecretKey(account))
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestWalletForgetRejectsNonAddress(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "wallet", "forget", "LND-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an account address")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
