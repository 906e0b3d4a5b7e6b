package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/config"
	"vaultScope/internal/model"
)

var (
	usdcVault = common.HexToAddress("0x1000000000000000000000000000000000000001")
	wethVault = common.HexToAddress("0x2000000000000000000000000000000000000002")
	badVault  = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

type fakeReader struct {
	mu       sync.Mutex
	calls    map[common.Address]int
	failures map[common.Address]int
}

func (f *fakeReader) FetchVaultInfo(ctx context.Context, vault common.Address) (model.VaultInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[common.Address]int{}
	}
	f.calls[vault]++
	if remaining := f.failures[vault]; remaining != 0 {
		if remaining > 0 {
			f.failures[vault]--
		}
		return model.VaultInfo{}, errors.New("execution reverted")
	}
	return model.VaultInfo{Vault: vault.Hex(), VaultSymbol: "e" + vault.Hex()[2:6]}, nil
}

type recordingSink struct {
	snaps  []model.VaultSnapshot
	errors []model.FetchError
}

func (s *recordingSink) PutSnapshots(snaps []model.VaultSnapshot) error {
	s.snaps = append(s.snaps, snaps...)
	return nil
}

func (s *recordingSink) PutFetchErrors(errs []model.FetchError) error {
	s.errors = append(s.errors, errs...)
	return nil
}

type countingObserver struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (o *countingObserver) ObserveFetch(cluster string, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.ok++
	} else {
		o.failed++
	}
}

type staticYield float64

func (s staticYield) NativeYield(ctx context.Context, pool, field string) float64 {
	return float64(s)
}

func TestRunnerFetchesInTargetOrder(t *testing.T) {
	reader := &fakeReader{failures: map[common.Address]int{wethVault: 1, badVault: -1}}
	sink := &recordingSink{}
	obs := &countingObserver{}
	cfg := RunConfig{
		Cluster: "Prime",
		Targets: []Target{
			{Label: "USDC", Address: usdcVault},
			{Label: "WETH", Address: wethVault, Pool: "pool-weth", Field: "apy"},
			{Label: "BAD", Address: badVault},
		},
		Concurrency:  2,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	runner := NewRunner(cfg, reader, nil, WithStorage(sink), WithErrorSink(sink), WithObserver(obs), WithYieldLookup(staticYield(3.2)))
	runner.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	res, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Snapshots, 2)
	require.Equal(t, "USDC", res.Snapshots[0].Label)
	require.Nil(t, res.Snapshots[0].NativeYield)
	require.Equal(t, "WETH", res.Snapshots[1].Label)
	require.NotNil(t, res.Snapshots[1].NativeYield)
	require.Equal(t, 3.2, *res.Snapshots[1].NativeYield)
	require.Equal(t, "2024-05-01T00:00:00Z", res.Snapshots[1].FetchedAt)

	require.Len(t, res.Failures, 1)
	require.Equal(t, badVault.Hex(), res.Failures[0].Address)
	require.Equal(t, 3, res.Failures[0].Attempts)
	require.Equal(t, "Prime", res.Failures[0].Cluster)

	require.Equal(t, 2, reader.calls[wethVault])
	require.Len(t, sink.snaps, 2)
	require.Len(t, sink.errors, 1)
	require.Equal(t, 2, obs.ok)
	require.Equal(t, 1, obs.failed)
}

func TestRunnerRequiresTargets(t *testing.T) {
	_, err := NewRunner(RunConfig{}, &fakeReader{}, nil).Run(context.Background())
	require.Error(t, err)

	_, err = NewRunner(RunConfig{Targets: []Target{{Address: usdcVault}}}, nil, nil).Run(context.Background())
	require.Error(t, err)
}

func TestTargetsFromPreset(t *testing.T) {
	targets, err := TargetsFromPreset(config.ClusterPreset{
		Name: "Prime",
		Vaults: []config.VaultPreset{
			{Optics: " USDC ", Address: usdcVault.Hex(), DefiLlamaPool: "p", Field: "apy"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Target{{Label: "USDC", Address: usdcVault, Pool: "p", Field: "apy"}}, targets)

	_, err = TargetsFromPreset(config.ClusterPreset{Name: "Bad", Vaults: []config.VaultPreset{{Address: "0x12"}}})
	require.Error(t, err)
}

func TestTargetsFromAddresses(t *testing.T) {
	targets, err := TargetsFromAddresses([]string{usdcVault.Hex(), "", " " + usdcVault.Hex(), wethVault.Hex()})
	require.NoError(t, err)
	require.Len(t, targets, 2)

	_, err = TargetsFromAddresses([]string{"nope"})
	require.Error(t, err)
}
