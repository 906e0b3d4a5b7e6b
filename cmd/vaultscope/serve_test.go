package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/export"
	"vaultScope/internal/fetcher"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/state"
)

const (
	usdcHex = "0x1111111111111111111111111111111111111111"
	wethHex = "0x2222222222222222222222222222222222222222"
)

func kinkParams(base, slope1, slope2, kink uint64) string {
	var b strings.Builder
	b.WriteString("0x")
	for _, w := range []uint64{base, slope1, slope2, kink} {
		fmt.Fprintf(&b, "%064x", w)
	}
	return b.String()
}

func snapshots() []model.VaultSnapshot {
	kind := uint8(1)
	return []model.VaultSnapshot{
		{
			Cluster: "prime",
			Label:   "USDC Prime",
			Address: usdcHex,
			Info: model.VaultInfo{
				Vault:         usdcHex,
				AssetSymbol:   "USDC",
				TotalAssets:   1_000_000,
				TotalBorrowed: 600_000,
				SupplyCap:     2_000_000,
				BorrowCap:     1_800_000,
				IRMType:       &kind,
				IRMParams:     kinkParams(0, 500_000_000, 40_000_000_000, 3435973836),
				CollateralLTV: []model.CollateralLTV{{Collateral: wethHex, BorrowLTV: 0.8, LiquidationLTV: 0.85}},
			},
		},
		{
			Cluster: "prime",
			Label:   "WETH",
			Address: wethHex,
			Info: model.VaultInfo{
				Vault:         wethHex,
				AssetSymbol:   "WETH",
				TotalAssets:   1_000,
				TotalBorrowed: 100,
				IRMParams:     kinkParams(0, 400_000_000, 30_000_000_000, 3435973836),
			},
		},
	}
}

type stubRunner struct {
	res fetcher.Result
	err error
}

func (s stubRunner) Run(context.Context) (fetcher.Result, error) { return s.res, s.err }

func newTestExporter(r runner) *exporter {
	return &exporter{
		cluster: "prime",
		runner:  r,
		store:   &state.FileStore{},
		metrics: metrics.NewNoop(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestExportHandlerBeforeFirstRun(t *testing.T) {
	ex := newTestExporter(stubRunner{})
	rec := httptest.NewRecorder()
	ex.handleExport(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExporterRefreshPublishes(t *testing.T) {
	ex := newTestExporter(stubRunner{res: fetcher.Result{Snapshots: snapshots()}})
	require.NoError(t, ex.refresh(context.Background()))

	rec := httptest.NewRecorder()
	ex.handleExport(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	bundle, err := export.Decode(rec.Body, export.FormatJSON)
	require.NoError(t, err)
	require.Equal(t, "prime", bundle.Cluster)
	require.Equal(t, "2026-01-02T03:04:05Z", bundle.ExportedAt)
	require.Contains(t, bundle.Vaults, "USDC")
	require.Contains(t, bundle.Vaults, "WETH")
	require.Len(t, bundle.Strategies.Leveraged, 1)

	rec = httptest.NewRecorder()
	ex.handleExport(rec, httptest.NewRequest(http.MethodGet, "/export?format=msgpack", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	packed, err := export.Decode(rec.Body, export.FormatMsgpack)
	require.NoError(t, err)
	require.Equal(t, bundle.Cluster, packed.Cluster)

	rec = httptest.NewRecorder()
	ex.handleExport(rec, httptest.NewRequest(http.MethodGet, "/export?format=xml", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExporterRefreshKeepsPreviousBundle(t *testing.T) {
	ex := newTestExporter(stubRunner{res: fetcher.Result{Snapshots: snapshots()}})
	require.NoError(t, ex.refresh(context.Background()))
	first := ex.latest

	ex.runner = stubRunner{err: errors.New("rpc down")}
	require.Error(t, ex.refresh(context.Background()))
	require.Same(t, first, ex.latest)

	ex.runner = stubRunner{res: fetcher.Result{Failures: []model.FetchError{{Address: usdcHex}}}}
	require.ErrorContains(t, ex.refresh(context.Background()), "1 failures")
	require.Same(t, first, ex.latest)
}

func TestResolveTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.json")
	presets := config.Presets{{
		Name: "prime",
		Vaults: []config.VaultPreset{
			{Optics: "USDC Prime", Address: usdcHex, DefiLlamaPool: "pool-usdc", Field: "apy"},
		},
	}}
	require.NoError(t, config.SavePresets(path, presets))

	targets, err := resolveTargets(config.FetchConfig{
		Presets:   path,
		Cluster:   "Prime",
		Addresses: []string{usdcHex, wethHex},
	})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	require.Equal(t, "USDC Prime", targets[0].Label)
	require.Equal(t, "pool-usdc", targets[0].Pool)
	require.Empty(t, targets[1].Label)

	targets, err = resolveTargets(config.FetchConfig{Presets: filepath.Join(dir, "missing.json"), Cluster: "prime", Addresses: []string{wethHex}})
	require.NoError(t, err)
	require.Len(t, targets, 1)

	_, err = resolveTargets(config.FetchConfig{Presets: path, Cluster: "other"})
	require.ErrorIs(t, err, config.ErrClusterNotFound)

	_, err = resolveTargets(config.FetchConfig{Presets: path})
	require.Error(t, err)
}

func TestLoadSnapshotsInfersCluster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaults.jsonl")
	var lines []string
	for _, s := range snapshots() {
		line, err := json.Marshal(s)
		require.NoError(t, err)
		lines = append(lines, string(line))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	recs, name, err := loadSnapshots(path, "")
	require.NoError(t, err)
	require.Equal(t, "prime", name)
	require.Len(t, recs, 2)

	_, _, err = loadSnapshots(path, "other")
	require.Error(t, err)
}

func TestCommonCluster(t *testing.T) {
	recs := snapshots()
	require.Equal(t, "prime", commonCluster(recs))
	recs[1].Cluster = "core"
	require.Empty(t, commonCluster(recs))
}

func TestExporterRestoreWithoutDatabase(t *testing.T) {
	ex := newTestExporter(stubRunner{})
	require.NoError(t, ex.restore(context.Background()))
	require.Nil(t, ex.latest)
}
