package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/state"
	"vaultScope/internal/strategy"
	"vaultScope/internal/vault"
)

// surfaceLine is one output line: a grid point of a series, or a scenario marker.
type surfaceLine struct {
	Series string `json:"series"`
	strategy.GridPoint
}

type markerLine struct {
	Series string `json:"series"`
	strategy.Marker
}

type surfaceHeader struct {
	Series   string  `json:"series"`
	Strategy string  `json:"strategy"`
	LTV      float64 `json:"ltv"`
	// FixedDebtUtil and FixedCollateralUtil are the sweep anchors as fractions.
	FixedDebtUtil       float64 `json:"fixed_debt_util"`
	FixedCollateralUtil float64 `json:"fixed_collateral_util"`
}

func runSurface(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSurface(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Debt == "" || cfg.Collateral == "" {
		return fmt.Errorf("debt and collateral vaults are required")
	}

	ctx, stop := signalContext()
	defer stop()

	recs, clusterName, err := loadSnapshots(cfg.In, cfg.Cluster)
	if err != nil {
		return err
	}
	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := buildSession(ctx, recs, sessionInput{Cluster: clusterName, Assumptions: cfg.Assumptions}, store, logger)
	if err != nil {
		return err
	}
	debt, err := session.Resolve(cfg.Debt)
	if err != nil {
		return fmt.Errorf("debt: %w", err)
	}
	coll, err := session.Resolve(cfg.Collateral)
	if err != nil {
		return fmt.Errorf("collateral: %w", err)
	}

	set := session.Set()
	pair, err := findLeveraged(set, debt.Key(), coll.Key())
	if err != nil {
		return err
	}
	surf, err := strategy.NewSurface(set, pair)
	if err != nil {
		return err
	}
	markers, err := strategy.Markers(set, pair)
	if err != nil {
		return err
	}

	fixedDebt := percentOr(cfg.FixedDebtUtil, debt.Point(vault.Current).Utilization) / 100
	fixedColl := percentOr(cfg.FixedCollateralUtil, coll.Point(vault.Current).Utilization) / 100

	writer, err := newJSONLWriter(cfg.Out)
	if err != nil {
		return err
	}

	header := surfaceHeader{
		Series:              "strategy",
		Strategy:            surf.Name,
		LTV:                 surf.LTV,
		FixedDebtUtil:       fixedDebt,
		FixedCollateralUtil: fixedColl,
	}
	lines := 0
	write := func(v interface{}) error {
		lines++
		return writer.Write(v)
	}
	err = func() error {
		if err := write(header); err != nil {
			return err
		}
		for _, p := range surf.Heatmap().Points() {
			if err := write(surfaceLine{Series: "heatmap", GridPoint: p}); err != nil {
				return err
			}
		}
		for _, p := range surf.CollateralSweep(fixedDebt) {
			if err := write(surfaceLine{Series: "collateral_sweep", GridPoint: p}); err != nil {
				return err
			}
		}
		for _, p := range surf.DebtSweep(fixedColl) {
			if err := write(surfaceLine{Series: "debt_sweep", GridPoint: p}); err != nil {
				return err
			}
		}
		for _, m := range markers {
			if err := write(markerLine{Series: "marker", Marker: m}); err != nil {
				return err
			}
		}
		return nil
	}()
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	logger.Info("surface complete", zap.String("strategy", surf.Name), zap.String("out", cfg.Out), zap.Int("lines", lines))
	return nil
}

// findLeveraged returns the strategy borrowing from debt against coll.
func findLeveraged(set *strategy.Set, debt, coll common.Address) (strategy.Leveraged, error) {
	for _, l := range strategy.Construct(set) {
		if l.Debt == debt && l.Collateral == coll {
			return l, nil
		}
	}
	return strategy.Leveraged{}, fmt.Errorf("vault %s does not accept %s as collateral", debt.Hex(), coll.Hex())
}

func percentOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
