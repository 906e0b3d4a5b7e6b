package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vaultScope/internal/irm"
	"vaultScope/internal/num"
)

type decodedIRM struct {
	Type    *uint8      `json:"type,omitempty"`
	Raw     rawWords    `json:"raw"`
	Percent irm.Percent `json:"percent"`
	Rounded irm.Percent `json:"rounded"`
}

type rawWords struct {
	BaseRate string `json:"base_rate"`
	Slope1   string `json:"slope1"`
	Slope2   string `json:"slope2"`
	Kink     string `json:"kink"`
}

func runDecodeIRM(cmd *cobra.Command, args []string) error {
	modelType, _ := cmd.Flags().GetInt("type")
	var typ *uint8
	if modelType >= 0 {
		if modelType > 255 {
			return fmt.Errorf("model type out of range: %d", modelType)
		}
		t := uint8(modelType)
		typ = &t
	}

	params := args[0]
	p, err := irm.DecodeModel(typ, params)
	if err != nil {
		return err
	}
	raw, err := irm.ParseRaw(params)
	if err != nil {
		return err
	}

	out := decodedIRM{
		Type: typ,
		Raw: rawWords{
			BaseRate: raw.BaseRate.ToBig().String(),
			Slope1:   raw.Slope1.ToBig().String(),
			Slope2:   raw.Slope2.ToBig().String(),
			Kink:     raw.Kink.ToBig().String(),
		},
		Percent: p,
		Rounded: irm.Percent{
			KinkPercent: num.Round3(p.KinkPercent),
			BaseRateApy: num.Round3(p.BaseRateApy),
			RateAtKink:  num.Round3(p.RateAtKink),
			MaximumRate: num.Round3(p.MaximumRate),
		},
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
