package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/petems/mictape/internal/effects"
)

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List built-in effects and configured presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		builtins := []effects.Type{
			effects.None,
			effects.Reverb,
			effects.Echo,
			effects.Distortion,
			effects.LowPass,
			effects.HighPass,
			effects.Telephone,
		}

		fmt.Println("Built-in effects:")
		for _, t := range builtins {
			spec := effects.Defaults(t)
			fmt.Printf("  %-12s mix=%.2f %s\n", t, spec.Mix, formatParams(spec.Params))
		}

		if cfg.Effects.PresetsPath == "" {
			return nil
		}
		presets, err := effects.LoadPresets(cfg.Effects.PresetsPath)
		if err != nil {
			return fmt.Errorf("failed to load presets: %w", err)
		}
		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("\nPresets (%s):\n", cfg.Effects.PresetsPath)
		for _, name := range names {
			spec := presets[name]
			fmt.Printf("  %-12s %s mix=%.2f %s\n", name, spec.Type, spec.Mix, formatParams(spec.Params))
		}
		return nil
	},
}

func formatParams(params map[string]float64) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%g ", k, params[k])
	}
	return out
}
