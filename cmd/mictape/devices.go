package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petems/mictape/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := audio.NewPortAudio(log)
		if err != nil {
			return fmt.Errorf("failed to initialize audio: %w", err)
		}
		defer engine.Close()

		devices, err := engine.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found.")
			return nil
		}

		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Printf("%s %-40s %6.0f Hz  %d ch\n", marker, d.Name, d.SampleRate, d.Channels)
		}
		fmt.Println("\n* default device")
		return nil
	},
}
