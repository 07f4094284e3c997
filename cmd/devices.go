package cmd

import (
	"fmt"

	"github.com/rishikanthc/scriberr-desktop/internal/audio"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available microphone devices",
	Long: `List all capture devices that can be selected as the microphone
source, including the reserved "default" entry for the system default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recorder, err := audio.NewRecorder()
		if err != nil {
			return fmt.Errorf("failed to initialize audio backend: %w", err)
		}
		defer recorder.Cleanup()

		devices, err := recorder.ListMicrophones()
		if err != nil {
			return fmt.Errorf("failed to list microphones: %w", err)
		}

		fmt.Printf("🎤 Microphones (%d found):\n", len(devices))
		for i, d := range devices {
			marker := ""
			if d.Default {
				marker = " (default)"
			}
			fmt.Printf("  %d. %s%s\n", i+1, d.Name, marker)
		}

		fmt.Printf("\n💡 Usage:\n")
		fmt.Printf("  • scriberr record --mic \"%s\"\n", exampleDevice(devices))
		fmt.Printf("  • scriberr record --mic none    (system audio only)\n")
		return nil
	},
}

func exampleDevice(devices []audio.Device) string {
	for _, d := range devices {
		if !d.Default {
			return d.Name
		}
	}
	return "default"
}
