package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rishikanthc/scriberr-desktop/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Record system audio and microphone to a WAV file",
	Long: `Record system audio and the selected microphone simultaneously.
Both sources are mixed into a single interleaved stereo stream and written
as a 32-bit float WAV file. Recording runs until interrupted with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}

		// Flag overrides on top of the config file
		if mic, _ := cmd.Flags().GetString("mic"); mic != "" {
			cfg.Capture.MicDevice = mic
		}
		if noSystem, _ := cmd.Flags().GetBool("no-system"); noSystem {
			cfg.Capture.SystemAudio = false
		}
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			cfg.Output.Directory = output
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		path, err := svc.StartRecording(name)
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		slog.Info("Recording... Press Ctrl+C to stop", "output", path)

		// Periodic level readout while recording
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				slog.Debug("input level", "rms", fmt.Sprintf("%.3f", svc.GetLevel()))
			case <-sigChan:
				slog.Info("Stopping recording...")
				result, err := svc.StopRecording()
				if err != nil {
					return fmt.Errorf("failed to stop recording: %w", err)
				}
				fmt.Printf("Saved %s (%.1fs)\n", result.FilePath, result.DurationSec)
				return nil
			}
		}
	},
}

func init() {
	recordCmd.Flags().StringP("mic", "m", "", "microphone device name, 'default', or 'none' (overrides config)")
	recordCmd.Flags().Bool("no-system", false, "disable system audio capture")
	recordCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
}
