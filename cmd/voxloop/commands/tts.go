package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ttsOutput string

var ttsCmd = &cobra.Command{
	Use:   "tts <text>",
	Short: "Synthesize text to an audio file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTTS,
}

func init() {
	ttsCmd.Flags().StringVarP(&ttsOutput, "output", "o", "output.wav", "output audio file")
	rootCmd.AddCommand(ttsCmd)
}

func runTTS(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	audioBytes, err := newSynthesizer(cfg).Synthesize(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(ttsOutput, audioBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Audio saved to %s\n", ttsOutput)
	return nil
}
