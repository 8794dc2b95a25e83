package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lovrenc-k/voxloop/core/vad"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start VAD listening mode and print transcriptions to stdout",
	RunE:  runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := openAudioBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	transcriber := newTranscriber(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	chunks := make(chan []byte, 4)
	listener := vad.NewListener(backend, func(wav []byte) {
		select {
		case chunks <- wav:
		default:
			// Transcription is behind; drop rather than pile up.
		}
	},
		vad.WithPauseThreshold(cfg.VADPauseThreshold),
		vad.WithMinSpeechDuration(cfg.VADMinSpeechDuration),
		vad.WithAggressiveness(cfg.VADAggressiveness),
	)

	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start listening: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Listening... Press Ctrl+C to stop.")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Stopping...")
			return listener.Stop()
		case chunk := <-chunks:
			text, err := transcriber.Transcribe(ctx, chunk)
			if err != nil {
				if ctx.Err() != nil {
					fmt.Fprintln(os.Stderr, "Stopping...")
					return listener.Stop()
				}
				fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
				continue
			}
			if text != "" {
				fmt.Println(text)
			}
		}
	}
}
