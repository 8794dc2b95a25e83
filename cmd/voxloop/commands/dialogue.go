package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	dialogue "github.com/lovrenc-k/voxloop/core"
	"github.com/lovrenc-k/voxloop/core/events"
	"github.com/lovrenc-k/voxloop/core/vad"
)

var dialogueCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Interactive voice dialogue in the terminal",
	RunE:  runDialogue,
}

func init() {
	rootCmd.AddCommand(dialogueCmd)
}

func runDialogue(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := openAudioBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	// The TUI drains this channel; drop events rather than stall the
	// dispatcher when the terminal cannot keep up.
	eventCh := make(chan events.Event, 64)

	orchestrator, err := dialogue.NewOrchestrator(
		dialogue.WithTranscriber(newTranscriber(cfg)),
		dialogue.WithReplyStreamer(newReplyStreamer(cfg)),
		dialogue.WithSynthesizer(newSynthesizer(cfg)),
		dialogue.WithAudioPlayer(backend),
		dialogue.WithSpeechSource(func(onSpeechChunk func(wav []byte)) dialogue.SpeechSource {
			return vad.NewListener(backend, onSpeechChunk,
				vad.WithPauseThreshold(cfg.VADPauseThreshold),
				vad.WithMinSpeechDuration(cfg.VADMinSpeechDuration),
				vad.WithAggressiveness(cfg.VADAggressiveness),
			)
		}),
		dialogue.WithHistory(dialogue.NewHistory(dialogue.WithSystemPrompt(cfg.SystemPrompt))),
		dialogue.WithMaxReplyWords(cfg.MaxReplyWordsAutoListen),
		dialogue.OnEvent(func(event events.Event) {
			select {
			case eventCh <- event:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	program := tea.NewProgram(newDialogueModel(orchestrator, eventCh), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
