// Package main is the entry point for the voxloop voice dialogue CLI.
//
// Usage:
//
//	voxloop <command> [args]
//
// Commands:
//
//	dialogue   - Interactive voice dialogue TUI
//	listen     - VAD listening mode, prints transcriptions to stdout
//	transcribe - Transcribe an audio file
//	tts        - Synthesize text to an audio file
package main

import (
	"fmt"
	"os"

	"github.com/lovrenc-k/voxloop/cmd/voxloop/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
