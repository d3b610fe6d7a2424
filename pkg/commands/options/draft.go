package options

import (
	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/entry"
)

// DraftOptions collects a journaling session from flags.
type DraftOptions struct {
	Mood       string
	Prompts    []string
	Questions  []string
	Text       string
	Free       bool
	Background string
	TextColor  string
}

func AddDraftArgs(cmd *cobra.Command, o *DraftOptions) {
	cmd.Flags().StringVarP(&o.Mood, "mood", "m", "",
		"How you feel, e.g. calm, anxious, grateful.")
	cmd.Flags().StringArrayVarP(&o.Prompts, "prompt", "p", nil,
		base.Wrap80("An answer to a prompt. Repeat up to three times; empty answers keep their slot."))
	cmd.Flags().StringArrayVarP(&o.Questions, "question", "q", nil,
		base.Wrap80("The question shown for each --prompt, in the same order."))
	cmd.Flags().StringVar(&o.Text, "text", "",
		base.Wrap80("Mantra text. Generated from the mood and answers when empty."))
	cmd.Flags().BoolVar(&o.Free, "free", false,
		"Free writing instead of guided prompts.")
	cmd.Flags().StringVar(&o.Background, "background", "",
		base.Wrap80("Background image name. Rotates through the built-in set when empty."))
	cmd.Flags().StringVar(&o.TextColor, "text-color", "",
		"Text color for the background, as hex.")
	_ = cmd.MarkFlagRequired("mood")
}

func (o *DraftOptions) Draft() entry.Draft {
	jt := entry.Guided
	if o.Free {
		jt = entry.Free
	}
	return entry.Draft{
		Mood:            o.Mood,
		Prompts:         o.Prompts,
		PromptQuestions: o.Questions,
		Text:            o.Text,
		JournalType:     jt,
		BackgroundImage: o.Background,
		TextColor:       o.TextColor,
	}
}
