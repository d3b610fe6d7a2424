package widget

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/printers"
	shared "tableflip.dev/whisper/pkg/widget"
)

// Widget reads the shared widget area the way the renderer does. It needs no
// identity and never touches the journal.
type Widget struct {
	Shared shared.SharedStorage
	JSON   bool
}

func (n *Widget) Do(_ context.Context) error {
	p, ok, err := shared.Read(n.Shared)
	if err != nil {
		return err
	}
	if n.JSON {
		out := map[string]any{"set": ok}
		if ok {
			out["payload"] = p
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}
	pp := printers.PrettyPrint{}
	pp.Widget(p, ok)
	return nil
}
