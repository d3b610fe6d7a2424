package options

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/journal"
)

// OutputOptions
type OutputOptions struct {
	JSON bool
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.Flags().BoolVar(&po.JSON, "json", false,
		"Output as JSON.")
}

// HandleError prints err as {"error": ..., "code": ...} in JSON mode and
// swallows it; otherwise err is returned unchanged.
func (o *OutputOptions) HandleError(err error) error {
	if o.JSON && err != nil {
		out := map[string]string{
			"error": err.Error(),
			"code":  ErrorCode(err),
		}
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}
	return err
}

// ErrorCode names the class of a command failure for JSON consumers.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, journal.ErrNotFound):
		return "not_found"
	case errors.Is(err, journal.ErrInvalidDraft):
		return "invalid_draft"
	case errors.Is(err, journal.ErrNoIdentity), errors.Is(err, identity.ErrInvalid):
		return "identity"
	default:
		return "error"
	}
}
