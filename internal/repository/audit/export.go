package audit

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// Export writes the trail as indented JSON:
//
//	{"session_id": "...", "entries": [{"timestamp": 3, "state": "INTENT", ...}]}
//
// sessionID may be empty for trails that were never persisted.
func Export(w io.Writer, sessionID string, entries []safety.Transition) error {
	list := make([]any, 0, len(entries))

	for _, e := range entries {
		list = append(list, map[string]any{
			"timestamp":         e.Timestamp,
			"state":             string(e.State),
			"ttc_at_transition": e.TTCAtTransition,
			"cause":             string(e.Cause),
		})
	}

	doc, err := structpb.NewStruct(map[string]any{
		"session_id": sessionID,
		"entries":    list,
	})
	if err != nil {
		return fmt.Errorf("build export document: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal export document: %w", err)
	}

	if _, err = w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write export document: %w", err)
	}

	return nil
}
