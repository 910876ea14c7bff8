package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/wizard"
)

// Sender is the subset of tea.Program the forwarder needs; tests substitute
// a recorder.
type Sender interface {
	Send(msg tea.Msg)
}

// RegisterUIForwarder bridges the wizard's UI topic into bubbletea messages.
func RegisterUIForwarder(b *bus.Bus, p Sender) {
	b.AddHandler("adopt-ui-forward", bus.TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		var env bus.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal ui envelope")
		}

		switch env.Type {
		case bus.UITypeWizardSnapshot:
			var snap wizard.StateSnapshot
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				return errors.Wrap(err, "unmarshal wizard snapshot")
			}
			p.Send(SnapshotMsg{Snapshot: snap})
		case bus.UITypeOutputAppend:
			var app wizard.OutputAppend
			if err := json.Unmarshal(env.Payload, &app); err != nil {
				return errors.Wrap(err, "unmarshal output append")
			}
			p.Send(OutputAppendMsg{Append: app})
		}
		return nil
	})
}
