package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/catalog"
	"github.com/personakit/adoptctl/pkg/config"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/pending"
	"github.com/personakit/adoptctl/pkg/personastore"
)

const smoketestDesign = `{
  "summary": "Deploy notifier that posts build results to Slack",
  "full_prompt_markdown": "# Deploy notifier\nNotify {{channel}} about deploys.",
  "suggested_tools": ["notify_slack", "read_build_log"],
  "suggested_triggers": [
    {"trigger_type": "webhook", "description": "on deploy finished"}
  ],
  "suggested_connectors": [
    {"name": "slack", "label": "Slack", "auth_type": "api_key"}
  ]
}`

const smoketestQuestions = `TRANSFORM_QUESTIONS
[
  {"id": "tone", "question": "What tone should notifications use?", "type": "text", "default": "concise"}
]`

const smoketestDraft = `Here is the persona:
{
  "name": "Deploy Notifier",
  "description": "Posts deploy results to Slack",
  "system_prompt": "You announce deploys.",
  "triggers": [{"trigger_type": "webhook", "description": "on deploy finished"}],
  "tools": [{"name": "notify_slack", "category": "messaging"}],
  "required_connectors": [{"name": "slack", "credential_type": "api_key", "has_credential": false}]
}`

// newSmoketestCmd runs the whole adoption flow against a scripted generator
// in a throwaway home: launch, clarification round, draft, persona creation.
func newSmoketestCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:    "smoketest-adopt",
		Short:  "Smoke test: scripted generation end to end, with clarification round",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			type verdict struct {
				OK    bool     `json:"ok"`
				Steps []string `json:"steps"`
				Error string   `json:"error,omitempty"`
			}
			var v verdict
			fail := func(err error) error {
				v.Error = err.Error()
				b, _ := json.MarshalIndent(v, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}

			home, err := os.MkdirTemp("", "adoptctl-smoketest-*")
			if err != nil {
				return fail(err)
			}
			defer func() { _ = os.RemoveAll(home) }()

			b, err := bus.NewInMemoryBus()
			if err != nil {
				return fail(err)
			}
			personas, err := personastore.Open(filepath.Join(home, "personas.db"))
			if err != nil {
				return fail(err)
			}
			defer func() { _ = personas.Close() }()

			gen := &engine.ScriptedGenerator{Turns: []engine.GenerateTurn{
				{Lines: []string{"analyzing design result", "needs clarification"}, Output: smoketestQuestions},
				{Lines: []string{"building persona draft"}, Output: smoketestDraft},
			}}

			osFs := afero.NewOsFs()
			env := &environment{
				Opts:         rootOptions{Home: home},
				Cfg:          &config.File{},
				Bus:          b,
				Surface:      engine.NewLocal(ctx, engine.LocalOptions{Generator: gen, Personas: personas, Publisher: b.Publisher}),
				Pending:      pending.NewFileStore(osFs, home, pendingKind),
				Catalog:      catalog.NewStore(osFs, home),
				Personas:     personas,
				PollInterval: 50 * time.Millisecond,
				MaxAge:       pending.DefaultMaxAge,
			}

			if err := env.Catalog.Save("smoketest", catalog.Entry{
				TemplateName: "Deploy Notifier",
				Result:       json.RawMessage(smoketestDesign),
			}); err != nil {
				return fail(err)
			}
			v.Steps = append(v.Steps, "catalog seeded")

			if err := runAdopt(ctx, cmd, env, adoptFlags{
				design: "smoketest",
				vars:   map[string]string{"channel": "#deploys"},
				wait:   timeout,
			}); err != nil {
				return fail(err)
			}
			v.Steps = append(v.Steps, "generation and clarification completed", "persona created")

			if _, ok, err := env.Pending.Load(); err != nil || ok {
				return fail(fmt.Errorf("pending record not cleared after success"))
			}
			v.Steps = append(v.Steps, "pending record cleared")

			v.OK = true
			out, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall smoketest timeout")
	return cmd
}
