package cmds

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/patch"
	"github.com/personakit/adoptctl/pkg/wizard"
)

type adoptFlags struct {
	design       string
	note         string
	noConfirm    bool
	vars         map[string]string
	answers      map[string]string
	dropTools    []int
	dropTriggers []int
	dropConns    []int
	dropChannels []int
	dropSubs     []int
	dropUseCases []string
	triggerSets  []string
	wait         time.Duration
}

func newAdoptCmd() *cobra.Command {
	var flags adoptFlags

	cmd := &cobra.Command{
		Use:   "adopt",
		Short: "Run the adoption wizard headless: generate and create a persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			env, err := newEnvironment(cmd, ctx, nil)
			if err != nil {
				return err
			}
			defer env.Close()

			return runAdopt(ctx, cmd, env, flags)
		},
	}

	cmd.Flags().StringVar(&flags.design, "design", "", "Design result: catalog name or path to a JSON file")
	cmd.Flags().StringVar(&flags.note, "note", "", "Free-text adjustment note for the generator")
	cmd.Flags().BoolVar(&flags.noConfirm, "no-confirm", false, "Stop after generation; do not create the persona")
	cmd.Flags().StringToStringVar(&flags.vars, "var", nil, "Template variable value (name=value, repeatable)")
	cmd.Flags().StringToStringVar(&flags.answers, "answer", nil, "Clarification answer (question-id=value, repeatable)")
	cmd.Flags().IntSliceVar(&flags.dropTools, "drop-tool", nil, "Suggested tool index to drop")
	cmd.Flags().IntSliceVar(&flags.dropTriggers, "drop-trigger", nil, "Suggested trigger index to drop")
	cmd.Flags().IntSliceVar(&flags.dropConns, "drop-connector", nil, "Suggested connector index to drop")
	cmd.Flags().IntSliceVar(&flags.dropChannels, "drop-channel", nil, "Suggested channel index to drop")
	cmd.Flags().IntSliceVar(&flags.dropSubs, "drop-subscription", nil, "Suggested event subscription index to drop")
	cmd.Flags().StringSliceVar(&flags.dropUseCases, "drop-use-case", nil, "Use case flow id to drop")
	cmd.Flags().StringArrayVar(&flags.triggerSets, "trigger-set", nil, "Trigger config override (index.dotted.key=value, repeatable)")
	cmd.Flags().DurationVar(&flags.wait, "wait", 15*time.Minute, "How long to wait for generation")
	_ = cmd.MarkFlagRequired("design")

	return cmd
}

func runAdopt(ctx context.Context, cmd *cobra.Command, env *environment, flags adoptFlags) error {
	entry, err := env.Catalog.Resolve(flags.design)
	if err != nil {
		return err
	}
	res, err := entry.ParsedResult()
	if err != nil {
		return err
	}

	w, err := env.newWizard(wizard.TemplateContext{
		TemplateName: entry.TemplateName,
		ReviewID:     entry.ReviewID,
		Result:       res,
		ResultJSON:   string(entry.Result),
	})
	if err != nil {
		return err
	}

	store := w.Store()
	for _, i := range flags.dropTools {
		store.ToggleTool(i)
	}
	for _, i := range flags.dropTriggers {
		store.ToggleTrigger(i)
	}
	for _, i := range flags.dropConns {
		store.ToggleConnector(i)
	}
	for _, i := range flags.dropChannels {
		store.ToggleChannel(i)
	}
	for _, i := range flags.dropSubs {
		store.ToggleSubscription(i)
	}
	for _, id := range flags.dropUseCases {
		store.ToggleUseCase(id)
	}
	for name, value := range flags.vars {
		store.SetVariable(name, value)
	}
	if err := applyTriggerSets(store, flags.triggerSets); err != nil {
		return err
	}
	if flags.note != "" {
		store.SetAdjustmentNote(flags.note)
	}

	printJobOutput(env.Bus, cmd)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	eg, egCtx := errgroup.WithContext(runCtx)
	eg.Go(func() error {
		err := env.Bus.Run(egCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		err := w.Run(egCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	runErr := driveAdoption(egCtx, w, flags)

	stop()
	if err := eg.Wait(); runErr == nil && err != nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	return printOutcome(cmd, w.State(), flags.noConfirm)
}

// driveAdoption walks the step policy to completion: navigate to the tuning
// step, launch, answer clarifications, then finalize unless asked not to.
func driveAdoption(ctx context.Context, w *wizard.Wizard, flags adoptFlags) error {
	for w.State().Step != wizard.StepTune {
		if err := w.Next(ctx); err != nil {
			return err
		}
	}
	if err := w.Next(ctx); err != nil {
		return err
	}
	return watchGeneration(ctx, w, flags)
}

// watchGeneration waits for the tracked job to produce a draft, answering
// clarification rounds along the way, then finalizes unless asked not to.
func watchGeneration(ctx context.Context, w *wizard.Wizard, flags adoptFlags) error {
	deadline := time.NewTimer(flags.wait)
	defer deadline.Stop()
	tick := time.NewTicker(150 * time.Millisecond)
	defer tick.Stop()

	answered := false
wait:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			_ = w.Cancel(context.Background())
			return errors.Errorf("generation did not finish within %s", flags.wait)
		case <-tick.C:
		}

		st := w.State()
		switch {
		case st.Step == wizard.StepClarify:
			if answered {
				continue
			}
			if err := answerQuestions(ctx, w, flags.answers); err != nil {
				return err
			}
			answered = true
		case st.Draft.Draft != nil:
			break wait
		case st.Job.ID == "" && st.Err != "":
			return errors.New(st.Err)
		}
	}

	if flags.noConfirm {
		return nil
	}
	if err := w.Next(ctx); err != nil { // build -> create
		return err
	}
	return w.Next(ctx) // create -> finalize
}

func answerQuestions(ctx context.Context, w *wizard.Wizard, answers map[string]string) error {
	st := w.State()
	for _, q := range st.Clarify.Questions {
		value, ok := answers[q.ID]
		if !ok {
			value = q.Default
		}
		if value == "" {
			return errors.Errorf("clarification question %q has no answer; pass --answer %s=...", q.Question, q.ID)
		}
		w.Store().SetAnswer(q.ID, value)
	}
	return w.SubmitAnswers(ctx)
}

// applyTriggerSets parses "index.dotted.key=value" overrides and folds them
// into the per-trigger configs.
func applyTriggerSets(store *wizard.Store, sets []string) error {
	perTrigger := map[int]patch.Patch{}
	for _, arg := range sets {
		key, value, err := patch.ParseAssignment(arg)
		if err != nil {
			return err
		}
		idxStr, rest, ok := strings.Cut(key, ".")
		if !ok {
			return errors.Errorf("trigger-set %q: expected index.key=value", arg)
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return errors.Wrapf(err, "trigger-set %q: bad trigger index", arg)
		}
		p := perTrigger[idx]
		if p.Set == nil {
			p.Set = map[string]any{}
		}
		p.Set[rest] = value
		perTrigger[idx] = p
	}

	for idx, p := range perTrigger {
		values, err := patch.Apply(patch.Values{}, p)
		if err != nil {
			return err
		}
		for k, v := range values {
			store.SetTriggerConfig(idx, k, v)
		}
	}
	return nil
}

// printJobOutput streams surfaced generator lines to the command's stdout.
func printJobOutput(b *bus.Bus, cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	b.AddHandler("adopt-cli-output", bus.TopicJobOutput, func(msg *message.Message) error {
		defer msg.Ack()
		var env bus.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return nil
		}
		if env.Type != bus.TypeJobOutput {
			return nil
		}
		var ev bus.JobOutputEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil
		}
		fmt.Fprintln(out, ev.Line)
		return nil
	})
}

func printOutcome(cmd *cobra.Command, st wizard.State, noConfirm bool) error {
	type outcome struct {
		Created    bool     `json:"created"`
		PersonaID  string   `json:"persona_id,omitempty"`
		DraftName  string   `json:"draft_name,omitempty"`
		Triggers   int      `json:"triggers_created"`
		Tools      int      `json:"tools_created"`
		NeedsSetup []string `json:"connectors_needing_setup,omitempty"`
		Warnings   []string `json:"warnings,omitempty"`
		Error      string   `json:"error,omitempty"`
	}

	o := outcome{Created: st.Finalize.Created, Error: st.Err}
	if st.Draft.Draft != nil {
		o.DraftName = st.Draft.Draft.Name
	}
	if res := st.Finalize.Result; res != nil {
		o.PersonaID = res.PersonaID
		o.Triggers = res.TriggersCreated
		o.Tools = res.ToolsCreated
		o.NeedsSetup = res.ConnectorsNeedingSetup
		for _, ee := range res.EntityErrors {
			o.Warnings = append(o.Warnings, ee.Error())
		}
	}

	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))

	if !noConfirm && !st.Finalize.Created {
		return errors.New("persona was not created")
	}
	return nil
}
