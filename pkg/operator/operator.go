// Package operator turns natural-language instructions into goal commands using a
// chat completion model.
package operator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/boristopalov/airwrap/pkg/command"
	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/memory"
	"github.com/boristopalov/airwrap/pkg/messaging"
	"github.com/boristopalov/airwrap/pkg/position"
	"github.com/boristopalov/airwrap/pkg/providers"
)

const systemPrompt = `You direct a team of drones by setting their goal positions.
Reply with one line per command, each starting with "COMMAND:". Available commands:
COMMAND: goto <drone> <x> <y>
COMMAND: goto <drone> @<object>
COMMAND: follow <drone> [object]
COMMAND: cancel <drone>
COMMAND: disperse <x> <y> [radius]
Use only drone and object names listed in the prompt. Any other text is ignored.`

var commandLine = regexp.MustCompile(`(?m)^\s*COMMAND:\s*(.+?)\s*$`)

// Reply is the outcome of one instruction.
type Reply struct {
	Text     string
	Commands []command.Command
}

// Operator asks a model for commands and applies them through a Commander.
type Operator struct {
	id         string
	model      string
	client     providers.Client
	commander  *command.Commander
	store      *position.Store
	transcript *memory.Memory[string]
	events     *memory.Memory[core.StepEvent]
	broker     messaging.Broker
	inbox      chan messaging.Message
	logger     zerolog.Logger
}

type Params struct {
	ID      string
	Model   string
	History int
	Broker  messaging.Broker
	Logger  zerolog.Logger
}

type Option func(*Params)

func WithID(id string) Option {
	return func(p *Params) {
		p.ID = id
	}
}

func WithModel(model string) Option {
	return func(p *Params) {
		p.Model = model
	}
}

// WithHistory bounds how many transcript lines are replayed in each prompt.
func WithHistory(n int) Option {
	return func(p *Params) {
		p.History = n
	}
}

// WithBroker subscribes the operator to step events so prompts carry the latest
// rewards and arrivals.
func WithBroker(b messaging.Broker) Option {
	return func(p *Params) {
		p.Broker = b
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Params) {
		p.Logger = logger
	}
}

func defaultParams() *Params {
	return &Params{
		ID:      "operator-" + uuid.New().String(),
		Model:   "gpt-4o-mini",
		History: 20,
		Logger:  zerolog.Nop(),
	}
}

func New(client providers.Client, commander *command.Commander, store *position.Store, opts ...Option) (*Operator, error) {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}

	op := &Operator{
		id:         params.ID,
		model:      params.Model,
		client:     client,
		commander:  commander,
		store:      store,
		transcript: memory.NewMemory[string](params.History),
		events:     memory.NewMemory[core.StepEvent](1),
		broker:     params.Broker,
		logger:     params.Logger.With().Str("component", "operator").Str("operator", params.ID).Logger(),
	}
	if op.broker != nil {
		op.inbox = make(chan messaging.Message, 64)
		if err := op.broker.Subscribe(op.id, op.inbox); err != nil {
			return nil, fmt.Errorf("failed to subscribe operator: %w", err)
		}
	}
	return op, nil
}

func (o *Operator) ID() string {
	return o.id
}

func (o *Operator) Model() string {
	return o.model
}

// StartMessageHandler keeps the most recent step event until ctx is done.
func (o *Operator) StartMessageHandler(ctx context.Context) {
	if o.inbox == nil {
		return
	}
	go func() {
		for {
			select {
			case msg := <-o.inbox:
				if ev, ok := msg.Content.(core.StepEvent); ok {
					o.events.Store(ev)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close unsubscribes from the broker.
func (o *Operator) Close() error {
	if o.broker == nil {
		return nil
	}
	return o.broker.Unsubscribe(o.id)
}

// Execute sends instruction with the current scene to the model and applies every
// COMMAND line of the reply, in order. Commands that fail are skipped and their
// errors joined; the commands that were applied are still returned.
func (o *Operator) Execute(ctx context.Context, instruction string) (Reply, error) {
	prompt, err := o.prompt(ctx, instruction)
	if err != nil {
		return Reply{}, err
	}
	text, err := o.client.Complete(ctx, o.model, prompt, systemPrompt)
	if err != nil {
		return Reply{}, fmt.Errorf("operator completion failed: %w", err)
	}
	o.transcript.Store("instruction: " + instruction)

	reply := Reply{Text: text}
	var errs []error
	for _, m := range commandLine.FindAllStringSubmatch(text, -1) {
		cmd, err := command.Parse(m[1])
		if err == nil {
			err = o.commander.Apply(ctx, cmd)
		}
		if err != nil {
			o.logger.Warn().Err(err).Str("line", m[1]).Msg("skipping command")
			errs = append(errs, fmt.Errorf("%q: %w", m[1], err))
			continue
		}
		reply.Commands = append(reply.Commands, cmd)
		o.transcript.Store("applied: " + cmd.String())
	}
	if len(reply.Commands) == 0 && len(errs) == 0 {
		o.logger.Info().Str("reply", text).Msg("model issued no commands")
	}
	return reply, errors.Join(errs...)
}

func (o *Operator) prompt(ctx context.Context, instruction string) (string, error) {
	objects, err := o.commander.FindObjects(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to list scene objects: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Drones (name: position -> goal):\n")
	for _, a := range o.store.Snapshot() {
		fmt.Fprintf(&sb, "- %s: (%.1f, %.1f) -> (%.1f, %.1f)\n",
			a.Name, a.Position.X, a.Position.Y, a.Goal.X, a.Goal.Y)
	}
	sb.WriteString("Scene objects: ")
	sb.WriteString(strings.Join(objects, ", "))
	sb.WriteString("\n")

	if last := o.events.Last(1); len(last) == 1 {
		ev := last[0]
		arrived := 0
		for _, d := range ev.Dones {
			if d {
				arrived++
			}
		}
		fmt.Fprintf(&sb, "Control step %d, %d of %d drones at their goal.\n", ev.Step, arrived, len(ev.Dones))
	}

	if history := o.transcript.All(); len(history) > 0 {
		sb.WriteString("Earlier:\n")
		for _, line := range history {
			sb.WriteString("  " + line + "\n")
		}
	}
	sb.WriteString("Instruction: ")
	sb.WriteString(instruction)
	return sb.String(), nil
}
