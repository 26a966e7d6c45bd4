package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boristopalov/airwrap/pkg/core"
)

var ErrInvalidCommand = errors.New("invalid command")

type Verb string

const (
	VerbGoTo     Verb = "goto"
	VerbFollow   Verb = "follow"
	VerbCancel   Verb = "cancel"
	VerbDisperse Verb = "disperse"
)

// Command is one parsed goal command. The text forms are:
//
//	goto <agent> <x> <y>
//	goto <agent> @<target>
//	follow <agent> [target]
//	cancel <agent>
//	disperse <x> <y> [radius]
type Command struct {
	Verb     Verb
	Agent    string
	Target   string
	Position core.Position
	Radius   float64
}

func (c Command) String() string {
	switch c.Verb {
	case VerbGoTo:
		if c.Target != "" {
			return fmt.Sprintf("goto %s @%s", c.Agent, c.Target)
		}
		return fmt.Sprintf("goto %s %g %g", c.Agent, c.Position.X, c.Position.Y)
	case VerbFollow:
		return strings.TrimSpace(fmt.Sprintf("follow %s %s", c.Agent, c.Target))
	case VerbCancel:
		return fmt.Sprintf("cancel %s", c.Agent)
	case VerbDisperse:
		return fmt.Sprintf("disperse %g %g %g", c.Position.X, c.Position.Y, c.Radius)
	}
	return string(c.Verb)
}

// Parse reads one command line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrInvalidCommand)
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "goto", "go_to":
		if len(args) == 2 && strings.HasPrefix(args[1], "@") && len(args[1]) > 1 {
			return Command{Verb: VerbGoTo, Agent: args[0], Target: args[1][1:]}, nil
		}
		if len(args) != 3 {
			return Command{}, fmt.Errorf("%w: usage: goto <agent> <x> <y> | goto <agent> @<target>", ErrInvalidCommand)
		}
		pos, err := parsePosition(args[1], args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbGoTo, Agent: args[0], Position: pos}, nil

	case "follow":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("%w: usage: follow <agent> [target]", ErrInvalidCommand)
		}
		cmd := Command{Verb: VerbFollow, Agent: args[0]}
		if len(args) == 2 {
			cmd.Target = args[1]
		}
		return cmd, nil

	case "cancel", "hold":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: cancel <agent>", ErrInvalidCommand)
		}
		return Command{Verb: VerbCancel, Agent: args[0]}, nil

	case "disperse":
		if len(args) < 2 || len(args) > 3 {
			return Command{}, fmt.Errorf("%w: usage: disperse <x> <y> [radius]", ErrInvalidCommand)
		}
		pos, err := parsePosition(args[0], args[1])
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Verb: VerbDisperse, Position: pos, Radius: DefaultMissionRadius}
		if len(args) == 3 {
			r, err := parseFinite(args[2])
			if err != nil || r <= 0 {
				return Command{}, fmt.Errorf("%w: bad radius %q", ErrInvalidCommand, args[2])
			}
			cmd.Radius = r
		}
		return cmd, nil
	}
	return Command{}, fmt.Errorf("%w: unknown verb %q", ErrInvalidCommand, fields[0])
}

func parsePosition(xs, ys string) (core.Position, error) {
	x, err := parseFinite(strings.TrimSuffix(xs, ","))
	if err != nil {
		return core.Position{}, fmt.Errorf("%w: bad x %q", ErrInvalidCommand, xs)
	}
	y, err := parseFinite(ys)
	if err != nil {
		return core.Position{}, fmt.Errorf("%w: bad y %q", ErrInvalidCommand, ys)
	}
	return core.Position{X: x, Y: y}, nil
}

// parseFinite parses a float, refusing NaN and infinities.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

// Apply executes a parsed command.
func (c *Commander) Apply(ctx context.Context, cmd Command) error {
	switch cmd.Verb {
	case VerbGoTo:
		if cmd.Target == "" {
			return c.GoTo(cmd.Agent, cmd.Position)
		}
		if _, err := c.store.Agent(cmd.Agent); err != nil {
			return err
		}
		pose, err := c.sim.ObjectPose(ctx, cmd.Target)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", cmd.Target, err)
		}
		return c.GoTo(cmd.Agent, pose.Planar())
	case VerbFollow:
		return c.Follow(ctx, cmd.Agent, cmd.Target)
	case VerbCancel:
		return c.Cancel(cmd.Agent)
	case VerbDisperse:
		return c.Disperse(cmd.Position, cmd.Radius)
	}
	return fmt.Errorf("%w: unknown verb %q", ErrInvalidCommand, cmd.Verb)
}

// Execute parses and applies one command line.
func (c *Commander) Execute(ctx context.Context, line string) (Command, error) {
	cmd, err := Parse(line)
	if err != nil {
		return Command{}, err
	}
	return cmd, c.Apply(ctx, cmd)
}
