package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/boristopalov/airwrap/pkg/command"
	"github.com/boristopalov/airwrap/pkg/operator"
	"github.com/boristopalov/airwrap/pkg/position"
)

// console reads operator input line by line:
//
//	ask <instruction>      route to the language model operator
//	status                 print every drone's position and goal
//	where <drone>          last known position of a drone
//	pose <object>          world pose of a scene object or drone
//	find <drone> <object>  whether the object is within reach of the drone
//	objects [substr]       scene objects whose name contains substr
//	vehicles               vehicle names reported by the simulator
//	trail <drone> [n]      the drone's n most recent positions (default 10)
//	quit | exit            stop the loop
//	anything else          a goal command, e.g. "goto cf_friend_0 10 20"
type console struct {
	commander *command.Commander
	operator  *operator.Operator
	store     *position.Store
	stop      func()
	out       io.Writer
	logger    zerolog.Logger
}

func (c *console) serve(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !c.handle(ctx, scanner.Text()) {
			return
		}
	}
}

// handle processes one line and reports whether to keep reading.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
	case line == "quit" || line == "exit":
		c.stop()
		return false
	case line == "status":
		for _, a := range c.store.Snapshot() {
			fmt.Fprintf(c.out, "%s\t(%.2f, %.2f)\tgoal (%.2f, %.2f)\n",
				a.Name, a.Position.X, a.Position.Y, a.Goal.X, a.Goal.Y)
		}
	case c.query(ctx, line):
	case strings.HasPrefix(line, "ask "):
		if c.operator == nil {
			fmt.Fprintln(c.out, "operator is not configured")
			break
		}
		reply, err := c.operator.Execute(ctx, strings.TrimSpace(strings.TrimPrefix(line, "ask ")))
		for _, cmd := range reply.Commands {
			fmt.Fprintf(c.out, "applied: %s\n", cmd)
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	default:
		cmd, err := c.commander.Execute(ctx, line)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		c.logger.Debug().Str("command", cmd.String()).Msg("console command applied")
		fmt.Fprintf(c.out, "ok: %s\n", cmd)
	}
	return true
}

const defaultTrail = 10

// query answers the read-only verbs. It reports false when line is not one of them.
func (c *console) query(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]
	switch {
	case verb == "where" && len(args) == 1:
		pos, err := c.commander.DronePosition(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		fmt.Fprintf(c.out, "%s\t(%.2f, %.2f)\n", args[0], pos.X, pos.Y)
	case verb == "pose" && len(args) == 1:
		pose, err := c.commander.TargetPose(ctx, args[0])
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		fmt.Fprintf(c.out, "%s\t(%.2f, %.2f, %.2f)\n", args[0], pose.X, pose.Y, pose.Z)
	case verb == "find" && len(args) == 2:
		found, err := c.commander.FindTarget(ctx, args[0], args[1])
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		if found {
			fmt.Fprintf(c.out, "%s is within %g of %s\n", args[1], command.FindRadius, args[0])
		} else {
			fmt.Fprintf(c.out, "%s is not within %g of %s\n", args[1], command.FindRadius, args[0])
		}
	case verb == "objects" && len(args) <= 1:
		substr := ""
		if len(args) == 1 {
			substr = args[0]
		}
		names, err := c.commander.FindObjects(ctx, substr)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		fmt.Fprintln(c.out, strings.Join(names, "\n"))
	case verb == "vehicles" && len(args) == 0:
		names, err := c.commander.AgentNames(ctx)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		fmt.Fprintln(c.out, strings.Join(names, "\n"))
	case verb == "trail" && (len(args) == 1 || len(args) == 2):
		n := defaultTrail
		if len(args) == 2 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(c.out, "error: bad count %q\n", args[1])
				break
			}
			n = v
		}
		trail, err := c.store.Trajectory(args[0], n)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			break
		}
		for _, p := range trail {
			fmt.Fprintf(c.out, "(%.2f, %.2f)\n", p.X, p.Y)
		}
	default:
		return false
	}
	return true
}
