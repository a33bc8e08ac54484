// Package command parses lambda sub-commands and runs them against the provisioning
// components.
package command

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Action is a lambda sub-command.
type Action string

// Supported actions.
const (
	Deploy    Action = "deploy"
	Undeploy  Action = "undeploy"
	Invoke    Action = "invoke"
	Delete    Action = "delete"
	List      Action = "list"
	OpenToWeb Action = "open-to-web"
)

// ModulesTarget selects the shared file system instead of a single function.
const ModulesTarget = "modules"

// Target names a function directory, or the shared file system, and an optional
// argument such as a payload name.
type Target struct {
	Name string
	Arg  string
}

// IsModules reports whether the target is the shared file system.
func (t Target) IsModules() bool {
	return t.Name == ModulesTarget
}

// Command is a parsed sub-command.
type Command struct {
	Action Action
	Target Target
	// RedeployLoader rebuilds and redeploys the loader function before the action.
	RedeployLoader bool
	// SubnetID overrides the subnet functions are placed in.
	SubnetID string
}

// String returns the sub-command as typed on the command line.
func (c Command) String() string {
	parts := []string{string(c.Action)}
	if c.Target.Name != "" {
		parts = append(parts, c.Target.Name)
	}
	if c.Target.Arg != "" {
		parts = append(parts, c.Target.Arg)
	}
	return strings.Join(parts, ":")
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (c Command) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("action", string(c.Action))
	if c.Target.Name != "" {
		enc.AddString("target", c.Target.Name)
	}
	if c.Target.Arg != "" {
		enc.AddString("arg", c.Target.Arg)
	}
	if c.RedeployLoader {
		enc.AddBool("redeployLoader", true)
	}
	if c.SubnetID != "" {
		enc.AddString("subnetId", c.SubnetID)
	}
	return nil
}

// Parse reads a single sub-command of the form action[:name[:arg]].
func Parse(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &ErrUsage{Message: "expected exactly one sub-command"}
	}

	parts := strings.SplitN(args[0], ":", 3)
	cmd := Command{Action: Action(parts[0])}
	if len(parts) > 1 {
		cmd.Target.Name = parts[1]
	}
	if len(parts) > 2 {
		cmd.Target.Arg = parts[2]
	}

	switch cmd.Action {
	case List:
		if cmd.Target.Name != "" {
			return Command{}, &ErrUsage{Message: "list takes no target"}
		}
		return cmd, nil
	case Deploy, Invoke:
	case Undeploy, Delete, OpenToWeb:
		if cmd.Target.Arg != "" {
			return Command{}, &ErrUsage{Message: string(cmd.Action) + " takes no argument"}
		}
	default:
		return Command{}, &ErrUsage{Message: "unknown sub-command " + strings.TrimSpace(args[0])}
	}

	if cmd.Target.Name == "" {
		return Command{}, &ErrUsage{Message: string(cmd.Action) + " requires a target name"}
	}
	if strings.ContainsAny(cmd.Target.Name, `/\`) || cmd.Target.Name == "." || cmd.Target.Name == ".." {
		return Command{}, &ErrUsage{Message: "invalid target name " + cmd.Target.Name}
	}
	if cmd.Target.IsModules() && (cmd.Action == Invoke || cmd.Action == Delete || cmd.Action == OpenToWeb) {
		return Command{}, &ErrUsage{Message: string(cmd.Action) + " can't target the shared modules"}
	}
	return cmd, nil
}
