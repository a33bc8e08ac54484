package command

import (
	"context"
	"time"

	"github.com/rws-framework/rws-lambda/filesystem"
	"github.com/rws-framework/rws-lambda/function"
	"github.com/rws-framework/rws-lambda/hooks"
	"github.com/rws-framework/rws-lambda/network"
	"github.com/rws-framework/rws-lambda/packaging"
	"github.com/rws-framework/rws-lambda/permission"
)

// Network resolves where functions and the shared file system are placed.
type Network interface {
	FindDefaultSubnet(ctx context.Context) (network.Placement, error)
	SubnetForVPC(ctx context.Context, vpcID string) (string, error)
	DefaultSecurityGroup(ctx context.Context, vpcID string) (string, error)
}

// Permissions verifies the role before anything is changed.
type Permissions interface {
	Check(ctx context.Context, roleARN string, actions []string) permission.Report
}

// FileSystems provisions the shared file system.
type FileSystems interface {
	GetOrCreate(ctx context.Context, name string, placement network.Placement) (filesystem.Record, bool, error)
	Delete(ctx context.Context, name string) error
}

// Packager builds deployable archives.
type Packager interface {
	Archive(ctx context.Context, sourceDir, workDir string, full bool) (packaging.Artifact, error)
	ArchiveDir(ctx context.Context, dir, dest string, skip packaging.Filter) (packaging.Artifact, error)
}

// Functions manages deployed functions.
type Functions interface {
	Deploy(ctx context.Context, input function.DeployInput) (*function.Function, error)
	Invoke(ctx context.Context, name string, payload []byte, invocationType function.InvocationType) (*function.Invocation, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]function.Summary, error)
	OpenToWeb(ctx context.Context, name string) (string, error)
}

// Hooks runs lifecycle hooks.
type Hooks interface {
	Dispatch(ctx context.Context, event hooks.Event, target string, params hooks.Params) error
}

// Uploader stores module bundles for the loader.
type Uploader interface {
	Upload(ctx context.Context, name, file string) (string, error)
}

// LogTailer follows the logs of an invoked function.
type LogTailer interface {
	Tail(ctx context.Context, functionName string, since time.Time) error
}

var (
	_ Network     = network.Provisioner{}
	_ Permissions = permission.Checker{}
	_ FileSystems = (*filesystem.Provisioner)(nil)
	_ Packager    = packaging.Archiver{}
	_ Functions   = function.Manager{}
	_ Hooks       = (*hooks.Registry)(nil)
)
