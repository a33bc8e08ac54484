package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rws-framework/rws-lambda/config"
	"github.com/rws-framework/rws-lambda/function"
	"github.com/rws-framework/rws-lambda/hooks"
	"github.com/rws-framework/rws-lambda/loader"
	"github.com/rws-framework/rws-lambda/metrics"
	"github.com/rws-framework/rws-lambda/network"
	"github.com/rws-framework/rws-lambda/packaging"
	"github.com/rws-framework/rws-lambda/permission"
)

// Stage is a step of a command run.
type Stage string

// Stages in the order a run passes them.
const (
	StageIdle            Stage = "Idle"
	StageNetworkResolved Stage = "NetworkResolved"
	StagePermissionCheck Stage = "PermissionCheck"
	StageAborted         Stage = "Aborted"
	StageReady           Stage = "Ready"
	StageLoader          Stage = "LoaderRedeploy"
	StageModulesPath     Stage = "ModulesPath"
	StageFunctionPath    Stage = "FunctionPath"
	StageDone            Stage = "Done"
)

// DefaultModulesName is the bundle name of the project's own modules directory.
const DefaultModulesName = "shared"

// EnvEFSRoot tells the loader function where the shared file system is mounted.
const EnvEFSRoot = "RWS_EFS_ROOT"

// Orchestrator runs commands. Collaborators are injected once per process.
type Orchestrator struct {
	Config      *config.Config
	Network     Network
	Permissions Permissions
	FileSystems FileSystems
	Packager    Packager
	Functions   Functions
	Hooks       Hooks
	Uploader    Uploader
	// Logs follows function logs during synchronous invocations when set.
	Logs LogTailer
	// Out receives user-facing output such as invocation responses and listings.
	Out io.Writer
	Log *zap.Logger
	// Actions overrides the permission catalogue checked before each command.
	Actions []string
}

type run struct {
	*Orchestrator
	cmd       Command
	stage     Stage
	placement network.Placement
}

// Run executes cmd. Placement is resolved first and the role's permissions are
// checked before anything is changed. Failures are returned as *ErrCommandFailed
// carrying the stage that was reached.
func (o *Orchestrator) Run(ctx context.Context, cmd Command) error {
	started := time.Now()
	r := &run{Orchestrator: o, cmd: cmd, stage: StageIdle}

	err := r.execute(ctx)

	kind := Classify(err)
	metrics.Commands.WithLabelValues(string(cmd.Action), string(kind)).Inc()
	metrics.CommandDuration.WithLabelValues(string(cmd.Action)).Observe(time.Since(started).Seconds())

	if err != nil {
		o.Log.Error("Command failed.",
			zap.Object("command", cmd),
			zap.String("stage", string(r.stage)),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return &ErrCommandFailed{Command: cmd.String(), Stage: r.stage, Original: err}
	}

	r.enter(StageDone)
	o.Log.Info("Command finished.", zap.Object("command", cmd), zap.Duration("duration", time.Since(started)))
	return nil
}

func (r *run) enter(stage Stage) {
	r.stage = stage
	r.Log.Debug("Entering stage.", zap.String("stage", string(stage)), zap.String("command", r.cmd.String()))
}

func (r *run) execute(ctx context.Context) error {
	if r.needsPlacement() {
		placement, err := r.resolvePlacement(ctx)
		if err != nil {
			return err
		}
		r.placement = placement
		r.enter(StageNetworkResolved)
	}

	r.enter(StagePermissionCheck)
	if err := r.checkPermissions(ctx); err != nil {
		r.enter(StageAborted)
		return err
	}
	r.enter(StageReady)

	if r.cmd.RedeployLoader {
		r.enter(StageLoader)
		if err := r.deployFunction(ctx, Target{Name: loader.FunctionName}); err != nil {
			return err
		}
	}

	target := r.cmd.Target
	switch r.cmd.Action {
	case Deploy:
		if target.IsModules() {
			r.enter(StageModulesPath)
			return r.deployModules(ctx, target)
		}
		r.enter(StageFunctionPath)
		if err := r.deployFunction(ctx, target); err != nil {
			return err
		}
		if target.Arg != "" {
			return r.invoke(ctx, target.Name, target.Arg)
		}
		return nil
	case Undeploy:
		if target.IsModules() {
			r.enter(StageModulesPath)
			return r.FileSystems.Delete(ctx, r.Config.Lambda.FileSystem)
		}
		r.enter(StageFunctionPath)
		return r.undeploy(ctx, target)
	case Invoke:
		r.enter(StageFunctionPath)
		return r.invoke(ctx, target.Name, target.Arg)
	case Delete:
		r.enter(StageFunctionPath)
		return r.Functions.Delete(ctx, target.Name)
	case List:
		return r.list(ctx)
	case OpenToWeb:
		r.enter(StageFunctionPath)
		url, err := r.Functions.OpenToWeb(ctx, target.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out(), "%s is available at %s\n", function.Name(target.Name), url)
		return nil
	}
	return &ErrUsage{Message: "unknown sub-command " + string(r.cmd.Action)}
}

func (r *run) needsPlacement() bool {
	return r.cmd.Action == Deploy || r.cmd.RedeployLoader
}

// resolvePlacement uses the configured VPC and subnet, falling back to the default
// VPC. A subnet given on the command line replaces the resolved one.
func (r *run) resolvePlacement(ctx context.Context) (network.Placement, error) {
	cfg := r.Config.Lambda
	var (
		placement network.Placement
		err       error
	)
	switch {
	case cfg.VPCID != "" && cfg.SubnetID != "":
		placement = network.Placement{VPCID: cfg.VPCID, SubnetID: cfg.SubnetID}
	case cfg.VPCID != "":
		placement.VPCID = cfg.VPCID
		placement.SubnetID, err = r.Network.SubnetForVPC(ctx, cfg.VPCID)
	default:
		placement, err = r.Network.FindDefaultSubnet(ctx)
		if err == nil && cfg.SubnetID != "" {
			placement.SubnetID = cfg.SubnetID
		}
	}
	if err != nil {
		return network.Placement{}, err
	}
	if r.cmd.SubnetID != "" {
		placement.SubnetID = r.cmd.SubnetID
	}

	r.Log.Info("Network placement resolved.", zap.Object("placement", placement))
	return placement, nil
}

func (r *run) checkPermissions(ctx context.Context) error {
	actions := r.Actions
	if actions == nil {
		actions = permission.RequiredActions
	}

	report := r.Permissions.Check(ctx, r.Config.Lambda.Role, actions)
	if report.OK {
		r.Log.Debug("Permission check passed.", zap.String("role", r.Config.Lambda.Role))
		return nil
	}

	if len(report.DeniedActions) > 0 {
		fmt.Fprintf(r.out(), "Lambda role %s is missing permissions:\n", r.Config.Lambda.Role)
		for _, action := range report.DeniedActions {
			fmt.Fprintf(r.out(), "  - %s\n", action)
		}
	} else {
		fmt.Fprintln(r.out(), "Permission check failed, aborting.")
	}
	return report.Err()
}

func (r *run) functionDir(name string) string {
	return filepath.Join(r.Config.Paths.Functions, name)
}

func (r *run) deployFunction(ctx context.Context, target Target) error {
	name := target.Name
	isLoader := name == loader.FunctionName
	params := hooks.Params{
		Target:      name,
		FunctionDir: r.functionDir(name),
		ProjectDir:  r.Config.Paths.Project,
		SubnetID:    r.placement.SubnetID,
	}

	if err := r.Hooks.Dispatch(ctx, hooks.PreArchive, name, params); err != nil {
		return err
	}
	artifact, err := r.Packager.Archive(ctx, params.FunctionDir, r.Config.Paths.Cache, isLoader)
	if err != nil {
		return err
	}
	if err := r.Hooks.Dispatch(ctx, hooks.PostArchive, name, params); err != nil {
		return err
	}
	if err := r.Hooks.Dispatch(ctx, hooks.PreDeploy, name, params); err != nil {
		return err
	}

	input, err := r.deployInput(ctx, name, artifact.Path, isLoader)
	if err != nil {
		return err
	}
	fn, err := r.Functions.Deploy(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out(), "Deployed %s (%s)\n", fn.Name, fn.ARN)

	return r.Hooks.Dispatch(ctx, hooks.PostDeploy, name, params)
}

func (r *run) deployInput(ctx context.Context, name, artifact string, isLoader bool) (function.DeployInput, error) {
	cfg := r.Config.Lambda
	input := function.DeployInput{
		Name:         name,
		ArtifactPath: artifact,
		Role:         cfg.Role,
		Runtime:      cfg.Runtime,
		Handler:      cfg.Handler,
		MemorySize:   cfg.MemorySize,
		Timeout:      cfg.Timeout,
	}
	if isLoader {
		input.Runtime = cfg.LoaderRuntime
		input.Handler = cfg.LoaderHandler
		input.Environment = map[string]string{EnvEFSRoot: cfg.MountPath}
	}

	groups := cfg.SecurityGroup
	if len(groups) == 0 {
		group, err := r.Network.DefaultSecurityGroup(ctx, r.placement.VPCID)
		if err != nil {
			return function.DeployInput{}, err
		}
		groups = []string{group}
	}
	input.VPCConfig = &function.VPCConfig{SubnetIDs: []string{r.placement.SubnetID}, SecurityGroupIDs: groups}

	if cfg.EFSEnabled() {
		record, _, err := r.FileSystems.GetOrCreate(ctx, cfg.FileSystem, r.placement)
		if err != nil {
			return function.DeployInput{}, err
		}
		input.FileSystem = &function.FileSystemConfig{AccessPointARN: record.AccessPoint.ARN, MountPath: cfg.MountPath}
	}
	return input, nil
}

func (r *run) deployModules(ctx context.Context, target Target) error {
	record, existed, err := r.FileSystems.GetOrCreate(ctx, r.Config.Lambda.FileSystem, r.placement)
	if err != nil {
		return err
	}
	r.Log.Info("Shared file system ready.", zap.Object("fileSystem", record), zap.Bool("alreadyExisted", existed))

	name, dir := DefaultModulesName, r.Config.Paths.Modules
	if target.Arg != "" {
		name, dir = target.Arg, filepath.Join(r.functionDir(target.Arg), "node_modules")
	}
	dest := filepath.Join(r.Config.Paths.Cache, "RWS-modules-"+name+".zip")
	artifact, err := r.Packager.ArchiveDir(ctx, dir, dest, nil)
	if err != nil {
		return err
	}

	key, err := r.Uploader.Upload(ctx, name, artifact.Path)
	if err != nil {
		return err
	}

	exists, err := r.Functions.Exists(ctx, loader.FunctionName)
	if err != nil {
		return err
	}
	if !exists && !r.cmd.RedeployLoader {
		if err := r.deployFunction(ctx, Target{Name: loader.FunctionName}); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(loader.Request{
		FunctionName: name,
		EFSID:        record.FileSystemID,
		ModulesS3Key: key,
		S3Bucket:     r.Config.Lambda.Bucket,
	})
	if err != nil {
		return err
	}
	invocation, err := r.Functions.Invoke(ctx, loader.FunctionName, payload, function.RequestResponse)
	if err != nil {
		return err
	}

	var resp loader.Response
	if err := json.Unmarshal(invocation.Payload, &resp); err != nil {
		return &ErrInvocationFailed{Name: function.Name(loader.FunctionName), Message: "unreadable response: " + err.Error()}
	}
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Fprintf(r.out(), "Modules %q loaded onto %s\n", name, record.FileSystemID)
	return nil
}

func (r *run) undeploy(ctx context.Context, target Target) error {
	if err := r.Functions.Delete(ctx, target.Name); err != nil {
		return err
	}
	artifact := packaging.ArtifactPath(r.functionDir(target.Name), r.Config.Paths.Cache)
	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		r.Log.Warn("Unable to remove cached artifact.", zap.String("path", artifact), zap.Error(err))
	}
	fmt.Fprintf(r.out(), "Undeployed %s\n", function.Name(target.Name))
	return nil
}

func (r *run) payload(arg string) ([]byte, error) {
	if arg == "" {
		return []byte("{}"), nil
	}
	path := filepath.Join(r.Config.Paths.Payloads, arg+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &ErrPayloadNotFound{Name: arg, Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, &ErrInvalidPayload{Path: path}
	}
	return data, nil
}

// invoke calls the function synchronously while its log stream is followed. The
// tail stops as soon as the invocation returns.
func (r *run) invoke(ctx context.Context, name, arg string) error {
	payload, err := r.payload(arg)
	if err != nil {
		return err
	}

	started := time.Now()
	var invocation *function.Invocation
	g, gctx := errgroup.WithContext(ctx)
	tailCtx, stopTail := context.WithCancel(gctx)
	defer stopTail()

	if r.Logs != nil {
		g.Go(func() error {
			if err := r.Logs.Tail(tailCtx, function.Name(name), started); err != nil && tailCtx.Err() == nil {
				r.Log.Warn("Following function logs failed.", zap.String("name", name), zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopTail()
		var err error
		invocation, err = r.Functions.Invoke(gctx, name, payload, function.RequestResponse)
		return err
	})
	err = g.Wait()
	if invocation == nil {
		return err
	}

	out := r.out()
	fmt.Fprintf(out, "%s response (Code: %d)\n", function.Name(name), invocation.StatusCode)
	if len(invocation.Payload) > 0 {
		fmt.Fprintf(out, "%s\n", invocation.Payload)
	}
	if r.Logs == nil && invocation.Log != "" {
		fmt.Fprintln(out, invocation.Log)
	}
	if err != nil {
		return err
	}

	var result struct {
		Success      *bool  `json:"success"`
		ErrorMessage string `json:"errorMessage"`
	}
	if json.Unmarshal(invocation.Payload, &result) == nil && result.Success != nil && !*result.Success {
		return &ErrInvocationFailed{Name: function.Name(name), Message: result.ErrorMessage}
	}
	return nil
}

func (r *run) list(ctx context.Context) error {
	summaries, err := r.Functions.List(ctx)
	if err != nil {
		return err
	}
	out := r.out()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No RWS functions deployed.")
		return nil
	}
	fmt.Fprintf(out, "%-72s | %s\n", "ARN", "NAME")
	for _, s := range summaries {
		fmt.Fprintf(out, "%-72s | %s\n", s.ARN, s.Name)
	}
	return nil
}

func (r *run) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}
