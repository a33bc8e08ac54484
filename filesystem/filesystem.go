// Package filesystem provisions the shared EFS volume that functions mount to share
// a dependency cache.
//
// A file system is identified by a creation token derived from its name, so retried
// or concurrent creations never produce duplicates. Creation converges through three
// waits: the file system, then a mount target in the placement subnet, then an access
// point. GetOrCreate returns only once all three report "available".
package filesystem

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/efs"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"

	"github.com/rws-framework/rws-lambda/internal/awsutil"
	"github.com/rws-framework/rws-lambda/internal/poll"
	rwszap "github.com/rws-framework/rws-lambda/internal/zap"
	"github.com/rws-framework/rws-lambda/network"
)

// Resource kinds used in wait metrics.
const (
	kindFileSystem  = "filesystem"
	kindMountTarget = "mounttarget"
	kindAccessPoint = "accesspoint"
)

// EFSAPI is the subset of the EFS client used by the provisioner.
type EFSAPI interface {
	DescribeFileSystemsWithContext(aws.Context, *efs.DescribeFileSystemsInput, ...request.Option) (*efs.DescribeFileSystemsOutput, error)
	CreateFileSystemWithContext(aws.Context, *efs.CreateFileSystemInput, ...request.Option) (*efs.FileSystemDescription, error)
	DeleteFileSystemWithContext(aws.Context, *efs.DeleteFileSystemInput, ...request.Option) (*efs.DeleteFileSystemOutput, error)
	DescribeMountTargetsWithContext(aws.Context, *efs.DescribeMountTargetsInput, ...request.Option) (*efs.DescribeMountTargetsOutput, error)
	CreateMountTargetWithContext(aws.Context, *efs.CreateMountTargetInput, ...request.Option) (*efs.MountTargetDescription, error)
	DeleteMountTargetWithContext(aws.Context, *efs.DeleteMountTargetInput, ...request.Option) (*efs.DeleteMountTargetOutput, error)
	DescribeAccessPointsWithContext(aws.Context, *efs.DescribeAccessPointsInput, ...request.Option) (*efs.DescribeAccessPointsOutput, error)
	CreateAccessPointWithContext(aws.Context, *efs.CreateAccessPointInput, ...request.Option) (*efs.CreateAccessPointOutput, error)
	DeleteAccessPointWithContext(aws.Context, *efs.DeleteAccessPointInput, ...request.Option) (*efs.DeleteAccessPointOutput, error)
}

var _ EFSAPI = (*efs.EFS)(nil)

// Network is the part of the network provisioner the file system depends on.
type Network interface {
	CreateVPCEndpointIfNotExist(ctx context.Context, vpcID string) (string, error)
	EnsureRouteToVPCEndpoint(ctx context.Context, vpcID, endpointID string) error
}

var _ Network = network.Provisioner{}

// AccessPointConfig is the POSIX identity and root directory of created access points.
type AccessPointConfig struct {
	UID         int64
	GID         int64
	Path        string
	Permissions string
}

// DefaultAccessPoint is uid/gid 1001 rooted at "/" with 755 permissions.
var DefaultAccessPoint = AccessPointConfig{UID: 1001, GID: 1001, Path: "/", Permissions: "755"}

// AccessPoint is the entry point functions use to mount a file system.
type AccessPoint struct {
	ID             string
	ARN            string
	LifeCycleState string
}

// Record describes a provisioned file system.
type Record struct {
	FileSystemID   string
	LifeCycleState string
	MountTargetIDs []string
	AccessPoint    AccessPoint
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (r Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("fileSystemId", r.FileSystemID)
	enc.AddString("state", r.LifeCycleState)
	enc.AddArray("mountTargets", rwszap.Strings(r.MountTargetIDs))
	enc.AddString("accessPointId", r.AccessPoint.ID)
	enc.AddString("accessPointArn", r.AccessPoint.ARN)
	return nil
}

// Provisioner finds, creates and deletes shared file systems.
type Provisioner struct {
	Service        EFSAPI
	Network        Network
	Waiter         poll.Waiter
	AccessPoint    AccessPointConfig
	SecurityGroups []string
	// ClientToken generates the idempotency token of access point creation.
	ClientToken func() string
	Log         *zap.Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared GetOrCreate runs under. It is canceled once every
// caller waiting on it has returned.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type result struct {
	record  Record
	existed bool
}

// GetOrCreate returns the file system created with name as its creation token,
// creating and converging it when it doesn't exist. The boolean reports whether the
// file system already existed. Concurrent calls for the same name within the process
// share one execution, which keeps running while at least one caller still waits.
func (p *Provisioner) GetOrCreate(ctx context.Context, name string, placement network.Placement) (Record, bool, error) {
	for {
		f := p.join(ctx, name)
		ch := p.group.DoChan(name, func() (interface{}, error) {
			record, existed, err := p.getOrCreate(f.ctx, name, placement)
			return result{record: record, existed: existed}, err
		})

		select {
		case <-ctx.Done():
			p.leave(name, f)
			return Record{}, false, ctx.Err()
		case res := <-ch:
			p.leave(name, f)
			// A call abandoned by all of its earlier waiters is not ours to report.
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			r := res.Val.(result)
			if res.Err != nil {
				return Record{}, r.existed, res.Err
			}
			return r.record, r.existed, nil
		}
	}
}

func (p *Provisioner) join(ctx context.Context, name string) *flight {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.flights == nil {
		p.flights = map[string]*flight{}
	}
	f, ok := p.flights[name]
	if !ok {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: shared, cancel: cancel}
		p.flights[name] = f
	}
	f.waiters++
	return f
}

func (p *Provisioner) leave(name string, f *flight) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if p.flights[name] == f {
		delete(p.flights, name)
	}
}

func (p *Provisioner) getOrCreate(ctx context.Context, name string, placement network.Placement) (Record, bool, error) {
	existing, err := p.find(ctx, name)
	if err != nil {
		return Record{}, false, err
	}
	if existing != nil {
		record, err := p.resume(ctx, existing)
		if err != nil {
			return Record{}, true, err
		}
		p.Log.Info("Shared file system exists.", zap.String("name", name), zap.Object("fileSystem", record))
		return record, true, nil
	}

	record, raced, err := p.create(ctx, name, placement)
	if err != nil {
		p.Log.Error("Error creating shared file system.", zap.String("name", name), zap.Error(err))
		return Record{}, raced, err
	}
	if raced {
		p.Log.Info("Shared file system created by another caller.", zap.String("name", name), zap.Object("fileSystem", record))
		return record, true, nil
	}
	p.Log.Info("Shared file system created.", zap.String("name", name), zap.Object("fileSystem", record))
	return record, false, nil
}

// Find returns the file system with creation token name or nil.
func (p *Provisioner) find(ctx context.Context, name string) (*efs.FileSystemDescription, error) {
	out, err := p.Service.DescribeFileSystemsWithContext(ctx, &efs.DescribeFileSystemsInput{
		CreationToken: aws.String(name),
	})
	if err != nil {
		return nil, err
	}
	for _, fs := range out.FileSystems {
		state := aws.StringValue(fs.LifeCycleState)
		if state == efs.LifeCycleStateDeleting || state == efs.LifeCycleStateDeleted {
			continue
		}
		return fs, nil
	}
	return nil, nil
}

// resume validates an existing file system and waits for it to be usable. A file
// system without an access point cannot be mounted by functions and is reported as
// an inconsistency instead of being repaired.
func (p *Provisioner) resume(ctx context.Context, fs *efs.FileSystemDescription) (Record, error) {
	fsID := aws.StringValue(fs.FileSystemId)

	if err := p.waitForFileSystem(ctx, fsID); err != nil {
		return Record{}, err
	}

	points, err := p.accessPoints(ctx, fsID)
	if err != nil {
		return Record{}, err
	}
	point, ok := pickAccessPoint(points)
	if !ok {
		return Record{}, &ErrResourceInconsistency{FileSystemID: fsID, Reason: "no usable access point"}
	}
	if point.LifeCycleState != efs.LifeCycleStateAvailable {
		if err := p.waitForAccessPoint(ctx, point.ID); err != nil {
			return Record{}, err
		}
		point.LifeCycleState = efs.LifeCycleStateAvailable
	}

	mountTargets, err := p.mountTargets(ctx, fsID)
	if err != nil {
		return Record{}, err
	}
	if len(mountTargets) == 0 {
		return Record{}, &ErrResourceInconsistency{FileSystemID: fsID, Reason: "no mount target"}
	}
	if err := p.waitForMountTarget(ctx, fsID); err != nil {
		return Record{}, err
	}

	return Record{
		FileSystemID:   fsID,
		LifeCycleState: efs.LifeCycleStateAvailable,
		MountTargetIDs: mountTargetIDs(mountTargets),
		AccessPoint:    point,
	}, nil
}

// create runs the creation sequence. When another caller already holds the creation
// token, nothing else is created: the winner's file system is awaited and resumed
// and the boolean is true.
func (p *Provisioner) create(ctx context.Context, name string, placement network.Placement) (Record, bool, error) {
	fsID, winner, err := p.createFileSystem(ctx, name)
	if err != nil {
		return Record{}, false, err
	}
	if winner != nil {
		record, err := p.adopt(ctx, winner)
		return record, true, err
	}
	if err := p.waitForFileSystem(ctx, fsID); err != nil {
		return Record{}, false, err
	}

	mountTargetID, err := p.createMountTarget(ctx, fsID, placement.SubnetID)
	if err != nil {
		return Record{}, false, err
	}
	if err := p.waitForMountTarget(ctx, fsID); err != nil {
		return Record{}, false, err
	}

	point, err := p.createAccessPoint(ctx, name, fsID)
	if err != nil {
		return Record{}, false, err
	}
	if err := p.waitForAccessPoint(ctx, point.ID); err != nil {
		return Record{}, false, err
	}
	point.LifeCycleState = efs.LifeCycleStateAvailable

	endpointID, err := p.Network.CreateVPCEndpointIfNotExist(ctx, placement.VPCID)
	if err != nil {
		return Record{}, false, err
	}
	if err := p.Network.EnsureRouteToVPCEndpoint(ctx, placement.VPCID, endpointID); err != nil {
		return Record{}, false, err
	}

	return Record{
		FileSystemID:   fsID,
		LifeCycleState: efs.LifeCycleStateAvailable,
		MountTargetIDs: []string{mountTargetID},
		AccessPoint:    point,
	}, false, nil
}

// adopt waits until the file system created by another caller has its access point
// and mount target, then resumes it.
func (p *Provisioner) adopt(ctx context.Context, fs *efs.FileSystemDescription) (Record, error) {
	fsID := aws.StringValue(fs.FileSystemId)
	err := p.Waiter.Until(ctx, kindAccessPoint, fsID, func(ctx context.Context) (bool, error) {
		points, err := p.accessPoints(ctx, fsID)
		if err != nil {
			return false, err
		}
		if _, ok := pickAccessPoint(points); !ok {
			return false, nil
		}
		targets, err := p.mountTargets(ctx, fsID)
		if err != nil {
			return false, err
		}
		return len(targets) > 0, nil
	})
	if err != nil {
		return Record{}, err
	}
	return p.resume(ctx, fs)
}

// createFileSystem starts creation and returns the new ID. When the creation token is
// already taken, the existing file system is returned instead.
func (p *Provisioner) createFileSystem(ctx context.Context, name string) (string, *efs.FileSystemDescription, error) {
	created, err := p.Service.CreateFileSystemWithContext(ctx, &efs.CreateFileSystemInput{
		CreationToken:   aws.String(name),
		PerformanceMode: aws.String(efs.PerformanceModeGeneralPurpose),
		Tags:            []*efs.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	})
	if awsutil.IsCode(err, efs.ErrCodeFileSystemAlreadyExists) {
		// Another caller won the race for this creation token.
		existing, findErr := p.find(ctx, name)
		if findErr != nil {
			return "", nil, findErr
		}
		if existing == nil {
			return "", nil, err
		}
		return aws.StringValue(existing.FileSystemId), existing, nil
	}
	if err != nil {
		return "", nil, err
	}

	fsID := aws.StringValue(created.FileSystemId)
	p.Log.Info("File system creation started.", zap.String("name", name), zap.String("fileSystemId", fsID))
	return fsID, nil, nil
}

func (p *Provisioner) createMountTarget(ctx context.Context, fsID, subnetID string) (string, error) {
	input := &efs.CreateMountTargetInput{
		FileSystemId: aws.String(fsID),
		SubnetId:     aws.String(subnetID),
	}
	if len(p.SecurityGroups) > 0 {
		input.SecurityGroups = aws.StringSlice(p.SecurityGroups)
	}

	created, err := p.Service.CreateMountTargetWithContext(ctx, input)
	if awsutil.IsCode(err, efs.ErrCodeMountTargetConflict) {
		targets, listErr := p.mountTargets(ctx, fsID)
		if listErr != nil {
			return "", listErr
		}
		for _, mt := range targets {
			if aws.StringValue(mt.SubnetId) == subnetID {
				return aws.StringValue(mt.MountTargetId), nil
			}
		}
		return "", err
	}
	if err != nil {
		return "", err
	}

	mtID := aws.StringValue(created.MountTargetId)
	p.Log.Info("Mount target creation started.", zap.String("fileSystemId", fsID), zap.String("mountTargetId", mtID), zap.String("subnetId", subnetID))
	return mtID, nil
}

func (p *Provisioner) createAccessPoint(ctx context.Context, name, fsID string) (AccessPoint, error) {
	cfg := p.accessPointConfig()

	created, err := p.Service.CreateAccessPointWithContext(ctx, &efs.CreateAccessPointInput{
		ClientToken:  aws.String(p.clientToken()),
		FileSystemId: aws.String(fsID),
		PosixUser: &efs.PosixUser{
			Uid: aws.Int64(cfg.UID),
			Gid: aws.Int64(cfg.GID),
		},
		RootDirectory: &efs.RootDirectory{
			Path: aws.String(cfg.Path),
			CreationInfo: &efs.CreationInfo{
				OwnerUid:    aws.Int64(cfg.UID),
				OwnerGid:    aws.Int64(cfg.GID),
				Permissions: aws.String(cfg.Permissions),
			},
		},
		Tags: []*efs.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	})
	if err != nil {
		return AccessPoint{}, err
	}

	point := AccessPoint{
		ID:             aws.StringValue(created.AccessPointId),
		ARN:            aws.StringValue(created.AccessPointArn),
		LifeCycleState: aws.StringValue(created.LifeCycleState),
	}
	p.Log.Info("Access point creation started.", zap.String("fileSystemId", fsID), zap.String("accessPointId", point.ID))
	return point, nil
}

func (p *Provisioner) waitForFileSystem(ctx context.Context, fsID string) error {
	return p.Waiter.Until(ctx, kindFileSystem, fsID, func(ctx context.Context) (bool, error) {
		out, err := p.Service.DescribeFileSystemsWithContext(ctx, &efs.DescribeFileSystemsInput{
			FileSystemId: aws.String(fsID),
		})
		if err != nil {
			return false, err
		}
		if len(out.FileSystems) == 0 {
			return false, nil
		}
		state := aws.StringValue(out.FileSystems[0].LifeCycleState)
		if state == efs.LifeCycleStateError || state == efs.LifeCycleStateDeleting || state == efs.LifeCycleStateDeleted {
			return false, &ErrResourceInconsistency{FileSystemID: fsID, Reason: "file system is " + state}
		}
		return state == efs.LifeCycleStateAvailable, nil
	})
}

func (p *Provisioner) waitForMountTarget(ctx context.Context, fsID string) error {
	return p.Waiter.Until(ctx, kindMountTarget, fsID, func(ctx context.Context) (bool, error) {
		targets, err := p.mountTargets(ctx, fsID)
		if err != nil {
			return false, err
		}
		for _, mt := range targets {
			if aws.StringValue(mt.LifeCycleState) == efs.LifeCycleStateAvailable {
				return true, nil
			}
		}
		return false, nil
	})
}

func (p *Provisioner) waitForAccessPoint(ctx context.Context, apID string) error {
	return p.Waiter.Until(ctx, kindAccessPoint, apID, func(ctx context.Context) (bool, error) {
		out, err := p.Service.DescribeAccessPointsWithContext(ctx, &efs.DescribeAccessPointsInput{
			AccessPointId: aws.String(apID),
		})
		if err != nil {
			return false, err
		}
		if len(out.AccessPoints) == 0 {
			return false, nil
		}
		state := aws.StringValue(out.AccessPoints[0].LifeCycleState)
		if state == efs.LifeCycleStateError {
			return false, &ErrResourceInconsistency{FileSystemID: aws.StringValue(out.AccessPoints[0].FileSystemId), Reason: "access point " + apID + " is in error state"}
		}
		return state == efs.LifeCycleStateAvailable, nil
	})
}

func (p *Provisioner) accessPoints(ctx context.Context, fsID string) ([]*efs.AccessPointDescription, error) {
	var points []*efs.AccessPointDescription
	input := &efs.DescribeAccessPointsInput{FileSystemId: aws.String(fsID)}
	for {
		out, err := p.Service.DescribeAccessPointsWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		points = append(points, out.AccessPoints...)
		if aws.StringValue(out.NextToken) == "" {
			return points, nil
		}
		input.NextToken = out.NextToken
	}
}

func (p *Provisioner) mountTargets(ctx context.Context, fsID string) ([]*efs.MountTargetDescription, error) {
	var targets []*efs.MountTargetDescription
	input := &efs.DescribeMountTargetsInput{FileSystemId: aws.String(fsID)}
	for {
		out, err := p.Service.DescribeMountTargetsWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		targets = append(targets, out.MountTargets...)
		if aws.StringValue(out.NextMarker) == "" {
			return targets, nil
		}
		input.Marker = out.NextMarker
	}
}

func (p *Provisioner) accessPointConfig() AccessPointConfig {
	cfg := p.AccessPoint
	if cfg == (AccessPointConfig{}) {
		return DefaultAccessPoint
	}
	if cfg.Path == "" {
		cfg.Path = DefaultAccessPoint.Path
	}
	if cfg.Permissions == "" {
		cfg.Permissions = DefaultAccessPoint.Permissions
	}
	return cfg
}

func (p *Provisioner) clientToken() string {
	if p.ClientToken != nil {
		return p.ClientToken()
	}
	return uuid.NewV4().String()
}

// pickAccessPoint prefers an available access point and falls back to one that is
// still being created.
func pickAccessPoint(points []*efs.AccessPointDescription) (AccessPoint, bool) {
	var creating *efs.AccessPointDescription
	for _, ap := range points {
		switch aws.StringValue(ap.LifeCycleState) {
		case efs.LifeCycleStateAvailable:
			return toAccessPoint(ap), true
		case efs.LifeCycleStateCreating, efs.LifeCycleStateUpdating:
			if creating == nil {
				creating = ap
			}
		}
	}
	if creating != nil {
		return toAccessPoint(creating), true
	}
	return AccessPoint{}, false
}

func toAccessPoint(ap *efs.AccessPointDescription) AccessPoint {
	return AccessPoint{
		ID:             aws.StringValue(ap.AccessPointId),
		ARN:            aws.StringValue(ap.AccessPointArn),
		LifeCycleState: aws.StringValue(ap.LifeCycleState),
	}
}

func mountTargetIDs(targets []*efs.MountTargetDescription) []string {
	ids := make([]string, 0, len(targets))
	for _, mt := range targets {
		ids = append(ids, aws.StringValue(mt.MountTargetId))
	}
	return ids
}

// Delete removes the file system created with name as its creation token together
// with its access points and mount targets.
func (p *Provisioner) Delete(ctx context.Context, name string) error {
	fs, err := p.find(ctx, name)
	if err != nil {
		return err
	}
	if fs == nil {
		return &ErrNotFound{Name: name}
	}
	fsID := aws.StringValue(fs.FileSystemId)

	points, err := p.accessPoints(ctx, fsID)
	if err != nil {
		return err
	}
	for _, ap := range points {
		_, err := p.Service.DeleteAccessPointWithContext(ctx, &efs.DeleteAccessPointInput{AccessPointId: ap.AccessPointId})
		if err != nil && !awsutil.IsCode(err, efs.ErrCodeAccessPointNotFound) {
			return err
		}
	}

	targets, err := p.mountTargets(ctx, fsID)
	if err != nil {
		return err
	}
	for _, mt := range targets {
		_, err := p.Service.DeleteMountTargetWithContext(ctx, &efs.DeleteMountTargetInput{MountTargetId: mt.MountTargetId})
		if err != nil && !awsutil.IsCode(err, efs.ErrCodeMountTargetNotFound) {
			return err
		}
	}
	if len(targets) > 0 {
		err := p.Waiter.Until(ctx, kindMountTarget, fsID, func(ctx context.Context) (bool, error) {
			remaining, err := p.mountTargets(ctx, fsID)
			if err != nil {
				return false, err
			}
			return len(remaining) == 0, nil
		})
		if err != nil {
			return err
		}
	}

	// EFS refuses deletion while mount targets are still being released.
	err = p.Waiter.Until(ctx, kindFileSystem, fsID, func(ctx context.Context) (bool, error) {
		_, err := p.Service.DeleteFileSystemWithContext(ctx, &efs.DeleteFileSystemInput{FileSystemId: aws.String(fsID)})
		if awsutil.IsCode(err, efs.ErrCodeFileSystemNotFound) {
			return true, nil
		}
		if awsutil.IsCode(err, efs.ErrCodeFileSystemInUse) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return err
	}

	p.Log.Info("Shared file system deleted.", zap.String("name", name), zap.String("fileSystemId", fsID))
	return nil
}
