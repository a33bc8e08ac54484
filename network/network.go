// Package network resolves where functions and mount targets are placed and makes
// sure the placement can reach S3 through a gateway endpoint.
package network

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EndpointName is the Name tag of the S3 gateway endpoint owned by rws-lambda.
const EndpointName = "RWS-S3-GATE"

// AnyDestination is the catch-all destination routed to the gateway endpoint.
const AnyDestination = "0.0.0.0/0"

// EC2API is the subset of the EC2 client used by the provisioner.
type EC2API interface {
	DescribeVpcsWithContext(aws.Context, *ec2.DescribeVpcsInput, ...request.Option) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnetsWithContext(aws.Context, *ec2.DescribeSubnetsInput, ...request.Option) (*ec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroupsWithContext(aws.Context, *ec2.DescribeSecurityGroupsInput, ...request.Option) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeRouteTablesWithContext(aws.Context, *ec2.DescribeRouteTablesInput, ...request.Option) (*ec2.DescribeRouteTablesOutput, error)
	DescribeVpcEndpointsWithContext(aws.Context, *ec2.DescribeVpcEndpointsInput, ...request.Option) (*ec2.DescribeVpcEndpointsOutput, error)
	CreateVpcEndpointWithContext(aws.Context, *ec2.CreateVpcEndpointInput, ...request.Option) (*ec2.CreateVpcEndpointOutput, error)
	CreateRouteWithContext(aws.Context, *ec2.CreateRouteInput, ...request.Option) (*ec2.CreateRouteOutput, error)
}

var _ EC2API = (*ec2.EC2)(nil)

// Placement is the network location of a command's resources.
type Placement struct {
	VPCID    string
	SubnetID string
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (p Placement) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("vpcId", p.VPCID)
	enc.AddString("subnetId", p.SubnetID)
	return nil
}

// Provisioner finds and creates network resources.
type Provisioner struct {
	Service EC2API
	Region  string
	Log     *zap.Logger
}

// FindDefaultSubnet returns the first subnet of the account's default VPC.
func (p Provisioner) FindDefaultSubnet(ctx context.Context) (Placement, error) {
	vpcs, err := p.Service.DescribeVpcsWithContext(ctx, &ec2.DescribeVpcsInput{
		Filters: []*ec2.Filter{filter("isDefault", "true")},
	})
	if err != nil {
		return Placement{}, err
	}
	if len(vpcs.Vpcs) == 0 {
		return Placement{}, ErrNoDefaultVPC
	}
	vpcID := aws.StringValue(vpcs.Vpcs[0].VpcId)

	subnetID, err := p.SubnetForVPC(ctx, vpcID)
	if err != nil {
		return Placement{}, err
	}

	placement := Placement{VPCID: vpcID, SubnetID: subnetID}
	p.Log.Debug("Default placement resolved.", zap.Object("placement", placement))
	return placement, nil
}

// SubnetForVPC returns the first subnet of vpcID.
func (p Provisioner) SubnetForVPC(ctx context.Context, vpcID string) (string, error) {
	subnets, err := p.Service.DescribeSubnetsWithContext(ctx, &ec2.DescribeSubnetsInput{
		Filters: []*ec2.Filter{filter("vpc-id", vpcID)},
	})
	if err != nil {
		return "", err
	}
	if len(subnets.Subnets) == 0 {
		return "", &ErrNoSubnet{VPCID: vpcID}
	}
	return aws.StringValue(subnets.Subnets[0].SubnetId), nil
}

// DefaultSecurityGroup returns the id of the VPC's "default" security group.
func (p Provisioner) DefaultSecurityGroup(ctx context.Context, vpcID string) (string, error) {
	groups, err := p.Service.DescribeSecurityGroupsWithContext(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []*ec2.Filter{filter("vpc-id", vpcID), filter("group-name", "default")},
	})
	if err != nil {
		return "", err
	}
	if len(groups.SecurityGroups) == 0 {
		return "", &ErrNoSecurityGroup{VPCID: vpcID}
	}
	return aws.StringValue(groups.SecurityGroups[0].GroupId), nil
}

// DefaultRouteTable returns the VPC's route table without explicit subnet
// associations. The main route table wins when several qualify.
func (p Provisioner) DefaultRouteTable(ctx context.Context, vpcID string) (*ec2.RouteTable, error) {
	out, err := p.Service.DescribeRouteTablesWithContext(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []*ec2.Filter{filter("vpc-id", vpcID)},
	})
	if err != nil {
		return nil, err
	}

	var found *ec2.RouteTable
	for _, rt := range out.RouteTables {
		if hasSubnetAssociation(rt) {
			continue
		}
		if isMain(rt) {
			return rt, nil
		}
		if found == nil {
			found = rt
		}
	}
	if found == nil {
		return nil, &ErrNoRouteTable{VPCID: vpcID}
	}
	return found, nil
}

// CreateVPCEndpointIfNotExist returns the id of the S3 gateway endpoint tagged
// EndpointName, creating it on the default route table when missing.
func (p Provisioner) CreateVPCEndpointIfNotExist(ctx context.Context, vpcID string) (string, error) {
	existing, err := p.Service.DescribeVpcEndpointsWithContext(ctx, &ec2.DescribeVpcEndpointsInput{
		Filters: []*ec2.Filter{filter("tag:Name", EndpointName), filter("vpc-id", vpcID)},
	})
	if err != nil {
		return "", err
	}
	for _, endpoint := range existing.VpcEndpoints {
		state := aws.StringValue(endpoint.State)
		if state == "deleting" || state == "deleted" || state == "failed" {
			continue
		}
		p.Log.Info("VPC endpoint already exists.", zap.String("name", EndpointName), zap.String("endpointId", aws.StringValue(endpoint.VpcEndpointId)))
		return aws.StringValue(endpoint.VpcEndpointId), nil
	}

	routeTable, err := p.DefaultRouteTable(ctx, vpcID)
	if err != nil {
		return "", err
	}

	created, err := p.Service.CreateVpcEndpointWithContext(ctx, &ec2.CreateVpcEndpointInput{
		VpcId:           aws.String(vpcID),
		ServiceName:     aws.String(p.serviceName()),
		VpcEndpointType: aws.String(ec2.VpcEndpointTypeGateway),
		RouteTableIds:   []*string{routeTable.RouteTableId},
		TagSpecifications: []*ec2.TagSpecification{{
			ResourceType: aws.String(ec2.ResourceTypeVpcEndpoint),
			Tags:         []*ec2.Tag{{Key: aws.String("Name"), Value: aws.String(EndpointName)}},
		}},
	})
	if err != nil {
		return "", err
	}
	if created.VpcEndpoint == nil || created.VpcEndpoint.VpcEndpointId == nil {
		return "", ErrEndpointNotCreated
	}

	endpointID := aws.StringValue(created.VpcEndpoint.VpcEndpointId)
	p.Log.Info("VPC endpoint created.", zap.String("name", EndpointName), zap.String("endpointId", endpointID))
	return endpointID, nil
}

// EnsureRouteToVPCEndpoint adds a catch-all route to endpointID on the default route
// table unless a route to it already exists.
func (p Provisioner) EnsureRouteToVPCEndpoint(ctx context.Context, vpcID, endpointID string) error {
	routeTable, err := p.DefaultRouteTable(ctx, vpcID)
	if err != nil {
		return err
	}
	routeTableID := aws.StringValue(routeTable.RouteTableId)

	for _, route := range routeTable.Routes {
		if aws.StringValue(route.GatewayId) == endpointID {
			p.Log.Debug("Route to VPC endpoint already exists.", zap.String("endpointId", endpointID), zap.String("routeTableId", routeTableID))
			return nil
		}
	}

	_, err = p.Service.CreateRouteWithContext(ctx, &ec2.CreateRouteInput{
		RouteTableId:         routeTable.RouteTableId,
		DestinationCidrBlock: aws.String(AnyDestination),
		VpcEndpointId:        aws.String(endpointID),
	})
	if err != nil {
		return err
	}

	p.Log.Info("Route to VPC endpoint added.", zap.String("endpointId", endpointID), zap.String("routeTableId", routeTableID))
	return nil
}

func (p Provisioner) serviceName() string {
	return "com.amazonaws." + p.Region + ".s3"
}

func filter(name string, values ...string) *ec2.Filter {
	return &ec2.Filter{Name: aws.String(name), Values: aws.StringSlice(values)}
}

func hasSubnetAssociation(rt *ec2.RouteTable) bool {
	for _, assoc := range rt.Associations {
		if assoc.SubnetId != nil {
			return true
		}
	}
	return false
}

func isMain(rt *ec2.RouteTable) bool {
	for _, assoc := range rt.Associations {
		if aws.BoolValue(assoc.Main) {
			return true
		}
	}
	return false
}
