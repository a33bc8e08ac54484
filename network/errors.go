package network

import (
	"errors"
	"fmt"
)

// ErrNoDefaultVPC occurs when the account has no VPC marked as default.
var ErrNoDefaultVPC = errors.New("No default VPC found.")

// ErrEndpointNotCreated occurs when the VPC endpoint create call returned no endpoint.
var ErrEndpointNotCreated = errors.New("Failed to create VPC endpoint.")

// ErrNoSubnet occurs when a VPC has no subnets.
type ErrNoSubnet struct {
	VPCID string
}

func (e ErrNoSubnet) Error() string {
	return fmt.Sprintf("No subnet found in VPC %q.", e.VPCID)
}

// ErrNoSecurityGroup occurs when a VPC has no default security group.
type ErrNoSecurityGroup struct {
	VPCID string
}

func (e ErrNoSecurityGroup) Error() string {
	return fmt.Sprintf("No default security group found in VPC %q.", e.VPCID)
}

// ErrNoRouteTable occurs when a VPC has no route table without subnet associations.
type ErrNoRouteTable struct {
	VPCID string
}

func (e ErrNoRouteTable) Error() string {
	return fmt.Sprintf("No default route table found in VPC %q.", e.VPCID)
}
