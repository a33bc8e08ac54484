package permission

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/iam"
	"go.uber.org/zap"

	rwszap "github.com/rws-framework/rws-lambda/internal/zap"
)

// RequiredActions are the IAM actions the lambda role must be allowed before any
// command touches cloud resources.
var RequiredActions = []string{
	"lambda:CreateFunction",
	"lambda:UpdateFunctionCode",
	"lambda:UpdateFunctionConfiguration",
	"lambda:InvokeFunction",
	"lambda:ListFunctions",

	"s3:GetObject",
	"s3:PutObject",

	"elasticfilesystem:CreateFileSystem",
	"elasticfilesystem:DeleteFileSystem",
	"elasticfilesystem:DescribeFileSystems",

	"elasticfilesystem:CreateAccessPoint",
	"elasticfilesystem:DeleteAccessPoint",
	"elasticfilesystem:DescribeAccessPoints",

	"elasticfilesystem:CreateMountTarget",
	"elasticfilesystem:DeleteMountTarget",
	"elasticfilesystem:DescribeMountTargets",

	"ec2:CreateSecurityGroup",
	"ec2:DescribeSecurityGroups",
	"ec2:DescribeSubnets",
	"ec2:DescribeVpcs",

	"ec2:CreateVpcEndpoint",
	"ec2:DescribeVpcEndpoints",
	"ec2:ModifyVpcEndpoint",
	"ec2:DeleteVpcEndpoint",

	"cloudwatch:PutMetricData",
	"cloudwatch:GetMetricData",
}

// IAMAPI is the subset of the IAM client used by the checker.
type IAMAPI interface {
	SimulatePrincipalPolicyPagesWithContext(aws.Context, *iam.SimulatePrincipalPolicyInput, func(*iam.SimulatePolicyResponse, bool) bool, ...request.Option) error
}

var _ IAMAPI = (*iam.IAM)(nil)

// Report is the outcome of a permission check. It is produced fresh for every command.
type Report struct {
	OK            bool
	DeniedActions []string
	// Cause is set when the simulation itself failed.
	Cause error
}

// Err returns nil for a passing report and *ErrPermissionDenied otherwise.
func (r Report) Err() error {
	if r.OK {
		return nil
	}
	return &ErrPermissionDenied{Actions: r.DeniedActions, Original: r.Cause}
}

// Checker simulates the role's policies against a list of actions.
type Checker struct {
	Service IAMAPI
	Log     *zap.Logger
}

// Check evaluates actions for roleARN in one batched simulation. Actions the
// simulation does not allow, or does not report on, are denied. A failed simulation
// yields a failing report with no denied actions.
func (c Checker) Check(ctx context.Context, roleARN string, actions []string) Report {
	decisions := make(map[string]string, len(actions))

	err := c.Service.SimulatePrincipalPolicyPagesWithContext(ctx, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(roleARN),
		ActionNames:     aws.StringSlice(actions),
	}, func(page *iam.SimulatePolicyResponse, lastPage bool) bool {
		for _, result := range page.EvaluationResults {
			decisions[aws.StringValue(result.EvalActionName)] = aws.StringValue(result.EvalDecision)
		}
		return true
	})
	if err != nil {
		c.Log.Error("Permission check failed.", zap.String("role", roleARN), zap.Error(err))
		return Report{OK: false, DeniedActions: []string{}, Cause: err}
	}

	denied := []string{}
	seen := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		if _, ok := seen[action]; ok {
			continue
		}
		seen[action] = struct{}{}

		if decisions[action] != iam.PolicyEvaluationDecisionTypeAllowed {
			denied = append(denied, action)
		}
	}

	report := Report{OK: len(denied) == 0, DeniedActions: denied}
	if report.OK {
		c.Log.Debug("Role is eligible for operations.", zap.String("role", roleARN))
	} else {
		c.Log.Warn("Role is missing permissions.", zap.String("role", roleARN), zap.Array("denied", rwszap.Strings(denied)))
	}
	return report
}
