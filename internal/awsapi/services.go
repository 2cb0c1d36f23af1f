package awsapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
)

// EC2API is the subset of the EC2 client used by the registry.
type EC2API interface {
	DescribeInstanceStatus(context.Context, *ec2.DescribeInstanceStatusInput, ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
	DescribeInstances(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateSnapshots(context.Context, *ec2.CreateSnapshotsInput, ...func(*ec2.Options)) (*ec2.CreateSnapshotsOutput, error)
	TerminateInstances(context.Context, *ec2.TerminateInstancesInput, ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// ELBAPI is the subset of the Elastic Load Balancing v2 client used for target health.
type ELBAPI interface {
	DescribeTargetHealth(context.Context, *elbv2.DescribeTargetHealthInput, ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
}

// SNSAPI is the subset of the SNS client used by the notifier.
type SNSAPI interface {
	Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Services bundles the AWS bindings of the remediation collaborators.
type Services struct {
	Registry     *EC2Registry
	TargetHealth *TargetHealth
	Notifier     *SNSNotifier
}

// NewServices builds the bindings from an AWS config.
func NewServices(cfg aws.Config) *Services {
	return &Services{
		Registry:     NewEC2Registry(ec2.NewFromConfig(cfg)),
		TargetHealth: NewTargetHealth(elbv2.NewFromConfig(cfg)),
		Notifier:     NewSNSNotifier(sns.NewFromConfig(cfg)),
	}
}

// LoadServices loads the default AWS config, overriding the region if set.
func LoadServices(ctx context.Context, region string) (*Services, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewServices(cfg), nil
}

// ErrInstanceNotFound is returned when the registry does not know an instance.
var ErrInstanceNotFound = errors.New("instance not found")

// ConvertError maps AWS API errors to package errors.
func ConvertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
			return fmt.Errorf("%w: %w", ErrInstanceNotFound, err)
		}
	}
	return err
}
