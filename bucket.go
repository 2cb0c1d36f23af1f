package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/elb"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const albLogPrefix = "ALB-logs"

type LogBucket struct {
	bucket *s3.BucketV2
	policy *s3.BucketPolicy
}

func NewLogBucket(ctx *pulumi.Context) (*LogBucket, error) {
	lb := &LogBucket{}
	var err error

	lb.bucket, err = s3.NewBucketV2(ctx, "alb-logs", &s3.BucketV2Args{
		ForceDestroy: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating log bucket: %w", err)
	}

	// regions older than 2022 deliver from a regional elb account, newer
	// ones from the log delivery service
	elbAccount, err := elb.GetServiceAccount(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Error looking up elb service account: %w", err)
	}
	logObjects := pulumi.Sprintf("%s/%s/*", lb.bucket.Arn, albLogPrefix)
	policy := pulumi.JSONMarshal(map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []interface{}{
			map[string]interface{}{
				"Sid":       "AllowALBLogsWrite",
				"Effect":    "Allow",
				"Principal": map[string]interface{}{"AWS": elbAccount.Arn},
				"Action":    "s3:PutObject",
				"Resource":  logObjects,
			},
			map[string]interface{}{
				"Sid":       "AllowLogDeliveryWrite",
				"Effect":    "Allow",
				"Principal": map[string]interface{}{"Service": "logdelivery.elasticloadbalancing.amazonaws.com"},
				"Action":    "s3:PutObject",
				"Resource":  logObjects,
			},
		},
	})
	lb.policy, err = s3.NewBucketPolicy(ctx, "alb-logs-policy", &s3.BucketPolicyArgs{
		Bucket: lb.bucket.ID(),
		Policy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating log bucket policy: %w", err)
	}

	return lb, nil
}
