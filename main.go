package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

func main() {
	pulumi.Run(program)
}

func program(ctx *pulumi.Context) error {
	config, err := NewStackConfig(ctx)
	if err != nil {
		return err
	}

	network, err := NewNetwork(ctx, NetworkArgs{
		config: config,
	})
	if err != nil {
		return err
	}

	bucket, err := NewLogBucket(ctx)
	if err != nil {
		return err
	}

	topics, err := NewTopics(ctx, TopicsArgs{
		config: config,
	})
	if err != nil {
		return err
	}

	instances, err := NewInstances(ctx, InstancesArgs{
		config:  config,
		network: network,
	})
	if err != nil {
		return err
	}

	loadBalancer, err := NewLoadBalancer(ctx, LoadBalancerArgs{
		config:    config,
		network:   network,
		bucket:    bucket,
		instances: instances,
		topics:    topics,
	})
	if err != nil {
		return err
	}

	_, err = NewAutoScaling(ctx, AutoScalingArgs{
		config:       config,
		network:      network,
		instances:    instances,
		loadBalancer: loadBalancer,
		topics:       topics,
	})
	if err != nil {
		return err
	}

	api, err := NewApi(ctx)
	if err != nil {
		return err
	}

	handler, err := NewLambdaHandler(ctx, LambdaHandlerArgs{
		config:       config,
		topics:       topics,
		loadBalancer: loadBalancer,
		api:          api,
	})
	if err != nil {
		return err
	}

	ctx.Export("albDnsName", loadBalancer.alb.DnsName)
	ctx.Export("targetGroupArn", loadBalancer.targetGroup.Arn)
	ctx.Export("logBucket", bucket.bucket.Bucket)
	ctx.Export("healthIssuesTopicArn", topics.arn(alertHealthIssues))
	ctx.Export("scalingEventsTopicArn", topics.arn(alertScalingEvents))
	ctx.Export("highTrafficTopicArn", topics.arn(alertHighTraffic))
	ctx.Export("healthCheckFunction", handler.function.Name)
	ctx.Export("frontendInstanceId", instances.frontend.ID())
	ctx.Export("backendInstanceId", instances.backend.ID())

	return nil
}
