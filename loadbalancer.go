package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lb"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

type LoadBalancer struct {
	alb         *lb.LoadBalancer
	targetGroup *lb.TargetGroup
	listener    *lb.Listener
}

type LoadBalancerArgs struct {
	config    *StackConfig
	network   *Network
	bucket    *LogBucket
	instances *Instances
	topics    *Topics
}

func NewLoadBalancer(ctx *pulumi.Context, args LoadBalancerArgs) (*LoadBalancer, error) {
	l := &LoadBalancer{}
	var err error

	l.alb, err = lb.NewLoadBalancer(ctx, "alb", &lb.LoadBalancerArgs{
		Internal:         pulumi.Bool(false),
		LoadBalancerType: pulumi.String("application"),
		IpAddressType:    pulumi.String("ipv4"),
		SecurityGroups:   pulumi.StringArray{args.network.albSg.ID()},
		Subnets:          args.network.vpc.PublicSubnetIds,
		AccessLogs: &lb.LoadBalancerAccessLogsArgs{
			Bucket:  args.bucket.bucket.Bucket,
			Prefix:  pulumi.String(albLogPrefix),
			Enabled: pulumi.Bool(true),
		},
		Tags: pulumi.StringMap{"Name": pulumi.Sprintf("%s-alb", ctx.Project())},
	}, pulumi.DependsOn([]pulumi.Resource{args.bucket.policy}))
	if err != nil {
		return nil, fmt.Errorf("Error creating load balancer: %w", err)
	}

	l.targetGroup, err = lb.NewTargetGroup(ctx, "web-tg", &lb.TargetGroupArgs{
		Port:       pulumi.Int(frontendPort),
		Protocol:   pulumi.String("HTTP"),
		TargetType: pulumi.String("instance"),
		VpcId:      args.network.vpc.VpcId,
		HealthCheck: &lb.TargetGroupHealthCheckArgs{
			Path:               pulumi.String("/"),
			Port:               pulumi.String("traffic-port"),
			Protocol:           pulumi.String("HTTP"),
			HealthyThreshold:   pulumi.Int(2),
			UnhealthyThreshold: pulumi.Int(3),
			Interval:           pulumi.Int(30),
			Timeout:            pulumi.Int(5),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating target group: %w", err)
	}

	targets := []struct {
		role     string
		instance pulumi.IDOutput
		port     int
	}{
		{"frontend", args.instances.frontend.ID(), frontendPort},
		{"backend", args.instances.backend.ID(), backendPort},
	}
	for _, t := range targets {
		_, err = lb.NewTargetGroupAttachment(ctx, t.role+"-attachment", &lb.TargetGroupAttachmentArgs{
			TargetGroupArn: l.targetGroup.Arn,
			TargetId:       t.instance,
			Port:           pulumi.Int(t.port),
		})
		if err != nil {
			return nil, fmt.Errorf("Error registering %s target: %w", t.role, err)
		}
	}

	l.listener, err = lb.NewListener(ctx, "http-listener", &lb.ListenerArgs{
		LoadBalancerArn: l.alb.Arn,
		Port:            pulumi.Int(80),
		Protocol:        pulumi.String("HTTP"),
		DefaultActions: lb.ListenerDefaultActionArray{
			lb.ListenerDefaultActionArgs{
				Type:           pulumi.String("forward"),
				TargetGroupArn: l.targetGroup.Arn,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating listener: %w", err)
	}

	_, err = cloudwatch.NewMetricAlarm(ctx, "high-traffic-alarm", &cloudwatch.MetricAlarmArgs{
		AlarmDescription:   pulumi.String("Request count on the load balancer is above the high traffic threshold"),
		Namespace:          pulumi.String("AWS/ApplicationELB"),
		MetricName:         pulumi.String("RequestCount"),
		Dimensions:         pulumi.StringMap{"LoadBalancer": l.alb.ArnSuffix},
		Statistic:          pulumi.String("Sum"),
		Period:             pulumi.Int(60),
		EvaluationPeriods:  pulumi.Int(1),
		ComparisonOperator: pulumi.String("GreaterThanThreshold"),
		Threshold:          pulumi.Float64(args.config.highTrafficThreshold),
		TreatMissingData:   pulumi.String("notBreaching"),
		AlarmActions:       pulumi.Array{args.topics.arn(alertHighTraffic)},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating high traffic alarm: %w", err)
	}

	return l, nil
}
