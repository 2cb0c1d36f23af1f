package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/autoscaling"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

var scalingNotifications = []string{
	"autoscaling:EC2_INSTANCE_LAUNCH",
	"autoscaling:EC2_INSTANCE_TERMINATE",
	"autoscaling:EC2_INSTANCE_LAUNCH_ERROR",
	"autoscaling:EC2_INSTANCE_TERMINATE_ERROR",
}

type AutoScaling struct {
	frontendTemplate *ec2.LaunchTemplate
	backendTemplate  *ec2.LaunchTemplate
	group            *autoscaling.Group
}

type AutoScalingArgs struct {
	config       *StackConfig
	network      *Network
	instances    *Instances
	loadBalancer *LoadBalancer
	topics       *Topics
}

func NewAutoScaling(ctx *pulumi.Context, args AutoScalingArgs) (*AutoScaling, error) {
	as := &AutoScaling{}
	var err error

	as.frontendTemplate, err = newLaunchTemplate(ctx, "frontend", args.config, args.network, args.instances.frontendUserData)
	if err != nil {
		return nil, err
	}
	as.backendTemplate, err = newLaunchTemplate(ctx, "backend", args.config, args.network, args.instances.backendUserData)
	if err != nil {
		return nil, err
	}

	as.group, err = autoscaling.NewGroup(ctx, "web-asg", &autoscaling.GroupArgs{
		MinSize:            pulumi.Int(args.config.asgMin),
		MaxSize:            pulumi.Int(args.config.asgMax),
		DesiredCapacity:    pulumi.Int(args.config.asgDesired),
		VpcZoneIdentifiers: args.network.vpc.PrivateSubnetIds,
		TargetGroupArns:    pulumi.StringArray{args.loadBalancer.targetGroup.Arn},
		HealthCheckType:    pulumi.String("ELB"),
		LaunchTemplate: &autoscaling.GroupLaunchTemplateArgs{
			Id:      as.frontendTemplate.ID(),
			Version: pulumi.String("$Latest"),
		},
		Tags: autoscaling.GroupTagArray{
			autoscaling.GroupTagArgs{
				Key:               pulumi.String("Name"),
				Value:             pulumi.Sprintf("%s-unified-instance", ctx.Project()),
				PropagateAtLaunch: pulumi.Bool(true),
			},
			autoscaling.GroupTagArgs{
				Key:               pulumi.String("Role"),
				Value:             pulumi.String("frontend-backend"),
				PropagateAtLaunch: pulumi.Bool(true),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating autoscaling group: %w", err)
	}

	_, err = autoscaling.NewNotification(ctx, "web-asg-notifications", &autoscaling.NotificationArgs{
		GroupNames:    pulumi.StringArray{as.group.Name},
		Notifications: pulumi.ToStringArray(scalingNotifications),
		TopicArn:      args.topics.arn(alertScalingEvents),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating scaling notifications: %w", err)
	}

	return as, nil
}

func newLaunchTemplate(ctx *pulumi.Context, role string, conf *StackConfig, network *Network, userData pulumi.StringOutput) (*ec2.LaunchTemplate, error) {
	template, err := ec2.NewLaunchTemplate(ctx, role+"-launch-template", &ec2.LaunchTemplateArgs{
		ImageId:             pulumi.String(conf.amiId),
		InstanceType:        pulumi.String(conf.instanceType),
		KeyName:             conf.keyNameInput(),
		VpcSecurityGroupIds: pulumi.StringArray{network.webSg.ID()},
		UserData:            encodeUserData(userData),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating %s launch template: %w", role, err)
	}
	return template, nil
}
