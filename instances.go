package main

import (
	"encoding/base64"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	frontendPort = 80
	backendPort  = 3000
)

type Instances struct {
	frontend *ec2.Instance
	backend  *ec2.Instance

	frontendUserData pulumi.StringOutput
	backendUserData  pulumi.StringOutput
}

type InstancesArgs struct {
	config  *StackConfig
	network *Network
}

func NewInstances(ctx *pulumi.Context, args InstancesArgs) (*Instances, error) {
	conf := args.config
	instances := &Instances{
		frontendUserData: pulumi.String(frontendUserData(conf.appRepo)).ToStringOutput(),
		backendUserData: conf.mongoUri.ApplyT(func(uri string) string {
			return backendUserData(conf.appRepo, uri)
		}).(pulumi.StringOutput),
	}
	var err error

	instances.frontend, err = newWebInstance(ctx, "frontend", conf, args.network, instances.frontendUserData)
	if err != nil {
		return nil, err
	}
	instances.backend, err = newWebInstance(ctx, "backend", conf, args.network, instances.backendUserData)
	if err != nil {
		return nil, err
	}

	return instances, nil
}

func newWebInstance(ctx *pulumi.Context, role string, conf *StackConfig, network *Network, userData pulumi.StringOutput) (*ec2.Instance, error) {
	instance, err := ec2.NewInstance(ctx, role, &ec2.InstanceArgs{
		Ami:                 pulumi.String(conf.amiId),
		InstanceType:        pulumi.String(conf.instanceType),
		KeyName:             conf.keyNameInput(),
		SubnetId:            network.vpc.PrivateSubnetIds.Index(pulumi.Int(0)),
		VpcSecurityGroupIds: pulumi.StringArray{network.webSg.ID()},
		UserData:            userData,
		Tags: pulumi.StringMap{
			"Name": pulumi.Sprintf("%s-%s", ctx.Project(), role),
			"Role": pulumi.String(role),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating %s instance: %w", role, err)
	}
	return instance, nil
}

func (c *StackConfig) keyNameInput() pulumi.StringPtrInput {
	if c.keyName == "" {
		return nil
	}
	return pulumi.String(c.keyName)
}

// launch templates take user data base64 encoded
func encodeUserData(userData pulumi.StringOutput) pulumi.StringOutput {
	return userData.ApplyT(func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}).(pulumi.StringOutput)
}
