package main

import (
	"fmt"

	ec2_classic "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-awsx/sdk/v2/go/awsx/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

type Network struct {
	vpc   *ec2.Vpc
	albSg *ec2_classic.SecurityGroup
	webSg *ec2_classic.SecurityGroup
}

type NetworkArgs struct {
	config *StackConfig
}

func NewNetwork(ctx *pulumi.Context, args NetworkArgs) (*Network, error) {
	var err error
	network := &Network{}

	as := ec2.SubnetAllocationStrategyAuto
	zones := 2
	network.vpc, err = ec2.NewVpc(ctx, "vpc", &ec2.VpcArgs{
		CidrBlock:                 &args.config.vpcCidr,
		NumberOfAvailabilityZones: &zones,
		NatGateways:               &ec2.NatGatewayConfigurationArgs{Strategy: ec2.NatGatewayStrategySingle},
		SubnetStrategy:            &as,
		SubnetSpecs: []ec2.SubnetSpecArgs{
			{Type: ec2.SubnetTypePublic, CidrMask: &args.config.subnetMask},
			{Type: ec2.SubnetTypePrivate, CidrMask: &args.config.subnetMask},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating vpc: %w", err)
	}

	network.albSg, err = ec2_classic.NewSecurityGroup(ctx, "alb-sg", &ec2_classic.SecurityGroupArgs{
		VpcId:  network.vpc.VpcId,
		Egress: egressAll(),
		Ingress: ec2_classic.SecurityGroupIngressArray{
			ec2_classic.SecurityGroupIngressArgs{
				CidrBlocks:  pulumi.ToStringArray([]string{"0.0.0.0/0"}),
				Description: pulumi.String("HTTP from anywhere"),
				FromPort:    pulumi.Int(80),
				ToPort:      pulumi.Int(80),
				Protocol:    pulumi.String("tcp"),
			},
		},
		RevokeRulesOnDelete: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating alb security group: %w", err)
	}

	// frontend on 80, backend api on 3000, both only reachable through the alb
	network.webSg, err = ec2_classic.NewSecurityGroup(ctx, "web-sg", &ec2_classic.SecurityGroupArgs{
		VpcId:               network.vpc.VpcId,
		Egress:              egressAll(),
		Ingress:             append(ingress(80, network.albSg), ingress(3000, network.albSg)...),
		RevokeRulesOnDelete: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating web security group: %w", err)
	}

	return network, nil
}

func egressAll() ec2_classic.SecurityGroupEgressArray {
	return ec2_classic.SecurityGroupEgressArray{
		ec2_classic.SecurityGroupEgressArgs{
			CidrBlocks:  pulumi.ToStringArray([]string{"0.0.0.0/0"}),
			Description: pulumi.String("Egress all"),
			Protocol:    pulumi.String("-1"),
			FromPort:    pulumi.Int(0),
			ToPort:      pulumi.Int(0),
		},
	}
}

func ingress(port int, sg ...*ec2_classic.SecurityGroup) ec2_classic.SecurityGroupIngressArray {
	sgs := pulumi.StringArray{}
	for i := range sg {
		sgs = append(sgs, sg[i].ID())
	}
	return ec2_classic.SecurityGroupIngressArray{
		ec2_classic.SecurityGroupIngressArgs{
			FromPort:       pulumi.Int(port),
			ToPort:         pulumi.Int(port),
			Protocol:       pulumi.String("tcp"),
			SecurityGroups: sgs,
		},
	}
}
