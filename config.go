package main

import (
	"fmt"
	"net"
	"time"

	"github.com/c-robinson/iplib"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// subnetsNeeded is one public and one private subnet in each of two zones.
const subnetsNeeded = 4

type StackConfig struct {
	vpcCidr      string
	subnetMask   int
	amiId        string
	instanceType string
	keyName      string
	appRepo      string
	mongoUri     pulumi.StringOutput

	smsSubscribers   []string
	emailSubscribers []string

	healthCheckSchedule string
	unhealthyStates     []string
	// targetHealthRemediation also replaces instances the load balancer
	// reports unhealthy once they are past targetGracePeriod.
	targetHealthRemediation bool
	targetGracePeriod       string

	asgMin     int
	asgMax     int
	asgDesired int

	highTrafficThreshold float64
}

func NewStackConfig(ctx *pulumi.Context) (*StackConfig, error) {
	conf := config.New(ctx, "")
	c := &StackConfig{
		vpcCidr:                 stringOr(conf.Get("vpcCidr"), "10.0.0.0/16"),
		subnetMask:              intOr(conf.GetInt("subnetMask"), 24),
		instanceType:            stringOr(conf.Get("instanceType"), "t2.micro"),
		keyName:                 conf.Get("keyName"),
		appRepo:                 stringOr(conf.Get("appRepo"), "https://github.com/UnpredictablePrashant/TravelMemory.git"),
		mongoUri:                conf.GetSecret("mongoUri"),
		healthCheckSchedule:     stringOr(conf.Get("healthCheckSchedule"), "rate(5 minutes)"),
		targetHealthRemediation: conf.GetBool("targetHealthRemediation"),
		targetGracePeriod:       stringOr(conf.Get("targetGracePeriod"), "10m"),
		asgMin:                  intOr(conf.GetInt("asgMin"), 1),
		asgMax:                  intOr(conf.GetInt("asgMax"), 3),
		asgDesired:              intOr(conf.GetInt("asgDesired"), 2),
		highTrafficThreshold:    conf.GetFloat64("highTrafficThreshold"),
	}

	var err error
	c.amiId, err = conf.Try("amiId")
	if err != nil {
		return nil, fmt.Errorf("Error reading amiId: %w", err)
	}
	for key, out := range map[string]*[]string{
		"smsSubscribers":   &c.smsSubscribers,
		"emailSubscribers": &c.emailSubscribers,
		"unhealthyStates":  &c.unhealthyStates,
	} {
		if conf.Get(key) == "" {
			continue
		}
		if err := conf.GetObject(key, out); err != nil {
			return nil, fmt.Errorf("Error reading %s: %w", key, err)
		}
	}
	if len(c.unhealthyStates) == 0 {
		c.unhealthyStates = []string{"stopped"}
	}
	if c.highTrafficThreshold == 0 {
		c.highTrafficThreshold = 1000
	}

	if grace, err := time.ParseDuration(c.targetGracePeriod); err != nil || grace < 0 {
		return nil, fmt.Errorf("Error parsing targetGracePeriod %q", c.targetGracePeriod)
	}
	if err := validateSubnetMask(c.vpcCidr, c.subnetMask); err != nil {
		return nil, err
	}
	if c.asgMin > c.asgDesired || c.asgDesired > c.asgMax {
		return nil, fmt.Errorf("asgMin <= asgDesired <= asgMax does not hold for %d/%d/%d", c.asgMin, c.asgDesired, c.asgMax)
	}
	return c, nil
}

// validateSubnetMask checks that the VPC block splits into enough subnets of
// the requested size.
func validateSubnetMask(vpcCidr string, mask int) error {
	_, ipnet, err := net.ParseCIDR(vpcCidr)
	if err != nil {
		return fmt.Errorf("Error parsing vpcCidr: %w", err)
	}
	if ipnet.IP.To4() == nil {
		return fmt.Errorf("vpcCidr %s is not an IPv4 block", vpcCidr)
	}
	if mask > 28 {
		return fmt.Errorf("subnetMask /%d is smaller than the /28 minimum", mask)
	}
	ones, _ := ipnet.Mask.Size()
	subnets, err := iplib.NewNet4(ipnet.IP, ones).Subnet(mask)
	if err != nil {
		return fmt.Errorf("Error splitting %s into /%d subnets: %w", vpcCidr, mask, err)
	}
	if len(subnets) < subnetsNeeded {
		return fmt.Errorf("%s only holds %d /%d subnets, need %d", vpcCidr, len(subnets), mask, subnetsNeeded)
	}
	return nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
