package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

// TargetHealth reads target health from a load balancer target group.
type TargetHealth struct {
	client ELBAPI
}

func NewTargetHealth(client ELBAPI) *TargetHealth {
	return &TargetHealth{client: client}
}

// DescribeTargetHealth returns the target state of each registered instance.
// An instance registered on several ports reports its first non-healthy state.
func (t *TargetHealth) DescribeTargetHealth(ctx context.Context, targetGroupARN string) (map[string]string, error) {
	out, err := t.client.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(targetGroupARN),
	})
	if err != nil {
		return nil, fmt.Errorf("describe target health: %w", err)
	}
	states := make(map[string]string, len(out.TargetHealthDescriptions))
	for _, desc := range out.TargetHealthDescriptions {
		if desc.Target == nil || desc.TargetHealth == nil {
			continue
		}
		id := aws.ToString(desc.Target.Id)
		if prev, ok := states[id]; ok && prev != string(types.TargetHealthStateEnumHealthy) {
			continue
		}
		states[id] = string(desc.TargetHealth.State)
	}
	return states, nil
}
