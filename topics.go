package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/sns"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	alertHealthIssues  = "health_issues"
	alertScalingEvents = "scaling_events"
	alertHighTraffic   = "high_traffic"
)

// alertTopics maps each alert type to the name of its topic.
var alertTopics = []struct {
	alert string
	name  string
}{
	{alertHealthIssues, "HealthIssuesNotifications"},
	{alertScalingEvents, "ScalingEventsNotifications"},
	{alertHighTraffic, "HighTrafficNotifications"},
}

type Topics struct {
	byAlert map[string]*sns.Topic
}

type TopicsArgs struct {
	config *StackConfig
}

// NewTopics creates one topic per alert type and subscribes every
// administrator to each of them.
func NewTopics(ctx *pulumi.Context, args TopicsArgs) (*Topics, error) {
	topics := &Topics{byAlert: map[string]*sns.Topic{}}

	for _, t := range alertTopics {
		topic, err := sns.NewTopic(ctx, t.name, &sns.TopicArgs{
			Tags: pulumi.StringMap{"Alert": pulumi.String(t.alert)},
		})
		if err != nil {
			return nil, fmt.Errorf("Error creating %s topic: %w", t.alert, err)
		}
		topics.byAlert[t.alert] = topic

		subscribers := map[string][]string{
			"sms":   args.config.smsSubscribers,
			"email": args.config.emailSubscribers,
		}
		for _, protocol := range []string{"sms", "email"} {
			for i, endpoint := range subscribers[protocol] {
				_, err := sns.NewTopicSubscription(ctx, fmt.Sprintf("%s-%s-%d", t.name, protocol, i), &sns.TopicSubscriptionArgs{
					Topic:    topic.Arn,
					Protocol: pulumi.String(protocol),
					Endpoint: pulumi.String(endpoint),
				})
				if err != nil {
					return nil, fmt.Errorf("Error subscribing %s to %s: %w", endpoint, t.alert, err)
				}
			}
		}
	}

	return topics, nil
}

func (t *Topics) arn(alert string) pulumi.StringOutput {
	return t.byAlert[alert].Arn
}
