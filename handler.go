package main

import (
	"fmt"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi-command/sdk/go/command/local"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// healthCheckSources are the inputs of the health check binary.
var healthCheckSources = []string{"go.mod", "go.sum", "cmd/healthcheck", "internal"}

type LambdaHandler struct {
	function *lambda.Function
}

type LambdaHandlerArgs struct {
	config       *StackConfig
	topics       *Topics
	loadBalancer *LoadBalancer
	api          *Api
}

func NewLambdaHandler(ctx *pulumi.Context, args LambdaHandlerArgs) (*LambdaHandler, error) {
	lh := &LambdaHandler{}

	sourceHash, err := hashSources(existing(healthCheckSources)...)
	if err != nil {
		return nil, fmt.Errorf("Error hashing health check sources: %w", err)
	}
	// The archive is kept in state, so deployments that skip the build still
	// have the code without a local binary.
	build, err := local.NewCommand(ctx, "healthcheck-build", &local.CommandArgs{
		Dir: pulumi.String("cmd/healthcheck"),
		Create: pulumi.String(strings.Join([]string{
			"GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -mod=readonly -tags lambda.norpc -o bootstrap .",
			"chmod +x bootstrap",
		}, " && ")),
		Triggers:   pulumi.Array{pulumi.String(sourceHash)},
		AssetPaths: pulumi.ToStringArray([]string{"bootstrap"}),
	})
	if err != nil {
		return nil, fmt.Errorf("Error running local command: %w", err)
	}

	assumeRolePolicy, err := iam.GetPolicyDocument(ctx, &iam.GetPolicyDocumentArgs{
		Statements: []iam.GetPolicyDocumentStatement{
			{
				Actions: []string{"sts:AssumeRole"},
				Principals: []iam.GetPolicyDocumentStatementPrincipal{
					{Type: "Service", Identifiers: []string{"lambda.amazonaws.com"}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating AssumeRolePolicy: %w", err)
	}
	healthIssues := args.topics.arn(alertHealthIssues)
	remediationPolicy := pulumi.JSONMarshal(map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []interface{}{
			map[string]interface{}{
				"Effect": "Allow",
				"Action": []string{
					"ec2:DescribeInstanceStatus",
					"ec2:DescribeInstances",
					"ec2:CreateSnapshots",
					"ec2:CreateTags",
					"ec2:TerminateInstances",
					"elasticloadbalancing:DescribeTargetHealth",
				},
				"Resource": "*",
			},
			map[string]interface{}{
				"Effect":   "Allow",
				"Action":   "sns:Publish",
				"Resource": healthIssues,
			},
		},
	})
	executionRole, err := iam.NewRole(ctx, "lambda-execution-role", &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(assumeRolePolicy.Json),
		ManagedPolicyArns: pulumi.ToStringArray([]string{
			string(iam.ManagedPolicyAWSLambdaBasicExecutionRole),
		}),
		InlinePolicies: iam.RoleInlinePolicyArray{
			iam.RoleInlinePolicyArgs{
				Name:   pulumi.String("remediation"),
				Policy: remediationPolicy,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating execution role: %w", err)
	}

	functionName := fmt.Sprintf("%s-%s-healthcheck", ctx.Project(), ctx.Stack())
	logGroup, err := cloudwatch.NewLogGroup(ctx, "healthcheck-log-group", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/aws/lambda/" + functionName),
		RetentionInDays: pulumi.IntPtr(14),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating log group: %w", err)
	}

	variables := pulumi.StringMap{
		"TOPIC_ARN":        healthIssues,
		"UNHEALTHY_STATES": pulumi.String(strings.Join(args.config.unhealthyStates, ",")),
	}
	if args.config.targetHealthRemediation {
		variables["TARGET_GROUP_ARN"] = args.loadBalancer.targetGroup.Arn
		variables["TARGET_GRACE_PERIOD"] = pulumi.String(args.config.targetGracePeriod)
	}
	lh.function, err = lambda.NewFunction(ctx, "healthcheck", &lambda.FunctionArgs{
		Name:          pulumi.String(functionName),
		Architectures: pulumi.ToStringArray([]string{"arm64"}),
		Role:          executionRole.Arn,
		Code:          build.Archive,
		Handler:       pulumi.String("bootstrap"),
		Runtime:       pulumi.String("provided.al2023"),
		Timeout:       pulumi.Int(60),
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: variables,
		},
	}, pulumi.DependsOn([]pulumi.Resource{logGroup}))
	if err != nil {
		return nil, fmt.Errorf("Error creating lambda function: %w", err)
	}

	// A failed pass is reported through the errors alarm and the next
	// scheduled run, never by replaying snapshots and terminations.
	_, err = lambda.NewFunctionEventInvokeConfig(ctx, "healthcheck-invoke-config", &lambda.FunctionEventInvokeConfigArgs{
		FunctionName:         lh.function.Name,
		MaximumRetryAttempts: pulumi.Int(0),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating invoke config: %w", err)
	}

	if err := lh.schedule(ctx, args.config.healthCheckSchedule); err != nil {
		return nil, err
	}
	if err := args.api.registerLambda(ctx, lh.function); err != nil {
		return nil, err
	}

	_, err = cloudwatch.NewMetricAlarm(ctx, "healthcheck-errors-alarm", &cloudwatch.MetricAlarmArgs{
		AlarmDescription:   pulumi.String("The health check function failed to remediate an instance"),
		Namespace:          pulumi.String("AWS/Lambda"),
		MetricName:         pulumi.String("Errors"),
		Dimensions:         pulumi.StringMap{"FunctionName": lh.function.Name},
		Statistic:          pulumi.String("Sum"),
		Period:             pulumi.Int(300),
		EvaluationPeriods:  pulumi.Int(1),
		ComparisonOperator: pulumi.String("GreaterThanThreshold"),
		Threshold:          pulumi.Float64(0),
		TreatMissingData:   pulumi.String("notBreaching"),
		AlarmActions:       pulumi.Array{healthIssues},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating errors alarm: %w", err)
	}

	return lh, nil
}

// schedule invokes the function on the EventBridge schedule expression.
func (lh *LambdaHandler) schedule(ctx *pulumi.Context, expression string) error {
	rule, err := cloudwatch.NewEventRule(ctx, "healthcheck-schedule", &cloudwatch.EventRuleArgs{
		Description:        pulumi.String("Periodic web instance health check"),
		ScheduleExpression: pulumi.String(expression),
	})
	if err != nil {
		return fmt.Errorf("Error creating schedule rule: %w", err)
	}

	_, err = cloudwatch.NewEventTarget(ctx, "healthcheck-target", &cloudwatch.EventTargetArgs{
		Rule: rule.Name,
		Arn:  lh.function.Arn,
	})
	if err != nil {
		return fmt.Errorf("Error creating schedule target: %w", err)
	}

	_, err = lambda.NewPermission(ctx, "events-lambda-permission", &lambda.PermissionArgs{
		Action:    pulumi.String("lambda:InvokeFunction"),
		Function:  lh.function.Name,
		Principal: pulumi.String("events.amazonaws.com"),
		SourceArn: rule.Arn,
	})
	if err != nil {
		return fmt.Errorf("Error creating invoke permission: %w", err)
	}
	return nil
}
