package awsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"webapp-infra/internal/remediation"
)

// EC2Registry is the instance registry backed by EC2.
type EC2Registry struct {
	client EC2API
}

func NewEC2Registry(client EC2API) *EC2Registry {
	return &EC2Registry{client: client}
}

// DescribeHealth lists the status of every instance, stopped ones included.
func (r *EC2Registry) DescribeHealth(ctx context.Context) ([]remediation.HealthRecord, error) {
	// Without IncludeAllInstances EC2 only reports running instances.
	paginator := ec2.NewDescribeInstanceStatusPaginator(r.client, &ec2.DescribeInstanceStatusInput{
		IncludeAllInstances: aws.Bool(true),
	})
	var records []remediation.HealthRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instance status: %w", err)
		}
		for _, status := range page.InstanceStatuses {
			records = append(records, healthRecord(status))
		}
	}
	if len(records) == 0 {
		return records, nil
	}

	launched, err := r.launchTimes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].LaunchTime = launched[records[i].InstanceID]
	}
	return records, nil
}

// launchTimes maps every instance to its launch time.
func (r *EC2Registry) launchTimes(ctx context.Context) (map[string]time.Time, error) {
	paginator := ec2.NewDescribeInstancesPaginator(r.client, &ec2.DescribeInstancesInput{})
	launched := make(map[string]time.Time)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				launched[aws.ToString(instance.InstanceId)] = aws.ToTime(instance.LaunchTime)
			}
		}
	}
	return launched, nil
}

// CreateSnapshot snapshots every EBS volume attached to the instance.
func (r *EC2Registry) CreateSnapshot(ctx context.Context, instanceID, description string) (*remediation.Snapshot, error) {
	out, err := r.client.CreateSnapshots(ctx, &ec2.CreateSnapshotsInput{
		InstanceSpecification: &types.InstanceSpecification{
			InstanceId: aws.String(instanceID),
		},
		Description:        aws.String(description),
		CopyTagsFromSource: types.CopyTagsFromSourceVolume,
	})
	if err != nil {
		return nil, ConvertError(err)
	}
	snapshot := &remediation.Snapshot{Snapshots: []remediation.SnapshotInfo{}}
	for _, info := range out.Snapshots {
		snapshot.Snapshots = append(snapshot.Snapshots, remediation.SnapshotInfo{
			SnapshotID: aws.ToString(info.SnapshotId),
			VolumeID:   aws.ToString(info.VolumeId),
			State:      string(info.State),
			StartTime:  aws.ToTime(info.StartTime),
		})
	}
	return snapshot, nil
}

// Terminate terminates the instance.
func (r *EC2Registry) Terminate(ctx context.Context, instanceID string) (*remediation.Termination, error) {
	out, err := r.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, ConvertError(err)
	}
	receipt := &remediation.Termination{InstanceID: instanceID}
	for _, change := range out.TerminatingInstances {
		if aws.ToString(change.InstanceId) != instanceID {
			continue
		}
		receipt.PreviousState = stateName(change.PreviousState)
		receipt.CurrentState = stateName(change.CurrentState)
	}
	return receipt, nil
}

func healthRecord(status types.InstanceStatus) remediation.HealthRecord {
	record := remediation.HealthRecord{
		InstanceID: aws.ToString(status.InstanceId),
		State:      stateName(status.InstanceState),
	}
	if status.InstanceStatus != nil {
		record.Status = string(status.InstanceStatus.Status)
	}
	return record
}

func stateName(state *types.InstanceState) remediation.InstanceState {
	if state == nil {
		return ""
	}
	return remediation.InstanceState(state.Name)
}
