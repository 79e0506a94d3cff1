package cloud

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// AWSProvider — облачный бэкенд поверх EC2.
// Containment = отзыв всего исходящего трафика security group инстанса:
// разрушающее, но обратимое действие, именно то, что нужно для изоляции.
type AWSProvider struct {
	client *ec2.Client
	logger *zap.Logger
}

func NewAWSProvider(ctx context.Context, region string, logger *zap.Logger) (*AWSProvider, error) {
	if region == "" {
		return nil, fmt.Errorf("aws: region is not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws: load config: %w", err)
	}
	return &AWSProvider{
		client: ec2.NewFromConfig(cfg),
		logger: logger.Named("aws-provider"),
	}, nil
}

func (p *AWSProvider) Name() string { return "aws" }

// DiscoverAssets собирает запущенные инстансы: публичный IP -> security group.
func (p *AWSProvider) DiscoverAssets(ctx context.Context) ([]domain.Asset, error) {
	out, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: strPtr("instance-state-name"), Values: []string{"running"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe instances: %w", err)
	}

	var assets []domain.Asset
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if inst.PublicIpAddress == nil || len(inst.SecurityGroups) == 0 {
				continue
			}
			assets = append(assets, domain.Asset{
				Identifier:  *inst.PublicIpAddress,
				Cloud:       domain.CloudAWS,
				ProviderRef: deref(inst.SecurityGroups[0].GroupId),
			})
		}
	}
	return assets, nil
}

// Isolate отзывает весь egress у security group из ProviderRef ассета.
func (p *AWSProvider) Isolate(ctx context.Context, incident domain.Incident, asset domain.Asset) (bool, error) {
	groupID := asset.ProviderRef
	if groupID == "" {
		return false, fmt.Errorf("aws: incident %s has no security group ref", incident.ID)
	}

	p.logger.Info("applying AWS isolation",
		zap.String("node_id", incident.NodeID),
		zap.String("group_id", groupID),
	)

	_, err := p.client.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
		GroupId: &groupID,
		IpPermissions: []ec2types.IpPermission{
			{
				IpProtocol: strPtr("-1"), // все протоколы
				IpRanges:   []ec2types.IpRange{{CidrIp: strPtr("0.0.0.0/0")}},
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("aws: revoke egress for %s: %w", groupID, err)
	}

	p.logger.Warn("revoked all egress from security group", zap.String("group_id", groupID))
	return true, nil
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
