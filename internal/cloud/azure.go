package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

const (
	// Имя и приоритет DENY-правила: высокий приоритет перекрывает
	// все существующие allow-правила в NSG
	azureDenyRuleName  = "HAWKGRID-DENY-ALL-EGRESS"
	azureRulePriority  = int32(100)
	azureRuleDirection = armnetwork.SecurityRuleDirectionOutbound
)

// AzureProvider — облачный бэкенд поверх Network Security Groups.
// Containment = deny-all-egress правило с максимальным приоритетом.
type AzureProvider struct {
	nsgClient   *armnetwork.SecurityGroupsClient
	rulesClient *armnetwork.SecurityRulesClient
	ifaceClient *armnetwork.InterfacesClient

	resourceGroup string
	logger        *zap.Logger
}

func NewAzureProvider(subscriptionID, resourceGroup string, logger *zap.Logger) (*AzureProvider, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("azure: subscription id is not set")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure: credential: %w", err)
	}

	factory, err := armnetwork.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: client factory: %w", err)
	}

	return &AzureProvider{
		nsgClient:     factory.NewSecurityGroupsClient(),
		rulesClient:   factory.NewSecurityRulesClient(),
		ifaceClient:   factory.NewInterfacesClient(),
		resourceGroup: resourceGroup,
		logger:        logger.Named("azure-provider"),
	}, nil
}

func (p *AzureProvider) Name() string { return "azure" }

// DiscoverAssets проходит сетевые интерфейсы ресурсной группы:
// приватный IP -> имя NSG интерфейса.
func (p *AzureProvider) DiscoverAssets(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset

	pager := p.ifaceClient.NewListPager(p.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list interfaces: %w", err)
		}
		for _, iface := range page.Value {
			if iface.Properties == nil || iface.Properties.NetworkSecurityGroup == nil {
				continue
			}
			nsgName := lastSegment(deref(iface.Properties.NetworkSecurityGroup.ID))
			for _, ipCfg := range iface.Properties.IPConfigurations {
				if ipCfg.Properties == nil || ipCfg.Properties.PrivateIPAddress == nil {
					continue
				}
				assets = append(assets, domain.Asset{
					Identifier:  *ipCfg.Properties.PrivateIPAddress,
					Cloud:       domain.CloudAzure,
					ProviderRef: nsgName,
				})
			}
		}
	}
	return assets, nil
}

// Isolate вешает deny-all-egress правило на NSG из ProviderRef ассета.
func (p *AzureProvider) Isolate(ctx context.Context, incident domain.Incident, asset domain.Asset) (bool, error) {
	nsgName := asset.ProviderRef
	if nsgName == "" {
		return false, fmt.Errorf("azure: incident %s has no NSG ref", incident.ID)
	}

	p.logger.Info("applying Azure isolation",
		zap.String("node_id", incident.NodeID),
		zap.String("nsg", nsgName),
	)

	// NSG должна уже существовать: containment ничего не создает "по пути",
	// пропавшая группа — это отказ провайдера, а не повод ее завести
	if _, err := p.nsgClient.Get(ctx, p.resourceGroup, nsgName, nil); err != nil {
		return false, fmt.Errorf("azure: nsg %s lookup: %w", nsgName, err)
	}

	rule := armnetwork.SecurityRule{
		Properties: &armnetwork.SecurityRulePropertiesFormat{
			Protocol:                 to.Ptr(armnetwork.SecurityRuleProtocolAsterisk),
			Access:                   to.Ptr(armnetwork.SecurityRuleAccessDeny),
			Direction:                to.Ptr(azureRuleDirection),
			Priority:                 to.Ptr(azureRulePriority),
			SourceAddressPrefix:      to.Ptr("*"),
			SourcePortRange:          to.Ptr("*"),
			DestinationAddressPrefix: to.Ptr("Internet"),
			DestinationPortRange:     to.Ptr("*"),
			Description:              to.Ptr("HAWKGRID: automated anomaly isolation"),
		},
	}

	poller, err := p.rulesClient.BeginCreateOrUpdate(ctx, p.resourceGroup, nsgName, azureDenyRuleName, rule, nil)
	if err != nil {
		return false, fmt.Errorf("azure: create deny rule on %s: %w", nsgName, err)
	}
	// Ждем применения: у вызова сверху стоит containment-таймаут
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return false, fmt.Errorf("azure: apply deny rule on %s: %w", nsgName, err)
	}

	p.logger.Warn("applied isolation rule to NSG",
		zap.String("nsg", nsgName),
		zap.String("rule", azureDenyRuleName),
	)
	return true, nil
}

func lastSegment(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
