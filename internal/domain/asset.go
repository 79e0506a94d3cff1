package domain

// CloudKind — облако, владеющее ассетом.
type CloudKind string

const (
	CloudAWS   CloudKind = "aws"
	CloudAzure CloudKind = "azure"
	// CloudNone — ассет не зарегистрирован ни у одного провайдера.
	// Для диспетчера это сигнал "advisory only": реальных действий не делаем.
	CloudNone CloudKind = "none"
)

// Asset — привязка волатильного сетевого идентификатора (public IP / node id)
// к стабильной внутренней сущности и ручке провайдера.
type Asset struct {
	Identifier string    `json:"identifier"`
	Cloud      CloudKind `json:"cloud"`

	// ProviderRef — непрозрачная ручка для containment-операции:
	// у AWS это security group id, у Azure — "resource_group/nsg_name".
	// Пустая строка у незарегистрированных ассетов.
	ProviderRef string `json:"provider_ref,omitempty"`
}

// UnknownAsset возвращает синтетический ассет для промаха кэша.
// Промах — не ошибка: диспетчер увидит CloudNone и ограничится симуляцией.
func UnknownAsset(identifier string) Asset {
	return Asset{Identifier: identifier, Cloud: CloudNone}
}
