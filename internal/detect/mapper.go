package detect

import (
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/infra"
)

// Mapper — детерминированный rule-based классификатор второй стадии.
// Переводит сырую телеметрию подтвержденной аномалии в имя атаки.
//
// Правила проверяются в ФИКСИРОВАННОМ порядке убывания тяжести:
//
//	DDOS_ATTACK > DATA_EXFILTRATION > PORT_SCAN > BRUTE_FORCE > GENERIC_ANOMALY
//
// Событие, зацепившее несколько порогов, получает самую тяжелую метку.
// Порядок — это политика, он закреплен тестами, а не порядком if-ов.
type Mapper struct {
	t infra.ThresholdsConfig
}

func NewMapper(t infra.ThresholdsConfig) *Mapper {
	return &Mapper{t: t}
}

// Map классифицирует событие по сырым (немасштабированным) атрибутам.
func (m *Mapper) Map(ev domain.Event) domain.AttackType {
	apiFreq := ev.NumericAttr("API_Call_Freq")
	failedAuth := ev.NumericAttr("Failed_Auth_Count")
	egress := ev.NumericAttr("Network_Egress_MB")

	// 1. Распределенный флуд: экстремальная частота запросов
	if apiFreq > m.t.DDoSCallFreq {
		return domain.AttackDDoS
	}

	// 2. Объемный флуд: массовый вынос данных наружу
	if egress > m.t.ExfiltrationMB {
		return domain.AttackExfiltration
	}

	// 3. Разведка: высокая частота + заметный, но не экстремальный трафик
	if apiFreq > m.t.PortScanCallFreq && egress > m.t.PortScanEgressMB {
		return domain.AttackPortScan
	}

	// 4. Перебор учеток: всплеск неудачных аутентификаций
	if failedAuth > m.t.BruteForceAuthCount {
		return domain.AttackBruteForce
	}

	return domain.AttackGeneric
}
