package domain

// AttackType — категория атаки, присвоенная классификатором второй стадии.
type AttackType string

const (
	AttackNormal       AttackType = "NORMAL"
	AttackDDoS         AttackType = "DDOS_ATTACK"       // Распределенный флуд запросами
	AttackExfiltration AttackType = "DATA_EXFILTRATION" // Объемный флуд: массовый вынос данных
	AttackPortScan     AttackType = "PORT_SCAN"         // Разведка / сканирование
	AttackBruteForce   AttackType = "BRUTE_FORCE"       // Перебор учетных данных
	AttackGeneric      AttackType = "GENERIC_ANOMALY"   // Аномалия без точной категории
)

// DetectionResult — итог двухстадийной детекции по одному событию.
//
// Конвенция знака AnomalyScore: score = threshold - max|z|,
// чем МЕНЬШЕ (отрицательнее) значение — тем аномальнее событие.
// Аномалия фиксируется строго при score < 0. Все пороговые сравнения
// движка следуют этой конвенции.
type DetectionResult struct {
	IsAnomaly    bool       `json:"is_anomaly"`
	AnomalyScore float64    `json:"anomaly_score"`
	AttackType   AttackType `json:"attack_type"`
}
