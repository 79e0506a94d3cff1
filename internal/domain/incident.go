package domain

// ResponseStatus — исход работы плейбука по инциденту.
type ResponseStatus string

const (
	StatusSimulated         ResponseStatus = "SIMULATED_SUCCESS"
	StatusRealActionSuccess ResponseStatus = "REAL_ACTION_SUCCESS"
	StatusRealActionFailed  ResponseStatus = "REAL_ACTION_FAILED"
	StatusUnsupportedAction ResponseStatus = "UNSUPPORTED_ACTION"
)

// Incident — зафиксированная аномалия, дошедшая до диспетчера.
// Создается ровно один раз на аномалию и дальше не мутирует:
// именно в таком виде уходит в леджер и в отчеты.
type Incident struct {
	ID           string                 `json:"id"`        // UUID инцидента
	TraceID      string                 `json:"trace_id"`  // Сквозной ID запроса
	Timestamp    string                 `json:"timestamp"` // RFC3339, момент детекции
	NodeID       string                 `json:"node_id"`
	Cloud        CloudKind              `json:"cloud_provider"`
	AnomalyScore float64                `json:"anomaly_score"`
	AttackType   AttackType             `json:"attack_type"`
	RawEvent     map[string]interface{} `json:"raw_event"`
}

// PlaybookResult — что диспетчер сделал (или сымитировал) по инциденту.
type PlaybookResult struct {
	PlaybookName string         `json:"playbook_name"`
	Status       ResponseStatus `json:"status"`
	NodeID       string         `json:"node_id"`
	Details      string         `json:"details,omitempty"`
}

// DetectResponse — внешний ответ API детекции.
// Ledger заполняется только для аномалий; при сбое записи статус "failed" —
// потеря форензики видима вызывающему, но детекция и ответ не теряются.
type DetectResponse struct {
	TraceID   string          `json:"trace_id"`
	NodeID    string          `json:"node_id"`
	Detection DetectionResult `json:"detection"`
	Response  *PlaybookResult `json:"response,omitempty"`
	Ledger    *LedgerStatus   `json:"ledger,omitempty"`
}

// LedgerStatus — видимая вызывающему судьба форензик-записи.
type LedgerStatus struct {
	Status string `json:"status"`         // "ok" | "failed"
	Hash   string `json:"hash,omitempty"` // hex sha256 записанного блока
}
