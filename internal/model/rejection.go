package model

import "fmt"

// ReasonCode 拒绝原因码
type ReasonCode string

const (
	ReasonNotEventShaped   ReasonCode = "NOT_EVENT_SHAPED"
	ReasonMalformedPayload ReasonCode = "MALFORMED_PAYLOAD"
	ReasonUnknownSource    ReasonCode = "UNKNOWN_SOURCE"
	ReasonNoDate           ReasonCode = "NO_DATE"
	ReasonEmptyTitle       ReasonCode = "EMPTY_TITLE"
	ReasonOutOfWindow      ReasonCode = "OUT_OF_WINDOW"
	ReasonNotDance         ReasonCode = "NOT_DANCE"
)

// Stage 产生拒绝的环节
type Stage string

const (
	StageMapper     Stage = "mapper"
	StageNormalizer Stage = "normalizer"
)

// Rejection 单条记录的拒绝结果（正常结果，不是错误）
type Rejection struct {
	Stage     Stage      `json:"stage"`
	Reason    ReasonCode `json:"reason"`
	SourceID  SourceID   `json:"source_id"`
	SourceRef string     `json:"source_ref,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s/%s source=%s ref=%s: %s", r.Stage, r.Reason, r.SourceID, r.SourceRef, r.Detail)
}
