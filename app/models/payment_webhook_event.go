package models

import "time"

const PaymentProviderECPay = "ecpay"

// PaymentWebhookEvent stores gateway callback payloads with deduplication
// metadata for idempotent processing. The gateway retries callbacks, so the
// (provider, provider_event_id) pair must stay unique.
type PaymentWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_payment_webhook_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_payment_webhook_provider_event,unique,priority:2" json:"provider_event_id"`
	TradeNo         string     `gorm:"type:varchar(20);index" json:"trade_no"`
	RtnCode         string     `gorm:"type:varchar(10)" json:"rtn_code"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
