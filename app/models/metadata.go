package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
)

// Well-known metadata keys. Everything else is carried as an opaque
// forward-compatibility bag.
const (
	MetaKeySalonID       = "salon_id"
	MetaKeyBillingMethod = "billing_method"
	MetaKeyDescription   = "description"
	MetaKeyPayerEmail    = "payer_email"
	MetaKeyPayerName     = "payer_name"
	MetaKeyWebhookID     = "webhook_id"
)

// BillingMethodSalonJPY marks subscriptions billed in JPY through the salon
// accounting path; those cycles never move points.
const BillingMethodSalonJPY = "salon_jpy"

// Metadata is a flat string map persisted as a JSON column.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("metadata: unsupported column type")
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// SalonID returns the linked salon id, or 0 when absent or malformed.
func (m Metadata) SalonID() uint {
	v, ok := m[MetaKeySalonID]
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// SetSalonID stores a salon id if none is present yet.
func (m Metadata) SetSalonID(id uint) {
	if id == 0 {
		return
	}
	if _, ok := m[MetaKeySalonID]; !ok {
		m[MetaKeySalonID] = strconv.FormatUint(uint64(id), 10)
	}
}

// BillingMethod returns the billing method marker, empty when unset.
func (m Metadata) BillingMethod() string {
	return m[MetaKeyBillingMethod]
}

// IsSalonJPYBilling reports whether cycles are settled in JPY outside the
// points ledger.
func (m Metadata) IsSalonJPYBilling() bool {
	return m.BillingMethod() == BillingMethodSalonJPY
}
