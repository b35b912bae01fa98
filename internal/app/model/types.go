package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// jsonValue encodes v as a JSON document for a text column.
func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported JSON column type")
	}
}

// Service is one offering listed by a vendor.
type Service struct {
	Name        string  `json:"name" firestore:"name"`
	Price       float64 `json:"price" firestore:"price"`
	Description string  `json:"description" firestore:"description"`
}

// ServiceList is persisted as a JSON array.
type ServiceList []Service

func (s ServiceList) Value() (driver.Value, error) {
	if s == nil {
		return jsonValue([]Service{})
	}
	return jsonValue([]Service(s))
}

func (s *ServiceList) Scan(value interface{}) error {
	return jsonScan(value, (*[]Service)(s))
}

// OperatingHours maps a weekday to "HH:MM AM - HH:MM PM" or "Closed".
type OperatingHours map[string]string

func (h OperatingHours) Value() (driver.Value, error) {
	if h == nil {
		return jsonValue(map[string]string{})
	}
	return jsonValue(map[string]string(h))
}

func (h *OperatingHours) Scan(value interface{}) error {
	return jsonScan(value, (*map[string]string)(h))
}

// VendorReply is the vendor owner's public answer to a review.
type VendorReply struct {
	Text      string `json:"text" firestore:"text"`
	CreatedAt int64  `json:"createdAt" firestore:"createdAt"` // unix millis
}

func (r VendorReply) Value() (driver.Value, error) {
	return jsonValue(r)
}

func (r *VendorReply) Scan(value interface{}) error {
	return jsonScan(value, r)
}
