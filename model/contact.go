package model

import "time"

// Contact is an on-call contact record, looked up by specialty. The core
// never interprets it beyond formatting it into a CONTACT response.
type Contact struct {
	ID        int64     `json:"id"`
	Specialty string    `json:"specialty"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Pager     *string   `json:"pager,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
