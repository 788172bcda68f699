package model

import (
	"time"

	"github.com/uptrace/bun"
)

// KVEntry is one row of the device key-value store.
type KVEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key       string    `bun:"entry_key,pk"`
	Value     string    `bun:"entry_value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
