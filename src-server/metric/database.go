package metric

import (
	"context"
	"fmt"
	"time"

	"planner/src-server/model"
	"planner/src-server/utils"
)

// emptyRead times a lookup for a key no entry can have.
func emptyRead(as *utils.AppState) (time.Duration, error) {
	start := time.Now()
	if _, err := as.BunDB.NewSelect().
		Model((*model.KVEntry)(nil)).
		Where("entry_key = ?", "").
		Exists(context.Background()); err != nil {
		return 0, fmt.Errorf("emptyRead: %w", err)
	}
	return time.Since(start), nil
}
