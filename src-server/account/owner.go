package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"planner/src-server/kv"
)

// OWNER_KEY holds the uid the device's events belong to. It sits outside the
// event key prefixes so wiping events leaves it alone.
const OWNER_KEY = "device:owner"

var ErrForbidden = errors.New("device belongs to another account")

// Owner binds the device to a single account. Events carry no uid, so every
// other subject is turned away instead of sharing them.
type Owner struct {
	kv     kv.Store
	pinned string
	mu     sync.Mutex
}

// NewOwner returns a guard over store. A non-empty pinned uid (OWNER_UID)
// always owns the device and is never written to the store.
func NewOwner(store kv.Store, pinned string) *Owner {
	return &Owner{kv: store, pinned: pinned}
}

// Claim admits uid. The first uid seen on an unclaimed device becomes its
// owner; any other uid gets ErrForbidden.
func (o *Owner) Claim(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("Owner.Claim: %w: empty uid", ErrForbidden)
	}
	if o.pinned != "" {
		if uid != o.pinned {
			return fmt.Errorf("Owner.Claim: %w", ErrForbidden)
		}
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok, err := o.kv.Get(ctx, OWNER_KEY)
	if err != nil {
		return fmt.Errorf("Owner.Claim: %w", err)
	}
	if ok {
		if current != uid {
			return fmt.Errorf("Owner.Claim: %w", ErrForbidden)
		}
		return nil
	}
	if err := o.kv.Set(ctx, OWNER_KEY, uid); err != nil {
		return fmt.Errorf("Owner.Claim: %w", err)
	}
	slog.Info("device claimed", "uid", uid)
	return nil
}

// Current reports the owning uid, ok=false while the device is unclaimed.
func (o *Owner) Current(ctx context.Context) (string, bool, error) {
	if o.pinned != "" {
		return o.pinned, true, nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	uid, ok, err := o.kv.Get(ctx, OWNER_KEY)
	if err != nil {
		return "", false, fmt.Errorf("Owner.Current: %w", err)
	}
	return uid, ok, nil
}

// Release frees the device when uid owns it. A pinned owner stays.
func (o *Owner) Release(ctx context.Context, uid string) error {
	if o.pinned != "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok, err := o.kv.Get(ctx, OWNER_KEY)
	if err != nil {
		return fmt.Errorf("Owner.Release: %w", err)
	}
	if !ok || current != uid {
		return nil
	}
	if err := o.kv.RemoveItem(ctx, OWNER_KEY); err != nil {
		return fmt.Errorf("Owner.Release: %w", err)
	}
	return nil
}
