package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/bsm/redislock"
	"github.com/distfocus/logistics_backend/config"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// GetTypeName returns the bare struct name of T (pointers unwrapped).
// Used to build redis keys for sequences and cached lists.
func GetTypeName[T any]() string {
	var v T
	t := reflect.TypeOf(&v).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// StockKeyLock obtains a best-effort distributed lock for one
// (product, warehouse) stock key. The DB row lock is the authoritative
// serialization; this only shortens lock wait on the DB under contention.
// The returned release func is never nil.
func StockKeyLock(ctx context.Context, productId int, warehouseId int, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("stock:%d:%d", productId, warehouseId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "could not obtain stock key lock", lockKey, err)
		return func() {}, nil
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "error obtaining stock key lock", lockKey, err)
		return func() {}, nil
	}
	return func() {
		_ = lock.Release(ctx)
	}, nil
}
