package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/timebank-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
// Используется для фоновых best-effort шагов (получение ссылки на встречу,
// push в WebSocket), падение которых не должно ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\n%s", r, debug.Stack())
				}
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	SafeGo(func() {
		fn(ctx)
	})
}
