package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для работы
// вне пути запроса: рассылка событий жизненного цикла не должна ронять
// процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic в горутине: %v\nstack:\n%s", r, debug.Stack())
				}
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	SafeGo(func() { fn(ctx) })
}
