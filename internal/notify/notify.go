// Package notify доставляет напоминания студентам.
package notify

import "context"

// Sender отправляет готовый текст получателю
type Sender interface {
	Send(ctx context.Context, destinationID int64, text string) error
}
