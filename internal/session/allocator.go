package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Allocator 產生全域唯一識別碼與擷取時間戳。
// 時鐘可注入以利測試。
type Allocator struct {
	now func() time.Time
}

func NewAllocator() *Allocator {
	return &Allocator{now: func() time.Time { return time.Now().UTC() }}
}

// NewID returns a collision-free identifier for any session entity.
func (a *Allocator) NewID() string {
	return uuid.NewString()
}

// EquipmentID returns the time-derived default case number used when the
// operator does not assign one (EQ-<unix millis>).
func (a *Allocator) EquipmentID() string {
	return fmt.Sprintf("EQ-%d", a.now().UnixMilli())
}

// Timestamp returns the capture timestamp in RFC3339 UTC.
func (a *Allocator) Timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}
