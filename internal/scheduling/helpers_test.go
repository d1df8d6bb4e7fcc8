package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/booking-engine/internal/model"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func booking(staffID uuid.UUID, start, end time.Time, padBefore, padAfter int, status model.BookingStatus) model.Booking {
	id := staffID
	return model.Booking{
		ID:            uuid.New(),
		ProviderID:    &id,
		BookingNumber: "BK" + uuid.NewString()[:6],
		Status:        status,
		StartTime:     start,
		EndTime:       end,
		PaddingBefore: padBefore,
		PaddingAfter:  padAfter,
	}
}

func activeStaff(name string) model.Staff {
	return model.Staff{ID: uuid.New(), Name: name, Status: model.StaffStatusActive}
}
