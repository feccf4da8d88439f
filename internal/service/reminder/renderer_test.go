package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	t.Run("several days out", func(t *testing.T) {
		msg := Render("CPR", expiration, 7)
		assert.Equal(t, "Certification expires in 7 days: CPR", msg.Subject)
		assert.Contains(t, msg.Body, "expires in 7 days, on March 31, 2025")
		assert.Equal(t, 7, msg.DaysRemaining)
	})

	t.Run("tomorrow", func(t *testing.T) {
		msg := Render("First Aid", expiration, 1)
		assert.Equal(t, "Certification expires tomorrow: First Aid", msg.Subject)
		assert.Contains(t, msg.Body, "expires tomorrow, on March 31, 2025")
	})

	t.Run("today", func(t *testing.T) {
		msg := Render("CPR", expiration, 0)
		assert.Equal(t, "Certification expiring today: CPR", msg.Subject)
		assert.Contains(t, msg.Body, "expires today (March 31, 2025)")
	})

	t.Run("past due renders as today", func(t *testing.T) {
		msg := Render("CPR", expiration, -2)
		assert.Equal(t, "Certification expiring today: CPR", msg.Subject)
	})

	t.Run("deterministic", func(t *testing.T) {
		first := Render("CPR", expiration, 7)
		second := Render("CPR", expiration, 7)
		assert.Equal(t, first, second)
	})
}
