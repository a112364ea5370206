package seed

import (
	"context"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()

	for range 2 {
		if _, err := Apply(ctx, store); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	for _, p := range DefaultProfiles() {
		got, err := store.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("profile %s missing: %v", p.Email, err)
		}
		if got.Role == types.RoleDriver && (got.Vehicle == nil || !got.Vehicle.Class.Valid()) {
			t.Fatalf("driver %s needs a vehicle class", p.Email)
		}
	}
}
