package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/featureflags"
)

func newService(repo featureflags.Repository) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   1 * time.Minute,
	})
}

func TestService_GetFlag_Default(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	flag := service.GetFlag(ctx, featureflags.FlagDisableLiveAQI)
	if flag == nil {
		t.Fatal("expected flag to be returned")
	}
	if flag.Key != featureflags.FlagDisableLiveAQI {
		t.Errorf("expected key %q, got %q", featureflags.FlagDisableLiveAQI, flag.Key)
	}
	if flag.BoolValue(true) {
		t.Error("expected disable_live_aqi to be false by default")
	}
}

func TestService_GetFlag_Unknown(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository())

	if flag := service.GetFlag(context.Background(), "no_such_flag"); flag != nil {
		t.Errorf("expected nil for unknown flag, got %+v", flag)
	}
	if service.IsEnabled(context.Background(), "no_such_flag") {
		t.Error("unknown flag must not be enabled")
	}
}

func TestService_SetFlags(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	updated, err := service.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagForceModelFallback, Value: true},
		{Key: featureflags.FlagLiveLagFeature, Value: true},
	})
	if err != nil {
		t.Fatalf("failed to set flags: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("expected 2 updated flags, got %d", len(updated))
	}

	if !service.IsEnabled(ctx, featureflags.FlagForceModelFallback) {
		t.Error("expected force_model_fallback to be enabled")
	}
	if !service.IsEnabled(ctx, featureflags.FlagLiveLagFeature) {
		t.Error("expected live_lag_feature to be enabled")
	}
	if service.IsEnabled(ctx, featureflags.FlagDisableDetourRouting) {
		t.Error("expected disable_detour_routing to stay disabled")
	}
}

func TestService_SetFlags_Rejected(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo)
	ctx := context.Background()

	_, err := service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: "disable_train_mode", Value: true}})
	if !errors.Is(err, featureflags.ErrUnknownFlag) {
		t.Errorf("expected ErrUnknownFlag, got %v", err)
	}

	_, err = service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: featureflags.FlagDisableLiveAQI, Value: "yes"}})
	if err == nil {
		t.Error("expected non-boolean value to be rejected")
	}

	all, _ := repo.GetAllFlags(ctx)
	if len(all) != 0 {
		t.Errorf("rejected updates must not be stored, got %d flags", len(all))
	}
}

func TestService_GetAllFlags(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagDisableLiveAQI: {Key: featureflags.FlagDisableLiveAQI, Value: true},
	})
	service := newService(repo)

	flags := service.GetAllFlags(context.Background())
	if len(flags) != len(featureflags.DefaultFlags(false)) {
		t.Errorf("expected %d flags, got %d", len(featureflags.DefaultFlags(false)), len(flags))
	}
	if !flags[featureflags.FlagDisableLiveAQI].BoolValue(false) {
		t.Error("repository value should override the default")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo)
	ctx := context.Background()

	if _, err := service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: featureflags.FlagDisableLiveAQI, Value: true}}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	// Change the repository behind the service's back.
	if err := repo.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagDisableLiveAQI, Value: false}}); err != nil {
		t.Fatalf("failed to set flag in repo: %v", err)
	}
	if !service.IsEnabled(ctx, featureflags.FlagDisableLiveAQI) {
		t.Error("expected cached value before invalidation")
	}

	service.InvalidateCache()
	if service.IsEnabled(ctx, featureflags.FlagDisableLiveAQI) {
		t.Error("expected repository value after invalidation")
	}
}

func TestDefaultFlags_RecordPredictions(t *testing.T) {
	if featureflags.DefaultFlags(false)[featureflags.FlagRecordPredictions].BoolValue(true) {
		t.Error("record_predictions should be off without a recorder")
	}
	if !featureflags.DefaultFlags(true)[featureflags.FlagRecordPredictions].BoolValue(false) {
		t.Error("record_predictions should be on with a recorder")
	}
}

func TestFlag_ValueHelpers(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		wantBool  bool
		wantFloat float64
	}{
		{"bool true", true, true, 0},
		{"bool false", false, false, 0},
		{"json number", float64(2), true, 2},
		{"json zero", float64(0), false, 0},
		{"string", "on", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := &featureflags.Flag{Key: "k", Value: tt.value}
			if got := flag.BoolValue(false); got != tt.wantBool {
				t.Errorf("BoolValue() = %v, want %v", got, tt.wantBool)
			}
			if got := flag.Float64Value(0); got != tt.wantFloat {
				t.Errorf("Float64Value() = %v, want %v", got, tt.wantFloat)
			}
		})
	}
}

func TestFlag_NilFlag(t *testing.T) {
	var flag *featureflags.Flag

	if !flag.BoolValue(true) {
		t.Error("expected default value for nil flag")
	}
	if flag.Float64Value(3.14) != 3.14 {
		t.Error("expected default value for nil flag")
	}
}

func TestService_ResetFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo)
	ctx := context.Background()

	if _, err := service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: featureflags.FlagForceModelFallback, Value: true}}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	if !service.IsEnabled(ctx, featureflags.FlagForceModelFallback) {
		t.Fatal("expected override to be active")
	}

	if err := service.ResetFlag(ctx, featureflags.FlagForceModelFallback); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if service.IsEnabled(ctx, featureflags.FlagForceModelFallback) {
		t.Error("expected default after reset")
	}
	if _, err := repo.GetFlag(ctx, featureflags.FlagForceModelFallback); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected override removed from repository, got %v", err)
	}

	if err := service.ResetFlag(ctx, featureflags.FlagForceModelFallback); err != nil {
		t.Errorf("resetting a flag without override should succeed, got %v", err)
	}
	if err := service.ResetFlag(ctx, "no_such_flag"); !errors.Is(err, featureflags.ErrUnknownFlag) {
		t.Errorf("expected ErrUnknownFlag, got %v", err)
	}
}

func TestInMemoryRepository_DeleteFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(featureflags.DefaultFlags(false))
	ctx := context.Background()

	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableLiveAQI); err != nil {
		t.Fatalf("failed to delete flag: %v", err)
	}
	if _, err := repo.GetFlag(ctx, featureflags.FlagDisableLiveAQI); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound after delete, got %v", err)
	}
	if err := repo.DeleteFlag(ctx, "nonexistent"); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound for non-existent flag, got %v", err)
	}
}

func TestSortedList(t *testing.T) {
	list := featureflags.SortedList(featureflags.DefaultFlags(false))

	if len(list.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(list.Items))
	}
	for i := 1; i < len(list.Items); i++ {
		if list.Items[i-1].Key > list.Items[i].Key {
			t.Errorf("items not sorted: %q before %q", list.Items[i-1].Key, list.Items[i].Key)
		}
	}
}

func TestStatic(t *testing.T) {
	flags := featureflags.Static{featureflags.FlagForceModelFallback: true}

	if !flags.IsEnabled(context.Background(), featureflags.FlagForceModelFallback) {
		t.Error("expected static flag to be enabled")
	}
	if flags.IsEnabled(context.Background(), featureflags.FlagDisableLiveAQI) {
		t.Error("expected absent static flag to be disabled")
	}
}
