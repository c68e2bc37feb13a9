package play

import (
	"context"
	"testing"
	"time"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/player"
)

func TestFindDeviceStaticAddress(t *testing.T) {
	cfg := app.Default()
	cfg.Play.Device = app.PlayDeviceConfig{
		Name:    "Bedroom TV",
		Type:    player.TypeChromecast,
		Address: "192.168.1.42",
	}

	info, err := findDevice(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("findDevice: %v", err)
	}
	if info.Address != "192.168.1.42" || info.Type != player.TypeChromecast {
		t.Errorf("info = %+v", info)
	}
}

func TestFindDeviceUnconfigured(t *testing.T) {
	cfg := app.Default()
	cfg.Play.DiscoverTimeout = 10 * time.Millisecond

	if _, err := findDevice(context.Background(), &cfg); err == nil {
		t.Fatal("findDevice accepted an empty renderer config")
	}
}
