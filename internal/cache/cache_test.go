package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/streamop/switchwatch/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if cache == nil {
		t.Fatal("Cache should not be nil")
	}

	// Test ping
	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_StreamHealthOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	health := &models.StreamHealth{
		ServerID:    "srv-1",
		ServerName:  "main ingest",
		Decision:    models.SwitchNormal,
		BitrateKbps: 4500,
		CheckedAt:   time.Now().UTC(),
	}

	// Test SetStreamHealth
	err := cache.SetStreamHealth(ctx, health, time.Minute)
	if err != nil {
		t.Fatalf("SetStreamHealth failed: %v", err)
	}

	// Test GetStreamHealth
	retrieved, err := cache.GetStreamHealth(ctx, health.ServerID)
	if err != nil {
		t.Fatalf("GetStreamHealth failed: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Retrieved health should not be nil")
	}

	if retrieved.ServerID != health.ServerID {
		t.Errorf("Expected server ID %s, got %s", health.ServerID, retrieved.ServerID)
	}

	if retrieved.Decision != models.SwitchNormal {
		t.Errorf("Expected decision %s, got %s", models.SwitchNormal, retrieved.Decision)
	}

	if retrieved.BitrateKbps != 4500 {
		t.Errorf("Expected bitrate 4500, got %d", retrieved.BitrateKbps)
	}

	// Test GetStreamHealth for unknown server
	missing, err := cache.GetStreamHealth(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetStreamHealth for unknown server should not error: %v", err)
	}

	if missing != nil {
		t.Error("Unknown server should return nil")
	}

	// Test DeleteStreamHealth
	err = cache.DeleteStreamHealth(ctx, health.ServerID)
	if err != nil {
		t.Fatalf("DeleteStreamHealth failed: %v", err)
	}

	deleted, err := cache.GetStreamHealth(ctx, health.ServerID)
	if err != nil {
		t.Fatalf("GetStreamHealth after delete failed: %v", err)
	}

	if deleted != nil {
		t.Error("Deleted health should return nil")
	}
}

func TestCache_StreamHealthExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	health := &models.StreamHealth{
		ServerID: "srv-1",
		Decision: models.SwitchOffline,
	}

	if err := cache.SetStreamHealth(ctx, health, time.Minute); err != nil {
		t.Fatalf("SetStreamHealth failed: %v", err)
	}

	// A stale snapshot must expire rather than report outdated health.
	mr.FastForward(2 * time.Minute)

	expired, err := cache.GetStreamHealth(ctx, health.ServerID)
	if err != nil {
		t.Fatalf("GetStreamHealth after expiry failed: %v", err)
	}

	if expired != nil {
		t.Error("Expired health should return nil")
	}
}

func TestCache_BitrateOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	err := cache.SetLastBitrate(ctx, "srv-1", 4500, time.Minute)
	if err != nil {
		t.Fatalf("SetLastBitrate failed: %v", err)
	}

	kbps, err := cache.GetLastBitrate(ctx, "srv-1")
	if err != nil {
		t.Fatalf("GetLastBitrate failed: %v", err)
	}

	if kbps != 4500 {
		t.Errorf("Expected bitrate 4500, got %d", kbps)
	}
}

func TestCache_StatOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	stat := "probes_completed"

	// Test IncrementStat
	err := cache.IncrementStat(ctx, stat)
	if err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	err = cache.IncrementStat(ctx, stat)
	if err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	// Test GetStat
	value, err := cache.GetStat(ctx, stat)
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}

	if value != 2 {
		t.Errorf("Expected stat value 2, got %d", value)
	}
}

func TestCache_ProbeLock(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	serverID := "srv-1"

	// Test AcquireProbeLock
	acquired, err := cache.AcquireProbeLock(ctx, serverID, time.Minute)
	if err != nil {
		t.Fatalf("AcquireProbeLock failed: %v", err)
	}

	if !acquired {
		t.Error("First lock acquisition should succeed")
	}

	// A second instance must not probe the same server concurrently.
	acquired, err = cache.AcquireProbeLock(ctx, serverID, time.Minute)
	if err != nil {
		t.Fatalf("Second AcquireProbeLock failed: %v", err)
	}

	if acquired {
		t.Error("Second lock acquisition should fail")
	}

	// Test ReleaseProbeLock
	err = cache.ReleaseProbeLock(ctx, serverID)
	if err != nil {
		t.Fatalf("ReleaseProbeLock failed: %v", err)
	}

	acquired, err = cache.AcquireProbeLock(ctx, serverID, time.Minute)
	if err != nil {
		t.Fatalf("AcquireProbeLock after release failed: %v", err)
	}

	if !acquired {
		t.Error("Lock acquisition after release should succeed")
	}
}

func TestCache_Exists(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	exists, err := cache.Exists(ctx, "health:srv-1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}

	if exists {
		t.Error("Key should not exist initially")
	}

	health := &models.StreamHealth{ServerID: "srv-1", Decision: models.SwitchNormal}
	if err := cache.SetStreamHealth(ctx, health, time.Minute); err != nil {
		t.Fatalf("SetStreamHealth failed: %v", err)
	}

	exists, err = cache.Exists(ctx, "health:srv-1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}

	if !exists {
		t.Error("Key should exist after setting")
	}
}
