package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	var d = Load()
	if d.EnginePath == "" || d.DisplayPath == "" {
		t.Fatal("empty child paths")
	}
	if d.AvgTime <= 0 || d.AckBackoff <= 0 || d.Grace <= 0 {
		t.Fatalf("non-positive durations: %+v", d)
	}
	if d.AckRetries <= 0 {
		t.Fatalf("retries = %v", d.AckRetries)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CCHECK_AVGTIME", "5s")
	t.Setenv("CCHECK_ACK_RETRIES", "9")
	t.Setenv("CCHECK_ENGINE", "/opt/engine")
	var d = Load()
	if d.AvgTime != 5*time.Second {
		t.Errorf("AvgTime = %v", d.AvgTime)
	}
	if d.AckRetries != 9 {
		t.Errorf("AckRetries = %v", d.AckRetries)
	}
	if d.EnginePath != "/opt/engine" {
		t.Errorf("EnginePath = %v", d.EnginePath)
	}
}

func TestEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("CCHECK_AVGTIME", "soon")
	t.Setenv("CCHECK_ACK_RETRIES", "many")
	var d = Load()
	if d.AvgTime != 2*time.Second || d.AckRetries != 5 {
		t.Fatalf("bad values leaked through: %+v", d)
	}
}
