package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nutriclass.yaml")
	if err := os.WriteFile(configPath, []byte("max_iter_unused: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	goodConfig := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(goodConfig, []byte("test_size: 0.3\nmodel:\n  max_iter: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, cfgTestSize float64, maxIter int, dataPath, multiClass, chart string)
	}{
		{
			name: "defaults",
			args: []string{"food_items.csv"},
			check: func(t *testing.T, testSize float64, maxIter int, dataPath, multiClass, chart string) {
				if testSize != 0.2 || maxIter != 1000 || multiClass != "multinomial" || chart != "class_distribution.png" {
					t.Errorf("unexpected defaults: %v %v %v %v", testSize, maxIter, multiClass, chart)
				}
			},
		},
		{
			name: "flags override config file",
			args: []string{"--config", goodConfig, "--max-iter", "10", "--multi-class", "ovr", "--chart", "", "data.csv"},
			check: func(t *testing.T, testSize float64, maxIter int, dataPath, multiClass, chart string) {
				if testSize != 0.3 {
					t.Errorf("test size from file = %v, want 0.3", testSize)
				}
				if maxIter != 10 || multiClass != "ovr" || chart != "" {
					t.Errorf("flags not applied: %v %v %q", maxIter, multiClass, chart)
				}
				if dataPath != "data.csv" {
					t.Errorf("data path = %q", dataPath)
				}
			},
		},
		{name: "unknown config key", args: []string{"--config", configPath}, wantErr: true},
		{name: "invalid flag value", args: []string{"--scaler", "robust"}, wantErr: true},
		{name: "invalid test size", args: []string{"--test-size", "2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, opts := newRootCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			cfg, err := buildConfig(cmd, opts, cmd.Flags().Args())
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildConfig: %v", err)
			}
			tt.check(t, cfg.TestSize, cfg.Model.MaxIter, cfg.DataPath, cfg.Model.MultiClass, cfg.ChartPath)
		})
	}
}
